package render

import (
	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/dom"
	"github.com/jnnngs/5250Web/internal/host"
)

// Renderer renders display-file pages and subfile row windows.
type Renderer interface {
	RenderPage(p Page) (string, error)
	RenderRows(format host.Format, records []host.Record, rows Rows) string
}

// Rows says how a row window is laid out.
type Rows struct {
	Kind dom.RowKind
	// Folded shows every line of a record; otherwise only the first.
	Folded bool
	// Pad appends empty rows up to this count.
	Pad int
}

// Page is everything a full page render needs.
type Page struct {
	Action     string
	RecordsURL string
	StyleURL   string
	JobHandle  string
	Message    string

	Format  host.Format
	Records []host.Record
	Total   int
	Top     int

	PageSize       int
	FoldKey        string
	AllowsAjax     bool
	ShowSubfileEnd bool
	Keys           aid.Bitmap
	Rows           Rows
}
