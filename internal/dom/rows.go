package dom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jnnngs/5250Web/internal/subfile"
)

// Attributes the server uses to mark subfile parts.
const (
	CtlAttr     = "data-sfl-ctl"
	ConfigAttr  = "data-sfl-config"
	RowsAttr    = "data-sfl-rows"
	EndAttr     = "data-sfl-end"
	OffPageAttr = "data-sfl-offpage"

	GridRowClass  = "dds-grid-row"
	EmptyRowClass = "dds-empty-row"
	RowGapClass   = "dds-row-gap"
)

// RowKind is the markup a subfile uses for its rows.
type RowKind int

const (
	// Table rows are <tr> elements of a <tbody>.
	Table RowKind = iota
	// GridPanel rows are div.dds-grid-row children of a CSS grid panel.
	GridPanel
)

func (k RowKind) String() string {
	switch k {
	case Table:
		return "table"
	case GridPanel:
		return "grid"
	default:
		return "unknown"
	}
}

// ParseRowKind maps "table" and "grid" to a RowKind.
func ParseRowKind(s string) (RowKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return Table, nil
	case "grid", "gridpanel", "grid-panel":
		return GridPanel, nil
	}
	return Table, fmt.Errorf("unknown row kind %q", s)
}

// RowContainer is the element holding a subfile's rendered rows. The
// implementation is chosen once, when the subfile is bound.
type RowContainer interface {
	Name() string
	Kind() RowKind
	Selection() *goquery.Selection
	// SelectRows returns the row elements in display order.
	SelectRows() *goquery.Selection
	// AppendEmptyRows pads the window with n rows without fields.
	AppendEmptyRows(n int)
	// FindRowRange returns the lowest and highest record numbers rendered.
	FindRowRange() (first, last int, ok bool)
}

// BindRows locates the row container of the named subfile.
func BindRows(p *Page, name string) (RowContainer, error) {
	sel := p.Doc.Find("[" + RowsAttr + "]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr(RowsAttr, "") == name
	}).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("row container for subfile %q not found", name)
	}
	switch tagOf(sel) {
	case "tbody":
		return &tableRows{name: name, sel: sel}, nil
	case "table":
		body := sel.ChildrenFiltered("tbody").First()
		if body.Length() == 0 {
			return nil, fmt.Errorf("subfile %q: table has no tbody", name)
		}
		return &tableRows{name: name, sel: body}, nil
	default:
		return &gridRows{name: name, sel: sel}, nil
	}
}

type tableRows struct {
	name string
	sel  *goquery.Selection
}

func (t *tableRows) Name() string                  { return t.name }
func (t *tableRows) Kind() RowKind                 { return Table }
func (t *tableRows) Selection() *goquery.Selection { return t.sel }

func (t *tableRows) SelectRows() *goquery.Selection {
	return t.sel.ChildrenFiltered("tr")
}

func (t *tableRows) AppendEmptyRows(n int) {
	for i := 0; i < n; i++ {
		t.sel.AppendNodes(element(atom.Tr, html.Attribute{Key: "class", Val: EmptyRowClass}))
	}
}

func (t *tableRows) FindRowRange() (int, int, bool) {
	return rowRange(t.SelectRows())
}

type gridRows struct {
	name string
	sel  *goquery.Selection
}

func (g *gridRows) Name() string                  { return g.name }
func (g *gridRows) Kind() RowKind                 { return GridPanel }
func (g *gridRows) Selection() *goquery.Selection { return g.sel }

func (g *gridRows) SelectRows() *goquery.Selection {
	return g.sel.ChildrenFiltered("div." + GridRowClass)
}

func (g *gridRows) AppendEmptyRows(n int) {
	for i := 0; i < n; i++ {
		g.sel.AppendNodes(element(atom.Div, html.Attribute{Key: "class", Val: GridRowClass + " " + EmptyRowClass}))
	}
}

func (g *gridRows) FindRowRange() (int, int, bool) {
	return rowRange(g.SelectRows())
}

func rowRange(rows *goquery.Selection) (int, int, bool) {
	first, last, found := 0, 0, false
	rows.Each(func(_ int, row *goquery.Selection) {
		rrn, ok := RowRecordNumber(row)
		if !ok {
			return
		}
		if !found || rrn < first {
			first = rrn
		}
		if !found || rrn > last {
			last = rrn
		}
		found = true
	})
	return first, last, found
}

// RowRecordNumber returns the record number of a row from its _RecordNumber
// hidden field, falling back to the [rrn] suffix of any field in it.
func RowRecordNumber(row *goquery.Selection) (int, bool) {
	rrn, found := 0, false
	row.Find("input[type=hidden]").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		name := h.AttrOr("name", "")
		if !subfile.IsRecordNumberField(name) {
			return true
		}
		if n, err := strconv.Atoi(strings.TrimSpace(h.AttrOr("value", ""))); err == nil {
			rrn, found = n, true
		}
		return false
	})
	if found {
		return rrn, true
	}
	row.Find(controlSelector).EachWithBreak(func(_ int, f *goquery.Selection) bool {
		if _, _, n, ok := subfile.ParseFieldName(f.AttrOr("name", "")); ok {
			rrn, found = n, true
			return false
		}
		return true
	})
	return rrn, found
}

// RowOf returns the row of c that contains the named control.
func RowOf(c RowContainer, name string) (*goquery.Selection, bool) {
	var match *goquery.Selection
	c.SelectRows().EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if fieldIn(row, name).Length() > 0 {
			match = row
			return false
		}
		return true
	})
	return match, match != nil
}

// Contains reports whether a control named name lives inside c.
func Contains(c RowContainer, name string) bool {
	return name != "" && fieldIn(c.Selection(), name).Length() > 0
}

// ReplaceRows swaps the container's children for the parsed markup. The
// container element itself is kept, so bindings to it stay valid.
func ReplaceRows(c RowContainer, markup string) error {
	node := c.Selection().Get(0)
	nodes, err := html.ParseFragment(strings.NewReader(markup), node)
	if err != nil {
		return fmt.Errorf("subfile %q: parse rows: %w", c.Name(), err)
	}
	removeChildren(node)
	for _, n := range nodes {
		node.AppendChild(n)
	}
	return nil
}
