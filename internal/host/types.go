package host

import (
	"strconv"
	"strings"
)

// FieldKind is how a record field is presented.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindCheckbox FieldKind = "checkbox"
	KindOutput   FieldKind = "output"
)

// Checkbox values as stored in a record.
const (
	CheckedValue   = "Y"
	UncheckedValue = "N"
)

// FieldDef describes one field of the subfile record format.
type FieldDef struct {
	Name  string    `toml:"name" validate:"required,excludesall=.[]"`
	Label string    `toml:"label"`
	Kind  FieldKind `toml:"kind" validate:"omitempty,oneof=text checkbox output"`
	Width int       `toml:"width" validate:"gte=0"`
	// Line is 1 for the first display line, 2 and up for lines only shown
	// when records are folded.
	Line int `toml:"line" validate:"gte=0"`
}

// Input reports whether the field accepts user input.
func (f FieldDef) Input() bool {
	return f.Kind != KindOutput
}

// Format is the subfile record format and its control record.
type Format struct {
	Control     string     `toml:"control" validate:"required"`
	Record      string     `toml:"record" validate:"required,excludesall=.[]"`
	Title       string     `toml:"title"`
	OptionField string     `toml:"option_field"`
	Fields      []FieldDef `toml:"fields" validate:"required,min=1,dive"`
}

// Field returns the definition of the named field.
func (f Format) Field(name string) (FieldDef, bool) {
	for _, def := range f.Fields {
		if strings.EqualFold(def.Name, name) {
			return def, true
		}
	}
	return FieldDef{}, false
}

// Lines returns the number of display lines a folded record needs.
func (f Format) Lines() int {
	lines := 1
	for _, def := range f.Fields {
		if def.Line > lines {
			lines = def.Line
		}
	}
	return lines
}

// Record is one subfile record.
type Record struct {
	RRN    int
	Values map[string]string
}

// Value returns the named field value.
func (r Record) Value(field string) string {
	return r.Values[field]
}

// Checked reports whether a checkbox field is set.
func (r Record) Checked(field string) bool {
	return r.Values[field] == CheckedValue
}

// Window is the range of record numbers a submitted page rendered, both
// ends inclusive.
type Window struct {
	First, Last int
	Valid       bool
}

// ParseWindow reads the "first:last" form posted with a page.
func ParseWindow(s string) Window {
	a, b, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Window{}
	}
	first, err1 := strconv.Atoi(a)
	last, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil || first < 0 || last < first {
		return Window{}
	}
	return Window{First: first, Last: last, Valid: true}
}

// Contains reports whether rrn was rendered.
func (w Window) Contains(rrn int) bool {
	return w.Valid && rrn >= w.First && rrn <= w.Last
}
