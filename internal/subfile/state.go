package subfile

import (
	"regexp"
	"sort"
	"strconv"
)

// InputState is the value of one form field at the moment it was captured.
// Checkbox fields carry Checked, every other field carries Value.
type InputState struct {
	IsCheckbox bool   `json:"isCheckbox"`
	Checked    bool   `json:"checked,omitempty"`
	Value      string `json:"value,omitempty"`
}

// TextState returns the state of a value-carrying field.
func TextState(value string) InputState {
	return InputState{Value: value}
}

// CheckboxState returns the state of a checkbox field.
func CheckboxState(checked bool) InputState {
	return InputState{IsCheckbox: true, Checked: checked}
}

// Equal compares two states the way the diff engine does: checked-state for
// checkboxes, string value otherwise.
func (s InputState) Equal(other InputState) bool {
	if s.IsCheckbox != other.IsCheckbox {
		return false
	}
	if s.IsCheckbox {
		return s.Checked == other.Checked
	}
	return s.Value == other.Value
}

// FormValue is the value the state contributes to a form submission.
func (s InputState) FormValue() string {
	if !s.IsCheckbox {
		return s.Value
	}
	if s.Checked {
		return "on"
	}
	return "off"
}

// FieldStates maps a field name (Record.Field[rrn]) to its state.
type FieldStates map[string]InputState

// Names returns the field names in a stable order.
func (f FieldStates) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f FieldStates) clone() FieldStates {
	if f == nil {
		return FieldStates{}
	}
	out := make(FieldStates, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// RowSnapshot holds the hidden and visible field states of one rendered row.
type RowSnapshot struct {
	HiddenState FieldStates `json:"hiddenState"`
	State       FieldStates `json:"state"`
}

// RecordNumber returns the row's relative record number taken from its
// _RecordNumber hidden field.
func (r RowSnapshot) RecordNumber() (int, bool) {
	for name, st := range r.HiddenState {
		if !IsRecordNumberField(name) {
			continue
		}
		n, err := strconv.Atoi(st.Value)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func (r RowSnapshot) clone() RowSnapshot {
	return RowSnapshot{HiddenState: r.HiddenState.clone(), State: r.State.clone()}
}

// PageSnapshot is the ordered list of rows rendered in a subfile window.
type PageSnapshot []RowSnapshot

// EditSet has the shape of a PageSnapshot but only holds changed rows, and
// within them only the changed fields.
type EditSet []RowSnapshot

// FieldCount returns the number of edited fields across all rows.
func (e EditSet) FieldCount() int {
	n := 0
	for _, row := range e {
		n += len(row.State)
	}
	return n
}

// Lookup returns the recorded state for a field name.
func (e EditSet) Lookup(name string) (InputState, bool) {
	for _, row := range e {
		if st, ok := row.State[name]; ok {
			return st, true
		}
	}
	return InputState{}, false
}

// Clone returns a deep copy.
func (e EditSet) Clone() EditSet {
	if e == nil {
		return nil
	}
	out := make(EditSet, len(e))
	for i, row := range e {
		out[i] = row.clone()
	}
	return out
}

const recordNumberField = "_RecordNumber"

var fieldNamePattern = regexp.MustCompile(`^(.+)\.([^.\[\]]+)\[(\d+)\]$`)

// FieldName builds the Record.Field[rrn] name used for subfile inputs.
func FieldName(record, field string, rrn int) string {
	return record + "." + field + "[" + strconv.Itoa(rrn) + "]"
}

// RecordNumberName is the name of a row's record-number hidden field.
func RecordNumberName(record string, rrn int) string {
	return FieldName(record, recordNumberField, rrn)
}

// ParseFieldName splits Record.Field[rrn] into its parts.
func ParseFieldName(name string) (record, field string, rrn int, ok bool) {
	m := fieldNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", 0, false
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return "", "", 0, false
	}
	return m[1], m[2], n, true
}

// LogicalName strips the [rrn] suffix: Rec.Amt[3] -> Rec.Amt.
func LogicalName(name string) string {
	record, field, _, ok := ParseFieldName(name)
	if !ok {
		return name
	}
	return record + "." + field
}

// IsRecordNumberField reports whether name is a _RecordNumber hidden field.
func IsRecordNumberField(name string) bool {
	_, field, _, ok := ParseFieldName(name)
	return ok && field == recordNumberField
}
