package dom

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/jnnngs/5250Web/internal/subfile"
)

// Capture records the state of every row in the container, in display order.
// Rows without fields are kept so positions line up with later captures.
func Capture(c RowContainer) subfile.PageSnapshot {
	rows := c.SelectRows()
	snap := make(subfile.PageSnapshot, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		snap = append(snap, captureRow(row))
	})
	return snap
}

func captureRow(row *goquery.Selection) subfile.RowSnapshot {
	rs := subfile.RowSnapshot{
		HiddenState: subfile.FieldStates{},
		State:       subfile.FieldStates{},
	}
	row.Find(controlSelector).Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if name == "" {
			return
		}
		if isHiddenInput(s) {
			rs.HiddenState[name] = subfile.TextState(s.AttrOr("value", ""))
			return
		}
		if _, seen := rs.State[name]; seen {
			return
		}
		rs.State[name] = readState(fieldIn(row, name))
	})
	return rs
}
