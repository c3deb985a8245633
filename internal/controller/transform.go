package controller

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/jnnngs/5250Web/internal/dom"
	"github.com/jnnngs/5250Web/internal/subfile"
)

// Transform adjusts the row markup after a window has been replaced.
type Transform interface {
	Apply(rows dom.RowContainer, store *subfile.Store)
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(rows dom.RowContainer, store *subfile.Store)

// Apply calls f.
func (f TransformFunc) Apply(rows dom.RowContainer, store *subfile.Store) { f(rows, store) }

// DefaultTransforms returns the transforms a page gets unless told otherwise.
func DefaultTransforms() []Transform {
	return []Transform{
		TransformFunc(RemoveRowGaps),
		TransformFunc(CompleteRows),
		TransformFunc(StripeRows),
	}
}

// CompleteRows pads a short last window with empty rows so the subfile
// keeps its height.
func CompleteRows(rows dom.RowContainer, store *subfile.Store) {
	want := store.EffectivePageSize()
	if have := rows.SelectRows().Length(); have < want {
		rows.AppendEmptyRows(want - have)
	}
}

// RemoveRowGaps drops spacer rows the server emits between records.
func RemoveRowGaps(rows dom.RowContainer, _ *subfile.Store) {
	rows.Selection().Children().Filter("." + dom.RowGapClass).Remove()
}

// StripeRows marks every other row.
func StripeRows(rows dom.RowContainer, _ *subfile.Store) {
	rows.SelectRows().Each(func(i int, row *goquery.Selection) {
		row.RemoveClass("dds-row-odd", "dds-row-even")
		if i%2 == 0 {
			row.AddClass("dds-row-even")
		} else {
			row.AddClass("dds-row-odd")
		}
	})
}
