package dom

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jnnngs/5250Web/internal/subfile"
)

// ApplyEdits writes recorded states onto the fields rendered in the
// container and returns how many fields it touched. Edits for records
// outside the window are left alone.
func ApplyEdits(c RowContainer, edits subfile.EditSet) int {
	applied := 0
	for _, row := range edits {
		for _, name := range row.State.Names() {
			sel := fieldIn(c.Selection(), name)
			if sel.Length() == 0 {
				continue
			}
			writeState(sel, row.State[name])
			applied++
		}
	}
	return applied
}

// SynthesizeOffPage makes edits of records that are not rendered part of the
// next form submission. Inputs synthesized by an earlier call for the same
// subfile are removed first. Each off-page field becomes a hidden input
// (checkboxes as "on"/"off"), accompanied by the row's hidden fields unless
// those are rendered already. The inputs go under the subfile's control
// element, or at the end of the form when the control is not inside it. It
// returns the number of edited fields added.
func SynthesizeOffPage(p *Page, ctl string, edits subfile.EditSet) int {
	RemoveOffPage(p, ctl)
	form := p.Form()
	if control := controlIn(form, ctl); control.Length() > 0 {
		form = control
	}
	mark := []html.Attribute{{Key: OffPageAttr, Val: ctl}}
	added := 0
	for _, row := range edits {
		rowAdded := false
		for _, name := range row.State.Names() {
			if p.HasField(name) {
				continue
			}
			form.AppendNodes(hiddenInput(name, row.State[name].FormValue(), mark))
			added++
			rowAdded = true
		}
		if !rowAdded {
			continue
		}
		for _, name := range row.HiddenState.Names() {
			if p.HasField(name) {
				continue
			}
			form.AppendNodes(hiddenInput(name, row.HiddenState[name].Value, mark))
		}
	}
	return added
}

func controlIn(scope *goquery.Selection, ctl string) *goquery.Selection {
	return scope.Find("[" + CtlAttr + "]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr(CtlAttr, "") == ctl
	}).First()
}

// RemoveOffPage drops the inputs SynthesizeOffPage added for ctl.
func RemoveOffPage(p *Page, ctl string) {
	p.Doc.Find("[" + OffPageAttr + "]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr(OffPageAttr, "") == ctl
	}).Remove()
}
