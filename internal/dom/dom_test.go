package dom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jnnngs/5250Web/internal/subfile"
)

const tablePage = `<!DOCTYPE html><html><body>
<form method="post" action="/submit">
<input type="hidden" name="JobHandle" value="j1">
<input type="text" name="CUST" value="ACME">
<table><tbody data-sfl-rows="SFLCTL">
<tr>
 <td><input type="hidden" name="Rec._RecordNumber[2]" value="2"></td>
 <td><input type="text" name="Rec.Opt[2]" value=""></td>
 <td><input type="text" name="Rec.Amt[2]" value="10"></td>
 <td><input type="checkbox" name="Rec.Sel[2]"></td>
</tr>
<tr>
 <td><input type="hidden" name="Rec._RecordNumber[3]" value="3"></td>
 <td><input type="text" name="Rec.Opt[3]" value=""></td>
 <td><input type="text" name="Rec.Amt[3]" value="100"></td>
 <td><input type="checkbox" name="Rec.Sel[3]" checked></td>
</tr>
</tbody></table>
<select name="MODE"><option value="A">A</option><option value="B" selected>B</option></select>
<input type="submit" name="go" value="Go">
</form></body></html>`

const gridPage = `<html><body><form action="/submit">
<div class="dds-grid-panel" data-sfl-rows="GRID">
 <div class="dds-grid-row"><input type="hidden" name="G._RecordNumber[7]" value="7"><input name="G.Txt[7]" value="x"></div>
 <div class="dds-grid-row"><input type="hidden" name="G._RecordNumber[8]" value="8"><input name="G.Txt[8]" value="y"></div>
</div></form></body></html>`

func mustPage(t *testing.T, markup string) *Page {
	t.Helper()
	p, err := ParseString(markup, nil)
	require.NoError(t, err)
	return p
}

func TestBindRows_Variants(t *testing.T) {
	p := mustPage(t, tablePage)
	rows, err := BindRows(p, "SFLCTL")
	require.NoError(t, err)
	require.Equal(t, Table, rows.Kind())
	require.Equal(t, 2, rows.SelectRows().Length())

	first, last, ok := rows.FindRowRange()
	require.True(t, ok)
	require.Equal(t, 2, first)
	require.Equal(t, 3, last)

	g := mustPage(t, gridPage)
	grid, err := BindRows(g, "GRID")
	require.NoError(t, err)
	require.Equal(t, GridPanel, grid.Kind())
	first, last, ok = grid.FindRowRange()
	require.True(t, ok)
	require.Equal(t, [2]int{7, 8}, [2]int{first, last})

	_, err = BindRows(p, "MISSING")
	require.Error(t, err)
}

func TestAppendEmptyRows(t *testing.T) {
	for _, markup := range []string{tablePage, gridPage} {
		p := mustPage(t, markup)
		name := "SFLCTL"
		if markup == gridPage {
			name = "GRID"
		}
		rows, err := BindRows(p, name)
		require.NoError(t, err)
		rows.AppendEmptyRows(3)
		require.Equal(t, 5, rows.SelectRows().Length())
		require.Equal(t, 3, rows.SelectRows().Filter("."+EmptyRowClass).Length())
		_, last, _ := rows.FindRowRange()
		require.Equal(t, map[string]int{"SFLCTL": 3, "GRID": 8}[name], last)
	}
}

func TestPage_StateRoundTrip(t *testing.T) {
	p := mustPage(t, tablePage)

	st, ok := p.State("Rec.Sel[3]")
	require.True(t, ok)
	require.Equal(t, subfile.CheckboxState(true), st)

	v, _ := p.Value("Rec.Sel[2]")
	require.Equal(t, "off", v)
	v, _ = p.Value("MODE")
	require.Equal(t, "B", v)

	require.True(t, p.SetState("Rec.Amt[3]", subfile.TextState("150")))
	require.True(t, p.SetState("Rec.Sel[3]", subfile.CheckboxState(false)))
	require.True(t, p.SetState("MODE", subfile.TextState("A")))
	require.False(t, p.SetState("Rec.Amt[99]", subfile.TextState("1")))

	v, _ = p.Value("Rec.Amt[3]")
	require.Equal(t, "150", v)
	v, _ = p.Value("Rec.Sel[3]")
	require.Equal(t, "off", v)
	v, _ = p.Value("MODE")
	require.Equal(t, "A", v)
}

func TestCapture(t *testing.T) {
	p := mustPage(t, tablePage)
	rows, err := BindRows(p, "SFLCTL")
	require.NoError(t, err)

	snap := Capture(rows)
	require.Len(t, snap, 2)
	rrn, ok := snap[1].RecordNumber()
	require.True(t, ok)
	require.Equal(t, 3, rrn)
	require.Equal(t, subfile.TextState("100"), snap[1].State["Rec.Amt[3]"])
	require.Equal(t, subfile.CheckboxState(true), snap[1].State["Rec.Sel[3]"])
	require.NotContains(t, snap[1].State, "Rec._RecordNumber[3]")
	require.NotContains(t, snap[0].State, "CUST")
}

func TestCaptureDeltaApply(t *testing.T) {
	p := mustPage(t, tablePage)
	rows, _ := BindRows(p, "SFLCTL")
	before := Capture(rows)

	p.SetState("Rec.Amt[3]", subfile.TextState("150"))
	delta := subfile.ComputeDelta(before, Capture(rows))
	require.Len(t, delta, 1)
	require.Equal(t, subfile.TextState("150"), delta[0].State["Rec.Amt[3]"])

	fresh := mustPage(t, tablePage)
	freshRows, _ := BindRows(fresh, "SFLCTL")
	require.Equal(t, 1, ApplyEdits(freshRows, delta))
	v, _ := fresh.Value("Rec.Amt[3]")
	require.Equal(t, "150", v)
}

func TestSynthesizeOffPage(t *testing.T) {
	p := mustPage(t, tablePage)
	edits := subfile.EditSet{
		{
			HiddenState: subfile.FieldStates{"Rec._RecordNumber[12]": subfile.TextState("12")},
			State: subfile.FieldStates{
				"Rec.Amt[12]": subfile.TextState("5"),
				"Rec.Sel[12]": subfile.CheckboxState(false),
			},
		},
		{
			HiddenState: subfile.FieldStates{"Rec._RecordNumber[3]": subfile.TextState("3")},
			State:       subfile.FieldStates{"Rec.Amt[3]": subfile.TextState("150")},
		},
	}

	require.Equal(t, 2, SynthesizeOffPage(p, "SFLCTL", edits))
	// A second call replaces rather than duplicates.
	require.Equal(t, 2, SynthesizeOffPage(p, "SFLCTL", edits))

	values := p.FormValues()
	require.Equal(t, []string{"5"}, values["Rec.Amt[12]"])
	require.Equal(t, []string{"off"}, values["Rec.Sel[12]"])
	require.Equal(t, []string{"12"}, values["Rec._RecordNumber[12]"])
	require.Equal(t, []string{"100"}, values["Rec.Amt[3]"], "rendered fields are not duplicated")

	RemoveOffPage(p, "SFLCTL")
	require.False(t, p.HasField("Rec.Amt[12]"))
}

func TestSynthesizeOffPage_UnderControl(t *testing.T) {
	p := mustPage(t, `<html><body><form action="/submit">
<input type="hidden" name="JobHandle" value="j1">
<div data-sfl-ctl="GRID">
<div class="dds-grid-panel" data-sfl-rows="GRID">
 <div class="dds-grid-row"><input type="hidden" name="G._RecordNumber[7]" value="7"><input name="G.Txt[7]" value="x"></div>
</div>
</div>
<input type="text" name="AFTER" value="">
</form></body></html>`)
	edits := subfile.EditSet{{
		HiddenState: subfile.FieldStates{"G._RecordNumber[30]": subfile.TextState("30")},
		State:       subfile.FieldStates{"G.Txt[30]": subfile.TextState("z")},
	}}

	require.Equal(t, 1, SynthesizeOffPage(p, "GRID", edits))
	control := p.Doc.Find(`[data-sfl-ctl="GRID"]`)
	require.Equal(t, 2, control.ChildrenFiltered("input[data-sfl-offpage]").Length())

	rows, err := BindRows(p, "GRID")
	require.NoError(t, err)
	require.Equal(t, 1, rows.SelectRows().Length(), "rows are left alone")
	require.Equal(t, "z", p.FormValues().Get("G.Txt[30]"))
}

func TestFormValues(t *testing.T) {
	p := mustPage(t, tablePage)
	values := p.FormValues()
	require.Equal(t, "j1", values.Get("JobHandle"))
	require.Equal(t, "on", values.Get("Rec.Sel[3]"))
	require.NotContains(t, values, "Rec.Sel[2]")
	require.NotContains(t, values, "go")
	require.Equal(t, "B", values.Get("MODE"))
}

func TestReplaceRows(t *testing.T) {
	p := mustPage(t, tablePage)
	rows, _ := BindRows(p, "SFLCTL")
	err := ReplaceRows(rows, `<tr><td><input type="hidden" name="Rec._RecordNumber[4]" value="4"><input name="Rec.Amt[4]" value="40"></td></tr>`)
	require.NoError(t, err)

	require.Equal(t, 1, rows.SelectRows().Length())
	require.False(t, p.HasField("Rec.Amt[3]"))
	v, ok := p.Value("Rec.Amt[4]")
	require.True(t, ok)
	require.Equal(t, "40", v)

	first, _, _ := rows.FindRowRange()
	require.Equal(t, 4, first)
}

func TestFocusHelpers(t *testing.T) {
	p := mustPage(t, tablePage)
	rows, _ := BindRows(p, "SFLCTL")

	name, ok := FirstInput(rows.Selection())
	require.True(t, ok)
	require.Equal(t, "Rec.Opt[2]", name)
	name, _ = LastInput(rows.Selection())
	require.Equal(t, "Rec.Sel[3]", name)

	require.True(t, p.FocusField("Rec.Amt[3]"))
	require.True(t, Contains(rows, p.Focus()))
	row, ok := RowOf(rows, p.Focus())
	require.True(t, ok)
	rrn, _ := RowRecordNumber(row)
	require.Equal(t, 3, rrn)

	require.False(t, p.FocusField("nope"))
	require.Equal(t, "Rec.Amt[3]", p.Focus())
}

func TestLoadAndSubmit(t *testing.T) {
	var gotAmt, gotOrigin string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tablePage))
	})
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotAmt = r.PostForm.Get("Rec.Amt[3]")
		gotOrigin = r.Header.Get("Origin")
		w.Write([]byte(`<html><body><p id="done">ok</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, err := Load(context.Background(), srv.Client(), srv.URL+"/")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(p.Action(), "/submit"))

	p.SetState("Rec.Amt[3]", subfile.TextState("150"))
	next, err := Submit(context.Background(), srv.Client(), p)
	require.NoError(t, err)
	require.Equal(t, "150", gotAmt)
	require.Equal(t, srv.URL, gotOrigin)
	require.Equal(t, "ok", next.Doc.Find("#done").Text())
}
