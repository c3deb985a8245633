package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/dom"
	"github.com/jnnngs/5250Web/internal/host"
	"github.com/jnnngs/5250Web/internal/subfile"
)

// End-of-data cue texts.
const (
	EndTextOn  = "Bottom"
	EndTextOff = "More..."
)

type HtmlRenderer struct{}

func NewHtmlRenderer() *HtmlRenderer {
	return &HtmlRenderer{}
}

// InitData builds the subfile configuration embedded in the page.
func (r *HtmlRenderer) InitData(p Page) subfile.InitData {
	shown := len(p.Records)
	isLast := p.Top+shown >= p.Total
	ajax := p.AllowsAjax
	lines := p.Format.Lines()

	var init subfile.InitData
	init.Name = p.Format.Control
	init.SflRecords = subfile.InitRecords{
		From:         p.Top,
		To:           p.Top + shown,
		PageSize:     p.PageSize,
		IsLastPage:   isLast,
		PgUpEnabled:  p.Top > 0,
		PgDnEnabled:  !isLast,
		AllowsAjax:   &ajax,
		IsExpandable: lines > 1,
	}
	init.FldDrop = subfile.FldDrop{
		AidKey:             p.FoldKey,
		IsFolded:           p.Rows.Folded,
		FoldLinesPerRecord: subfile.FoldLines(strconv.Itoa(lines)),
	}
	init.SflEnd = subfile.SflEnd{
		ShowSubfileEnd: p.ShowSubfileEnd,
		IsSufileEnd:    isLast,
		TextOn:         EndTextOn,
		TextOff:        EndTextOff,
	}
	if p.Format.OptionField != "" {
		init.InputBehaviour = subfile.InputBehaviour{
			OptionField:        p.Format.OptionField,
			ClickSetsOption:    "",
			DblClickSetsOption: host.OptionDisplay,
			DblClickAidKey:     string(aid.Enter),
		}
	}
	return init
}

func (r *HtmlRenderer) RenderPage(p Page) (string, error) {
	init := r.InitData(p)
	cfg, err := subfile.EncodeInitData(init)
	if err != nil {
		return "", fmt.Errorf("encode subfile config: %w", err)
	}
	ctl := html.EscapeString(p.Format.Control)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(&sb, "<title>%s</title>", html.EscapeString(p.Format.Title))
	if p.StyleURL != "" {
		fmt.Fprintf(&sb, `<link rel="stylesheet" href="%s">`, html.EscapeString(p.StyleURL))
	}
	sb.WriteString("</head><body>\n")
	fmt.Fprintf(&sb, `<h1 class="dds-title">%s</h1>`+"\n", html.EscapeString(p.Format.Title))

	fmt.Fprintf(&sb, `<form id="dds-form" class="dds-form" method="post" action="%s" data-records-url="%s" data-aid-keys="%s">`+"\n",
		html.EscapeString(p.Action), html.EscapeString(p.RecordsURL), p.Keys.String())
	fmt.Fprintf(&sb, `<input type="hidden" name="JobHandle" value="%s">`+"\n", html.EscapeString(p.JobHandle))

	fmt.Fprintf(&sb, `<div class="dds-subfile" data-sfl-ctl="%s" data-sfl-config="%s">`+"\n", ctl, cfg)
	rows := r.RenderRows(p.Format, p.Records, p.Rows)
	switch p.Rows.Kind {
	case dom.GridPanel:
		fmt.Fprintf(&sb, `<div class="dds-grid-panel" data-sfl-rows="%s">%s</div>`+"\n", ctl, rows)
	default:
		sb.WriteString("<table>")
		r.renderHeader(&sb, p.Format, p.Rows.Folded)
		fmt.Fprintf(&sb, `<tbody data-sfl-rows="%s">%s</tbody></table>`+"\n", ctl, rows)
	}
	endText := init.SflEnd.TextOff
	if init.SflEnd.ShowSubfileEnd && init.SflEnd.IsSufileEnd {
		endText = init.SflEnd.TextOn
	}
	fmt.Fprintf(&sb, `<div class="dds-sfl-end" data-sfl-end="%s">%s</div>`+"\n", ctl, html.EscapeString(endText))
	sb.WriteString("</div>\n")

	fmt.Fprintf(&sb, `<p class="dds-message">%s</p>`+"\n", html.EscapeString(p.Message))
	r.renderKeys(&sb, p)
	sb.WriteString("</form>\n</body></html>\n")
	return sb.String(), nil
}

func (r *HtmlRenderer) RenderRows(format host.Format, records []host.Record, rows Rows) string {
	var sb strings.Builder
	for _, rec := range records {
		switch rows.Kind {
		case dom.GridPanel:
			r.renderGridRow(&sb, format, rec, rows.Folded)
		default:
			r.renderTableRow(&sb, format, rec, rows.Folded)
		}
	}
	for i := len(records); i < rows.Pad; i++ {
		if rows.Kind == dom.GridPanel {
			fmt.Fprintf(&sb, `<div class="%s %s"></div>`, dom.GridRowClass, dom.EmptyRowClass)
		} else {
			fmt.Fprintf(&sb, `<tr class="%s"></tr>`, dom.EmptyRowClass)
		}
	}
	return sb.String()
}

func (r *HtmlRenderer) renderHeader(sb *strings.Builder, f host.Format, folded bool) {
	sb.WriteString("<thead><tr><th></th>")
	for _, def := range visibleFields(f, folded) {
		label := def.Label
		if label == "" {
			label = def.Name
		}
		fmt.Fprintf(sb, `<th class="dds-line-%d">%s</th>`, def.Line, html.EscapeString(label))
	}
	sb.WriteString("</tr></thead>")
}

func (r *HtmlRenderer) renderTableRow(sb *strings.Builder, f host.Format, rec host.Record, folded bool) {
	sb.WriteString("<tr><td>")
	r.recordNumber(sb, f, rec)
	sb.WriteString("</td>")
	for _, def := range visibleFields(f, folded) {
		fmt.Fprintf(sb, `<td class="dds-line-%d">`, def.Line)
		r.renderField(sb, f, def, rec)
		sb.WriteString("</td>")
	}
	sb.WriteString("</tr>")
}

func (r *HtmlRenderer) renderGridRow(sb *strings.Builder, f host.Format, rec host.Record, folded bool) {
	fmt.Fprintf(sb, `<div class="%s">`, dom.GridRowClass)
	r.recordNumber(sb, f, rec)
	line := 1
	for _, def := range visibleFields(f, folded) {
		if def.Line != line {
			line = def.Line
			fmt.Fprintf(sb, `<span class="dds-line-break dds-line-%d"></span>`, line)
		}
		fmt.Fprintf(sb, `<span class="dds-line-%d">`, def.Line)
		r.renderField(sb, f, def, rec)
		sb.WriteString("</span>")
	}
	sb.WriteString("</div>")
}

func (r *HtmlRenderer) recordNumber(sb *strings.Builder, f host.Format, rec host.Record) {
	fmt.Fprintf(sb, `<input type="hidden" name="%s" value="%d">`,
		html.EscapeString(subfile.RecordNumberName(f.Record, rec.RRN)), rec.RRN)
}

func (r *HtmlRenderer) renderField(sb *strings.Builder, f host.Format, def host.FieldDef, rec host.Record) {
	name := html.EscapeString(subfile.FieldName(f.Record, def.Name, rec.RRN))
	val := rec.Value(def.Name)
	switch def.Kind {
	case host.KindCheckbox:
		checked := ""
		if rec.Checked(def.Name) {
			checked = " checked"
		}
		fmt.Fprintf(sb, `<input type="checkbox" name="%s"%s>`, name, checked)
	case host.KindOutput:
		fmt.Fprintf(sb, `<span class="dds-output" data-field="%s">%s</span>`, html.EscapeString(def.Name), html.EscapeString(val))
	default:
		width := def.Width
		if width <= 0 {
			width = 10
		}
		fmt.Fprintf(sb, `<input type="text" name="%s" value="%s" size="%d" maxlength="%d" autocomplete="off" spellcheck="false">`,
			name, html.EscapeString(val), width, width)
	}
}

func (r *HtmlRenderer) renderKeys(sb *strings.Builder, p Page) {
	var keys []string
	keys = append(keys, "Enter=Process", "F3=Exit")
	if p.FoldKey != "" && p.Format.Lines() > 1 {
		keys = append(keys, p.FoldKey+"=Fold/Drop")
	}
	keys = append(keys, "PgUp", "PgDn")
	fmt.Fprintf(sb, `<div class="dds-keys">%s</div>`+"\n", html.EscapeString(strings.Join(keys, "  ")))
}

// visibleFields returns the fields shown in the given fold state, in line
// order.
func visibleFields(f host.Format, folded bool) []host.FieldDef {
	var out []host.FieldDef
	for line := 1; line <= f.Lines(); line++ {
		if line > 1 && !folded {
			break
		}
		for _, def := range f.Fields {
			if def.Line == line || (line == 1 && def.Line <= 0) {
				out = append(out, def)
			}
		}
	}
	return out
}
