package sampleapps

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/racingmars/go3270"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/host"
	"github.com/jnnngs/5250Web/internal/paging"
	"github.com/jnnngs/5250Web/internal/subfile"
)

const (
	maxListRows  = 16
	firstListRow = 4
	screenWidth  = 80
)

// listing pages a host's records on a 24x80 terminal.
type listing struct {
	h     host.Host
	store *subfile.Store
	msg   string
}

func newListing(h host.Host, pageSize int) (*listing, error) {
	var init subfile.InitData
	init.Name = h.Format().Control
	init.SflRecords.PageSize = pageSize
	store, err := subfile.NewRegistry().Register(init)
	if err != nil {
		return nil, err
	}
	return &listing{h: h, store: store}, nil
}

// screen builds the current page and the values to show in it.
func (l *listing) screen() (go3270.Screen, map[string]string) {
	f := l.h.Format()
	top := l.store.Current.TopRrn
	records := l.h.Records(top, top+l.store.SflRecords.PageSize)

	scr := go3270.Screen{
		{Row: 0, Col: (screenWidth - len(f.Title)) / 2, Intense: true, Content: f.Title},
		{Row: 2, Col: 0, Content: "Type options, press Enter.  4=Delete  5=Display"},
		{Row: 3, Col: 0, Intense: true, Content: header(f)},
	}
	values := map[string]string{}
	for i, rec := range records {
		row := firstListRow + i
		col := 0
		if f.OptionField != "" {
			name := subfile.FieldName(f.Record, f.OptionField, rec.RRN)
			scr = append(scr,
				go3270.Field{Row: row, Col: 0, Name: name, Write: true, Highlighting: go3270.Underscore},
				go3270.Field{Row: row, Col: 3, Autoskip: true},
			)
			values[name] = rec.Value(f.OptionField)
			col = 4
		}
		scr = append(scr, go3270.Field{Row: row, Col: col, Content: line(f, rec)})
	}

	more := "More..."
	if top+len(records) >= l.h.Len() {
		more = "Bottom"
	}
	scr = append(scr,
		go3270.Field{Row: firstListRow + l.store.SflRecords.PageSize, Col: 72, Content: more},
		go3270.Field{Row: 21, Col: 0, Intense: true, Color: go3270.Red, Name: "errormsg"},
		go3270.Field{Row: 22, Col: 0, Content: "F3=Exit  F7=Backward  F8=Forward"},
	)
	values["errormsg"] = l.msg
	return scr, values
}

// handle processes one response and reports whether the session goes on.
func (l *listing) handle(resp go3270.Response) bool {
	l.msg = ""
	if resp.AID == go3270.AIDPF3 || resp.AID == go3270.AIDClear {
		return resp.AID != go3270.AIDPF3
	}
	key, ok := aid.FromCode(resp.AID)
	if !ok {
		return true
	}
	if key.IsRoll() {
		l.roll(key)
		return true
	}
	if key == aid.Enter {
		values := url.Values{}
		for name, v := range resp.Values {
			if name != "errormsg" {
				values.Set(name, strings.TrimSpace(v))
			}
		}
		if _, err := l.h.Apply(values, host.Window{}); err != nil {
			l.msg = err.Error()
			return true
		}
		l.msg = strings.Join(l.h.ProcessOptions(), "; ")
		if top := l.store.Current.TopRrn; top > 0 && top >= l.h.Len() {
			l.store.Current.TopRrn = max(0, l.h.Len()-l.store.SflRecords.PageSize)
		}
	}
	return true
}

func (l *listing) roll(key aid.Key) {
	req, err := paging.Plan(key, l.store)
	if errors.Is(err, paging.ErrInvalidRoll) {
		l.msg = "Already at the first record."
		return
	}
	if err != nil {
		l.msg = err.Error()
		return
	}
	if req.From >= l.h.Len() {
		l.msg = "Already at the last record."
		return
	}
	l.store.Current.TopRrn = req.From
	l.store.WidenRange(req.From, min(req.To, l.h.Len()))
}

func handleListing(conn net.Conn, h host.Host, pageSize int) {
	defer conn.Close()
	if _, err := go3270.NegotiateTelnet(conn); err != nil {
		return
	}
	l, err := newListing(h, pageSize)
	if err != nil {
		return
	}
	for {
		scr, values := l.screen()
		resp, err := go3270.ShowScreen(scr, values, firstListRow, 0, conn)
		if err != nil {
			return
		}
		if !l.handle(resp) {
			return
		}
	}
}

func header(f host.Format) string {
	var sb strings.Builder
	if f.OptionField != "" {
		sb.WriteString("Opt ")
	}
	for _, def := range f.Fields {
		if def.Name == f.OptionField || def.Line > 1 {
			continue
		}
		label := def.Label
		if label == "" {
			label = def.Name
		}
		fmt.Fprintf(&sb, "%-*s ", columnWidth(def), label)
	}
	return clip(sb.String())
}

func line(f host.Format, rec host.Record) string {
	var sb strings.Builder
	for _, def := range f.Fields {
		if def.Name == f.OptionField || def.Line > 1 {
			continue
		}
		fmt.Fprintf(&sb, "%-*s ", columnWidth(def), rec.Value(def.Name))
	}
	return clip(sb.String())
}

func columnWidth(def host.FieldDef) int {
	w := def.Width
	if w <= 0 {
		w = 4
	}
	if n := len(def.Label); n > w {
		w = n
	}
	return w
}

func clip(s string) string {
	s = strings.TrimRight(s, " ")
	if len(s) > screenWidth-5 {
		s = s[:screenWidth-5]
	}
	return s
}
