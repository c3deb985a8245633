package subfile

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// SflRecords describes the known server-side record window of a subfile and
// what the server allows to be done with it.
type SflRecords struct {
	From         int  `json:"from"`
	To           int  `json:"to"`
	PageSize     int  `json:"pageSize"`
	IsLastPage   bool `json:"isLastPage"`
	PgUpEnabled  bool `json:"pgUpEnabled"`
	PgDnEnabled  bool `json:"pgDnEnabled"`
	AllowsAjax   bool `json:"allowsAjax"`
	IsExpandable bool `json:"isExpandable"`
}

// Current points at the window being displayed.
type Current struct {
	TopRrn int `json:"topRrn"`
}

// FoldLines is the number of display lines a record spans when folded. The
// server sends it as a number or a string; it is kept verbatim so a value
// that does not parse can be detected when a fold request is planned.
type FoldLines string

// UnmarshalJSON accepts both 3 and "3".
func (f *FoldLines) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*f = FoldLines(s)
		return nil
	}
	*f = FoldLines(b)
	return nil
}

// Int returns the positive line count, or false when the value is missing or
// malformed.
func (f FoldLines) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FldDrop is the fold/drop toggle state. IsFolded means every record is
// shown on all of its lines; otherwise records are truncated to one line and
// a page holds FoldLinesPerRecord times as many of them.
type FldDrop struct {
	AidKey             string    `json:"aidKey"`
	IsFolded           bool      `json:"isFolded"`
	FoldLinesPerRecord FoldLines `json:"foldLinesPerRecord"`
}

// SflEnd configures the end-of-data cue.
type SflEnd struct {
	ShowSubfileEnd bool   `json:"showSubfileEnd"`
	IsSufileEnd    bool   `json:"isSufileEnd"`
	TextOn         string `json:"textOn"`
	TextOff        string `json:"textOff"`
}

// InputBehaviour configures row click and double-click selection.
type InputBehaviour struct {
	OptionField        string `json:"optionField"`
	ClickSetsOption    string `json:"clickSetsOption"`
	DblClickSetsOption string `json:"dblClickSetsOption"`
	DblClickAidKey     string `json:"dblClickAidKey"`
}

// InitRecords is the sflRecords part of InitData. AllowsAjax is optional in
// the page and defaults to true.
type InitRecords struct {
	From         int   `json:"from" validate:"gte=0"`
	To           int   `json:"to" validate:"gte=0"`
	PageSize     int   `json:"pageSize" validate:"gte=0"`
	IsLastPage   bool  `json:"isLastPage"`
	PgUpEnabled  bool  `json:"pgUpEnabled"`
	PgDnEnabled  bool  `json:"pgDnEnabled"`
	AllowsAjax   *bool `json:"allowsAjax,omitempty"`
	IsExpandable bool  `json:"isExpandable"`
}

// InitData is the per-subfile configuration the server embeds in the page.
type InitData struct {
	Name           string          `json:"name" validate:"required"`
	SflRecords     InitRecords     `json:"sflRecords"`
	FldDrop        FldDrop         `json:"fldDrop"`
	SflEnd         SflEnd          `json:"sflEnd"`
	InputBehaviour InputBehaviour  `json:"inputBehaviour"`
	Menu           json.RawMessage `json:"menu,omitempty"`
}

// DecodeInitData decodes the Base64 JSON carried in a data-sfl-config attribute.
func DecodeInitData(attr string) (InitData, error) {
	var init InitData
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(attr))
	if err != nil {
		return init, fmt.Errorf("decode subfile config: %w", err)
	}
	if err := json.Unmarshal(raw, &init); err != nil {
		return init, fmt.Errorf("parse subfile config: %w", err)
	}
	return init, nil
}

// EncodeInitData is the inverse of DecodeInitData.
func EncodeInitData(init InitData) (string, error) {
	raw, err := json.Marshal(init)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Store is the paging state of one subfile control.
type Store struct {
	Name             string
	SflRecords       SflRecords
	Current          Current
	FldDrop          FldDrop
	SflEnd           SflEnd
	InputBehaviour   InputBehaviour
	Menu             json.RawMessage
	InitialPageState PageSnapshot
	SflEdits         EditSet

	hasEdits bool
}

func newStore(init InitData) *Store {
	ajax := true
	if init.SflRecords.AllowsAjax != nil {
		ajax = *init.SflRecords.AllowsAjax
	}
	s := &Store{
		Name: init.Name,
		SflRecords: SflRecords{
			From:         init.SflRecords.From,
			To:           init.SflRecords.To,
			PageSize:     init.SflRecords.PageSize,
			IsLastPage:   init.SflRecords.IsLastPage,
			PgUpEnabled:  init.SflRecords.PgUpEnabled,
			PgDnEnabled:  init.SflRecords.PgDnEnabled,
			AllowsAjax:   ajax,
			IsExpandable: init.SflRecords.IsExpandable,
		},
		FldDrop:        init.FldDrop,
		SflEnd:         init.SflEnd,
		InputBehaviour: init.InputBehaviour,
		Menu:           init.Menu,
	}
	s.Current.TopRrn = init.SflRecords.From
	return s
}

// IsFoldKey reports whether key toggles fold/drop for this subfile.
func (s *Store) IsFoldKey(key string) bool {
	return s.FldDrop.AidKey != "" && strings.EqualFold(s.FldDrop.AidKey, key)
}

// EffectivePageSize is the number of records a window holds in the current
// fold state.
func (s *Store) EffectivePageSize() int {
	size := s.SflRecords.PageSize
	if s.SflRecords.IsExpandable && !s.FldDrop.IsFolded {
		if lines, ok := s.FldDrop.FoldLinesPerRecord.Int(); ok {
			size *= lines
		}
	}
	return size
}

// WidenRange grows the known record range to include [from, to]. The range
// never shrinks.
func (s *Store) WidenRange(from, to int) {
	if from < s.SflRecords.From {
		s.SflRecords.From = from
	}
	if to > s.SflRecords.To {
		s.SflRecords.To = to
	}
}

// RecordEdits folds a window delta into the accumulated edits. The first
// call seeds SflEdits directly.
func (s *Store) RecordEdits(delta EditSet) {
	if !s.hasEdits {
		s.SflEdits = delta.Clone()
		if s.SflEdits == nil {
			s.SflEdits = EditSet{}
		}
		s.hasEdits = true
		return
	}
	s.SflEdits = MergeDelta(s.SflEdits, delta)
}
