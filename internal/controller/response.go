package controller

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/dom"
	"github.com/jnnngs/5250Web/internal/paging"
	"github.com/jnnngs/5250Web/internal/subfile"
)

var replaceRows = dom.ReplaceRows

// handleResultLocked applies a paging result to the page.
func (c *Controller) handleResultLocked(ctx context.Context, key aid.Key, res paging.Result) error {
	if res.Err != nil {
		log.Printf("controller: %s for %s failed: %v", key, res.Request.RecordName, res.Err)
		return res.Err
	}
	env := res.Envelope
	echo := env.Request
	if echo.RecordName == "" {
		echo = paging.EchoRequest{
			RecordName:      res.Request.RecordName,
			From:            res.Request.From,
			To:              res.Request.To,
			RequestorAidKey: res.Request.RequestorAidKey,
			WantDropped:     res.Request.WantDropped,
		}
	}

	if env.RecordCount <= 0 {
		return c.noRecordsLocked(ctx, key, echo.RecordName)
	}

	b, ok := c.bindings[echo.RecordName]
	if !ok || b.rows.Selection().Length() == 0 {
		log.Printf("controller: dropping response for %q, subfile no longer on page", echo.RecordName)
		return nil
	}
	store := b.store

	// Snapshot before the rows are replaced. The store changes only once the
	// new rows are in place.
	delta := subfile.ComputeDelta(store.InitialPageState, dom.Capture(b.rows))
	oldTop := store.Current.TopRrn
	focus := c.rememberFocusLocked(b, oldTop)

	if err := replaceRows(b.rows, env.HTML); err != nil {
		log.Printf("controller: %v", err)
		return err
	}

	// The known range only widens.
	store.WidenRange(echo.From, echo.From+env.RecordCount)
	store.SflRecords.IsLastPage = env.IsLastPage
	store.SflEnd.IsSufileEnd = env.IsLastPage
	store.Current.TopRrn = echo.From
	if store.IsFoldKey(echo.RequestorAidKey) {
		store.FldDrop.IsFolded = !res.Request.WantDropped
	}
	store.RecordEdits(delta)

	for _, t := range c.transforms {
		t.Apply(b.rows, store)
	}
	dom.ApplyEdits(b.rows, store.SflEdits)
	store.InitialPageState = dom.Capture(b.rows)

	if focus.inside {
		c.restoreFocusLocked(b, focus, aid.Key(echo.RequestorAidKey))
	}
	c.page.SetHidden(FieldTopRRN, strconv.Itoa(c.registry.MinRRN()))
	updateEndCue(b)
	return nil
}

// noRecordsLocked handles an empty result: the key falls through to a full
// submit when the server allows that roll direction, otherwise the user is
// told the roll is not possible.
func (c *Controller) noRecordsLocked(ctx context.Context, key aid.Key, name string) error {
	store, ok := c.registry.Get(name)
	if !ok {
		return nil
	}
	if c.fallbackAllowed(key, store) {
		return c.submitLocked(ctx, key)
	}
	c.alerter.Alert(rollMessage(key))
	return fmt.Errorf("%w: %s on %s", paging.ErrInvalidRoll, key, name)
}

func (c *Controller) fallbackAllowed(key aid.Key, store *subfile.Store) bool {
	var enabled bool
	switch key {
	case aid.PgDn:
		enabled = store.SflRecords.PgDnEnabled
	case aid.PgUp:
		enabled = store.SflRecords.PgUpEnabled
	default:
		return false
	}
	if c.keys != nil {
		enabled = enabled && c.keys.Enabled(key)
	}
	return enabled
}

type focusMark struct {
	inside  bool
	logical string
	offset  int
}

func (c *Controller) rememberFocusLocked(b *binding, oldTop int) focusMark {
	name := c.page.Focus()
	if !dom.Contains(b.rows, name) {
		return focusMark{}
	}
	m := focusMark{inside: true, logical: subfile.LogicalName(name), offset: -1}
	if row, ok := dom.RowOf(b.rows, name); ok {
		if rrn, ok := dom.RowRecordNumber(row); ok {
			m.offset = rrn - oldTop
		}
	}
	return m
}

// restoreFocusLocked puts the cursor back on the same field at the same
// position within the new window. When that field is not rendered focus
// goes to the edge the user rolled towards.
func (c *Controller) restoreFocusLocked(b *binding, m focusMark, key aid.Key) {
	if m.offset >= 0 {
		record, field, _, ok := subfile.ParseFieldName(m.logical + "[0]")
		if ok {
			target := subfile.FieldName(record, field, b.store.Current.TopRrn+m.offset)
			if dom.Contains(b.rows, target) && c.page.FocusField(target) {
				return
			}
		}
	}
	scope := b.rows.Selection()
	var name string
	var ok bool
	if key == aid.PgUp {
		name, ok = dom.LastInput(scope)
	} else {
		name, ok = dom.FirstInput(scope)
	}
	if ok {
		c.page.FocusField(name)
		return
	}
	c.page.Blur()
}

func updateEndCue(b *binding) {
	if b.end == nil || b.end.Length() == 0 {
		return
	}
	cfg := b.store.SflEnd
	text := cfg.TextOff
	if cfg.ShowSubfileEnd && (cfg.IsSufileEnd || b.store.SflRecords.IsLastPage) {
		text = cfg.TextOn
	}
	dom.SetText(b.end, text)
}
