package controller

import (
	"context"
	"log"
	"strconv"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/dom"
	"github.com/jnnngs/5250Web/internal/subfile"
)

// PrepareSubmit reconciles every subfile into the form: edits still on the
// page are folded into the accumulated set, edits of rows that are not
// rendered become hidden inputs, and the feedback fields are filled in.
func (c *Controller) PrepareSubmit(key aid.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepareSubmitLocked(key)
}

func (c *Controller) prepareSubmitLocked(key aid.Key) {
	for _, name := range c.registry.Names() {
		b := c.bindings[name]
		b.store.RecordEdits(subfile.ComputeDelta(b.store.InitialPageState, dom.Capture(b.rows)))
		b.store.InitialPageState = dom.Capture(b.rows)
		if n := dom.SynthesizeOffPage(c.page, name, b.store.SflEdits); n > 0 {
			log.Printf("controller: %s carries %d off-page edits", name, n)
		}
		window := ""
		if first, last, ok := b.rows.FindRowRange(); ok {
			window = strconv.Itoa(first) + ":" + strconv.Itoa(last)
		}
		c.page.SetHidden(FieldWindowPrefix+name, window)
	}

	c.page.SetHidden(FieldAidKey, string(key))
	cursor := c.page.Focus()
	c.page.SetHidden(FieldCursorField, cursor)
	rrn := ""
	if _, _, n, ok := subfile.ParseFieldName(cursor); ok {
		rrn = strconv.Itoa(n)
	}
	c.page.SetHidden(FieldCursorRRN, rrn)
	c.page.SetHidden(FieldTopRRN, strconv.Itoa(c.registry.MinRRN()))
}

// Submit performs a full postback for key and binds the reply page. The
// registry of the old page is discarded.
func (c *Controller) Submit(ctx context.Context, key aid.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspendAsyncPost {
		return ErrBusy
	}
	c.suspendAsyncPost = true
	defer func() { c.suspendAsyncPost = false }()
	return c.submitLocked(ctx, key)
}

func (c *Controller) submitLocked(ctx context.Context, key aid.Key) error {
	c.prepareSubmitLocked(key)
	next, err := dom.Submit(ctx, c.httpClient, c.page)
	if err != nil {
		log.Printf("controller: submit %s failed: %v", key, err)
		c.alerter.Alert("The request could not be sent. Please try again.")
		return err
	}
	if err := c.bind(next); err != nil {
		log.Printf("controller: reply page for %s: %v", key, err)
		return err
	}
	return nil
}
