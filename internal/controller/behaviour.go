package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/dom"
	"github.com/jnnngs/5250Web/internal/subfile"
)

// Click selects the row at index within the named subfile. When the
// subfile has a click option the option field of that row receives it; the
// cursor moves into the row either way.
func (c *Controller) Click(name string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, row, err := c.rowLocked(name, index)
	if err != nil {
		return err
	}
	c.selectRowLocked(b, row, b.store.InputBehaviour.ClickSetsOption)
	return nil
}

// DoubleClick sets the double-click option on the row and, when the subfile
// names a double-click key, presses it.
func (c *Controller) DoubleClick(ctx context.Context, name string, index int) (<-chan error, error) {
	c.mu.Lock()
	b, row, err := c.rowLocked(name, index)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	ib := b.store.InputBehaviour
	c.selectRowLocked(b, row, ib.DblClickSetsOption)
	c.mu.Unlock()

	if ib.DblClickAidKey == "" {
		done := make(chan error, 1)
		done <- nil
		return done, nil
	}
	done, ok := c.PressKey(ctx, aid.Normalize(ib.DblClickAidKey))
	if !ok {
		return nil, ErrBusy
	}
	return done, nil
}

func (c *Controller) rowLocked(name string, index int) (*binding, *goquery.Selection, error) {
	b, ok := c.bindings[name]
	if !ok {
		return nil, nil, fmt.Errorf("subfile %q not on page", name)
	}
	row := b.rows.SelectRows().Eq(index)
	if row.Length() == 0 {
		return nil, nil, fmt.Errorf("subfile %q has no row %d", name, index)
	}
	return b, row, nil
}

func (c *Controller) selectRowLocked(b *binding, row *goquery.Selection, option string) {
	field := ""
	if opt := b.store.InputBehaviour.OptionField; opt != "" {
		field = optionFieldIn(row, opt)
	}
	if field != "" && option != "" {
		c.page.SetState(field, subfile.TextState(option))
	}
	if field == "" {
		field, _ = dom.FirstInput(row)
	}
	if field != "" {
		c.page.FocusField(field)
	}
}

// optionFieldIn finds the row's option field. opt may be the bare field
// name ("Opt") or the record-qualified one ("Rec.Opt").
func optionFieldIn(row *goquery.Selection, opt string) string {
	found := ""
	row.Find("input, select").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := s.AttrOr("name", "")
		record, field, _, ok := subfile.ParseFieldName(name)
		if ok && (strings.EqualFold(field, opt) || strings.EqualFold(record+"."+field, opt)) {
			found = name
			return false
		}
		return true
	})
	return found
}
