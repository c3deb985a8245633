package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/controller"
	"github.com/jnnngs/5250Web/internal/paging"
)

type stepKind int

const (
	stepKey stepKind = iota
	stepSet
	stepCheck
	stepUncheck
	stepFocus
	stepClick
	stepDoubleClick
)

// step is one script instruction:
//
//	PgDn, F8, Enter, PF11, ...  press an AID key
//	set:NAME=VALUE               type into a field
//	check:NAME, uncheck:NAME     set a checkbox
//	focus:NAME                   move the cursor
//	click:SUBFILE:ROW            click a row (0 is the first row shown)
//	dblclick:SUBFILE:ROW         double-click a row
type step struct {
	kind  stepKind
	raw   string
	key   aid.Key
	name  string
	value string
	row   int
}

func (s step) String() string {
	return s.raw
}

func parseScript(items []string) ([]step, error) {
	var steps []step
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		s, err := parseStep(item)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func parseStep(item string) (step, error) {
	verb, arg, hasArg := strings.Cut(item, ":")
	if !hasArg {
		key := aid.Normalize(item)
		if key == aid.Enter && !strings.EqualFold(item, "enter") {
			return step{}, fmt.Errorf("unknown key %q", item)
		}
		return step{kind: stepKey, raw: item, key: key}, nil
	}

	s := step{raw: item}
	switch strings.ToLower(verb) {
	case "set":
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return step{}, fmt.Errorf("%q: want set:NAME=VALUE", item)
		}
		s.kind, s.name, s.value = stepSet, name, value
	case "check", "uncheck", "focus":
		if arg == "" {
			return step{}, fmt.Errorf("%q: field name missing", item)
		}
		s.name = arg
		switch strings.ToLower(verb) {
		case "check":
			s.kind = stepCheck
		case "uncheck":
			s.kind = stepUncheck
		default:
			s.kind = stepFocus
		}
	case "click", "dblclick":
		name, rowText, ok := strings.Cut(arg, ":")
		row, err := strconv.Atoi(rowText)
		if !ok || name == "" || err != nil || row < 0 {
			return step{}, fmt.Errorf("%q: want %s:SUBFILE:ROW", item, strings.ToLower(verb))
		}
		s.kind, s.name, s.row = stepClick, name, row
		if strings.EqualFold(verb, "dblclick") {
			s.kind = stepDoubleClick
		}
	default:
		return step{}, fmt.Errorf("unknown step %q", item)
	}
	return s, nil
}

func (s step) play(ctx context.Context, ctl *controller.Controller) error {
	switch s.kind {
	case stepKey:
		done, ok := ctl.PressKey(ctx, s.key)
		if !ok {
			return controller.ErrBusy
		}
		return wait(ctx, done)
	case stepSet:
		return ctl.SetValue(s.name, s.value)
	case stepCheck:
		return ctl.SetChecked(s.name, true)
	case stepUncheck:
		return ctl.SetChecked(s.name, false)
	case stepFocus:
		return ctl.Focus(s.name)
	case stepClick:
		return ctl.Click(s.name, s.row)
	case stepDoubleClick:
		done, err := ctl.DoubleClick(ctx, s.name, s.row)
		if err != nil {
			return err
		}
		return wait(ctx, done)
	}
	return fmt.Errorf("unknown step kind %d", s.kind)
}

// wait blocks until the key completes. A refused roll has already been
// alerted and does not stop the script.
func wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		if errors.Is(err, paging.ErrInvalidRoll) {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
