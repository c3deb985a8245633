package chaos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/controller"
	"github.com/jnnngs/5250Web/internal/paging"
	"github.com/jnnngs/5250Web/internal/subfile"
)

// Transition records a state change observed during exploration.
type Transition struct {
	FromHash string   `json:"fromHash"`
	ToHash   string   `json:"toHash"`
	Steps    []string `json:"steps"`
}

// Violation is an edit that did not come back when its row was shown again.
type Violation struct {
	Step  int    `json:"step"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

// Status is a snapshot of the engine's current state.
type Status struct {
	Active      bool      `json:"active"`
	StepsRun    int       `json:"stepsRun"`
	StartedAt   time.Time `json:"startedAt,omitempty"`
	StoppedAt   time.Time `json:"stoppedAt,omitempty"`
	Transitions int       `json:"transitions"`
	Violations  int       `json:"violations"`
	Error       string    `json:"error,omitempty"`
}

// Engine explores a page bound to a controller. Each step optionally types
// a random value into a subfile field and then presses a weighted random
// AID key. Values typed since the last submit must reappear whenever their
// row is rendered again; every miss is recorded as a Violation. The steps
// taken form a script that sflclient can replay.
type Engine struct {
	cfg Config
	ctl *controller.Controller
	rng *rand.Rand

	mu          sync.Mutex
	active      bool
	stepsRun    int
	startedAt   time.Time
	stoppedAt   time.Time
	lastErr     string
	transitions []Transition
	steps       []string
	states      map[string]bool
	keyCounts   map[string]int
	violations  []Violation
	pending     map[string]string
}

// New creates a new Engine for ctl with the given configuration.
func New(ctl *controller.Controller, cfg Config) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		cfg.Seed = seed
	}
	return &Engine{
		cfg: cfg,
		ctl: ctl,
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec
	}
}

// Run explores until the step or time budget is used up, ctx is done or a
// key fails. A refused roll is not a failure.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return fmt.Errorf("chaos exploration is already running")
	}
	e.active = true
	e.startedAt = time.Now()
	e.stoppedAt = time.Time{}
	e.stepsRun = 0
	e.transitions = nil
	e.steps = nil
	e.violations = nil
	e.lastErr = ""
	e.states = map[string]bool{}
	e.keyCounts = map[string]int{}
	e.pending = map[string]string{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.active = false
		e.stoppedAt = time.Now()
		e.mu.Unlock()
	}()

	if e.cfg.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.TimeBudget)
		defer cancel()
	}

	current := e.fingerprint()
	e.mu.Lock()
	e.states[current] = true
	e.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if e.cfg.MaxSteps > 0 && e.Status().StepsRun >= e.cfg.MaxSteps {
			return nil
		}

		batch, err := e.step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.mu.Lock()
			e.lastErr = err.Error()
			e.mu.Unlock()
			return err
		}

		next := e.fingerprint()
		e.mu.Lock()
		e.stepsRun++
		e.steps = append(e.steps, batch...)
		e.states[next] = true
		if next != current {
			e.transitions = append(e.transitions, Transition{FromHash: current, ToHash: next, Steps: batch})
		}
		e.checkPendingLocked()
		e.mu.Unlock()
		current = next

		if e.cfg.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(e.cfg.StepDelay):
			}
		}
	}
}

func (e *Engine) step(ctx context.Context) ([]string, error) {
	var batch []string
	if e.cfg.EditRate > 0 && e.rng.Float64() < e.cfg.EditRate {
		if fields := e.inputFields(); len(fields) > 0 {
			name := fields[e.rng.Intn(len(fields))]
			value := e.generateValue()
			if err := e.ctl.SetValue(name, value); err == nil {
				batch = append(batch, "set:"+name+"="+value)
				e.mu.Lock()
				e.pending[name] = value
				e.mu.Unlock()
			}
		}
	}

	key := aid.Normalize(e.chooseKey())
	done, ok := e.ctl.PressKey(ctx, key)
	if !ok {
		return batch, controller.ErrBusy
	}
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		return batch, ctx.Err()
	}
	batch = append(batch, string(key))

	e.mu.Lock()
	e.keyCounts[string(key)]++
	if err == nil && !key.IsRoll() && !e.isFoldKey(key) {
		// The page was submitted; pending edits now live on the server.
		e.pending = map[string]string{}
	}
	e.mu.Unlock()

	if err != nil && !errors.Is(err, paging.ErrInvalidRoll) {
		return batch, fmt.Errorf("%s: %w", key, err)
	}
	return batch, nil
}

func (e *Engine) isFoldKey(key aid.Key) bool {
	for _, name := range e.ctl.Subfiles() {
		if store, ok := e.ctl.Store(name); ok && store.IsFoldKey(string(key)) {
			return true
		}
	}
	return false
}

// checkPendingLocked compares every rendered field that was typed into
// with the value typed.
func (e *Engine) checkPendingLocked() {
	page := e.ctl.Page()
	names := make([]string, 0, len(e.pending))
	for name := range e.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		got, ok := page.Value(name)
		if !ok {
			continue
		}
		if want := e.pending[name]; got != want {
			e.violations = append(e.violations, Violation{Step: e.stepsRun, Field: name, Want: want, Got: got})
		}
	}
}

// inputFields returns the editable text fields of the rendered subfile rows.
func (e *Engine) inputFields() []string {
	var names []string
	e.ctl.Page().Controls().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "input" {
			return
		}
		if t := strings.ToLower(s.AttrOr("type", "text")); t != "text" {
			return
		}
		if _, ok := s.Attr("disabled"); ok {
			return
		}
		if _, ok := s.Attr("readonly"); ok {
			return
		}
		name := s.AttrOr("name", "")
		if _, _, _, ok := subfile.ParseFieldName(name); ok {
			names = append(names, name)
		}
	})
	return names
}

// Status returns a snapshot of the current engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Status{
		Active:      e.active,
		StepsRun:    e.stepsRun,
		StartedAt:   e.startedAt,
		StoppedAt:   e.stoppedAt,
		Transitions: len(e.transitions),
		Violations:  len(e.violations),
		Error:       e.lastErr,
	}
}

// Script returns the steps taken, in the form sflclient run --keys accepts.
func (e *Engine) Script() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.steps...)
}

// Violations returns the edits that were lost.
func (e *Engine) Violations() []Violation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Violation(nil), e.violations...)
}

// generateValue produces a short random digit string.
func (e *Engine) generateValue() string {
	maxLen := e.cfg.MaxFieldLength
	if maxLen <= 0 {
		maxLen = 5
	}
	const digits = "0123456789"
	b := make([]byte, 1+e.rng.Intn(maxLen))
	for i := range b {
		b[i] = digits[e.rng.Intn(len(digits))]
	}
	return string(b)
}

// chooseKey selects a key name using the configured weights. Names are
// visited in sorted order so a seed reproduces a run.
func (e *Engine) chooseKey() string {
	weights := e.cfg.KeyWeights
	total := 0
	names := make([]string, 0, len(weights))
	for name, w := range weights {
		if w > 0 {
			total += w
			names = append(names, name)
		}
	}
	if total <= 0 {
		return string(aid.Enter)
	}
	sort.Strings(names)

	pick := e.rng.Intn(total)
	cum := 0
	for _, name := range names {
		cum += weights[name]
		if pick < cum {
			return name
		}
	}
	return string(aid.Enter)
}

// fingerprint is a short stable hash of the window position of every
// subfile on the page.
func (e *Engine) fingerprint() string {
	h := sha256.New()
	for _, name := range e.ctl.Subfiles() {
		store, ok := e.ctl.Store(name)
		if !ok {
			continue
		}
		fmt.Fprintf(h, "%s|%d|%t|", name, store.Current.TopRrn, store.FldDrop.IsFolded)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
