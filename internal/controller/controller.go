// Package controller binds subfile paging to a page: it answers AID keys,
// pages subfile windows in place, keeps user edits across window changes and
// reconciles them into the form before a full submit.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/dom"
	"github.com/jnnngs/5250Web/internal/paging"
	"github.com/jnnngs/5250Web/internal/subfile"
)

// Page attributes and feedback fields exchanged with the server.
const (
	AidKeysAttr    = "data-aid-keys"
	RecordsURLAttr = "data-records-url"

	FieldJobHandle   = "JobHandle"
	FieldAidKey      = "__AidKey"
	FieldCursorField = "__CursorField"
	FieldCursorRRN   = "__CursorRRN"
	FieldTopRRN      = "__TopRRN"
	// FieldWindowPrefix + control name carries "first:last" of the rows
	// rendered for that subfile when the form was submitted.
	FieldWindowPrefix = "__SflWindow."
)

// ErrBusy is returned when a key arrives while a paging request is pending.
var ErrBusy = errors.New("request pending")

// Alerter shows a modal message. One message replaces the previous one.
type Alerter interface {
	Alert(message string)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(message string)

// Alert calls f.
func (f AlerterFunc) Alert(message string) { f(message) }

type logAlerter struct{}

func (logAlerter) Alert(message string) {
	log.Printf("Alert: %s", message)
}

// Option configures a Controller.
type Option func(*Controller)

// WithHTTPClient sets the client used for paging and submits.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Controller) { c.httpClient = hc }
}

// WithAlerter sets where user-facing messages go.
func WithAlerter(a Alerter) Option {
	return func(c *Controller) { c.alerter = a }
}

// WithTransforms replaces the transforms run after each window replacement.
func WithTransforms(t ...Transform) Option {
	return func(c *Controller) { c.transforms = t }
}

// WithPagingClient overrides the paging client built from the page.
func WithPagingClient(pc *paging.Client) Option {
	return func(c *Controller) { c.fixedClient = pc }
}

type binding struct {
	store *subfile.Store
	rows  dom.RowContainer
	end   *goquery.Selection
}

// Controller owns one page view and everything scoped to it. All methods
// are safe for concurrent use; at most one paging request or submit is in
// flight at a time.
type Controller struct {
	mu sync.Mutex

	page       *dom.Page
	registry   *subfile.Registry
	bindings   map[string]*binding
	client     *paging.Client
	keys       aid.Bitmap
	transforms []Transform

	httpClient  *http.Client
	alerter     Alerter
	fixedClient *paging.Client

	suspendAsyncPost bool
}

// New binds every subfile control found on page.
func New(page *dom.Page, opts ...Option) (*Controller, error) {
	c := &Controller{
		alerter:    logAlerter{},
		transforms: DefaultTransforms(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if err := c.bind(page); err != nil {
		return nil, err
	}
	return c, nil
}

// bind makes page the current page and rebuilds the page-scoped registry.
func (c *Controller) bind(page *dom.Page) error {
	registry := subfile.NewRegistry()
	bindings := make(map[string]*binding)

	var bindErr error
	page.Doc.Find("[" + dom.CtlAttr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		ctl := s.AttrOr(dom.CtlAttr, "")
		init, err := subfile.DecodeInitData(s.AttrOr(dom.ConfigAttr, ""))
		if err != nil {
			bindErr = fmt.Errorf("subfile %q: %w", ctl, err)
			return false
		}
		if init.Name == "" {
			init.Name = ctl
		}
		store, err := registry.Register(init)
		if err != nil {
			bindErr = err
			return false
		}
		rows, err := dom.BindRows(page, store.Name)
		if err != nil {
			bindErr = err
			return false
		}
		for _, t := range c.transforms {
			t.Apply(rows, store)
		}
		store.InitialPageState = dom.Capture(rows)
		bindings[store.Name] = &binding{store: store, rows: rows, end: endCue(page, store.Name)}
		return true
	})
	if bindErr != nil {
		return bindErr
	}

	var keys aid.Bitmap
	if hex := strings.TrimSpace(page.Form().AttrOr(AidKeysAttr, "")); hex != "" {
		b, err := aid.ParseBitmap(hex)
		if err != nil {
			log.Printf("Warning: ignoring malformed %s: %v", AidKeysAttr, err)
		} else {
			keys = b
		}
	}

	client := c.fixedClient
	if client == nil {
		endpoint := page.Form().AttrOr(RecordsURLAttr, "")
		if endpoint != "" {
			handle, _ := page.Value(FieldJobHandle)
			client = paging.NewClient(page.Resolve(endpoint), handle, c.httpClient)
		}
	}

	c.page = page
	c.registry = registry
	c.bindings = bindings
	c.keys = keys
	c.client = client
	for _, b := range bindings {
		updateEndCue(b)
	}
	return nil
}

func endCue(page *dom.Page, name string) *goquery.Selection {
	return page.Doc.Find("[" + dom.EndAttr + "]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr(dom.EndAttr, "") == name
	})
}

// Page returns the current page.
func (c *Controller) Page() *dom.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Store returns the paging state of the named subfile.
func (c *Controller) Store(name string) (*subfile.Store, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Get(name)
}

// Subfiles returns the subfile names in page order.
func (c *Controller) Subfiles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Names()
}

// Pending reports whether a paging request or submit is in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspendAsyncPost
}

// SetValue types value into the named field.
func (c *Controller) SetValue(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.page.SetState(name, subfile.TextState(value)) {
		return fmt.Errorf("field %q not found", name)
	}
	return nil
}

// SetChecked sets the checked state of the named checkbox.
func (c *Controller) SetChecked(name string, checked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.page.SetState(name, subfile.CheckboxState(checked)) {
		return fmt.Errorf("field %q not found", name)
	}
	return nil
}

// Focus moves the cursor to the named field.
func (c *Controller) Focus(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.page.FocusField(name) {
		return fmt.Errorf("field %q not found", name)
	}
	return nil
}

// PressKey handles an AID key. Roll keys and the fold key of the subfile
// holding focus (or of the first subfile) page that subfile in place; every
// other key submits the form. The returned channel receives the outcome
// once. When a request is already pending the key is dropped and PressKey
// returns false.
func (c *Controller) PressKey(ctx context.Context, key aid.Key) (<-chan error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspendAsyncPost {
		return nil, false
	}

	done := make(chan error, 1)
	b := c.targetLocked()
	if b != nil && c.client != nil && b.store.SflRecords.AllowsAjax &&
		(key.IsRoll() || b.store.IsFoldKey(string(key))) {
		results, err := c.client.RequestPage(ctx, key, b.store)
		switch {
		case err == nil:
			c.suspendAsyncPost = true
			go c.await(ctx, key, results, done)
			return done, true
		case errors.Is(err, paging.ErrInvalidRoll):
			c.alerter.Alert(rollMessage(key))
		default:
			log.Printf("controller: %s on %s not sent: %v", key, b.store.Name, err)
		}
		done <- err
		return done, true
	}

	c.suspendAsyncPost = true
	go func() {
		c.mu.Lock()
		err := c.submitLocked(ctx, key)
		c.suspendAsyncPost = false
		c.mu.Unlock()
		done <- err
	}()
	return done, true
}

func (c *Controller) await(ctx context.Context, key aid.Key, results <-chan paging.Result, done chan<- error) {
	res := <-results
	c.mu.Lock()
	err := c.handleResultLocked(ctx, key, res)
	c.suspendAsyncPost = false
	c.mu.Unlock()
	done <- err
}

// targetLocked returns the subfile holding focus, else the first one.
func (c *Controller) targetLocked() *binding {
	if focus := c.page.Focus(); focus != "" {
		for _, name := range c.registry.Names() {
			if b := c.bindings[name]; dom.Contains(b.rows, focus) {
				return b
			}
		}
	}
	first, ok := c.registry.First()
	if !ok {
		return nil
	}
	return c.bindings[first.Name]
}

func rollMessage(key aid.Key) string {
	if key == aid.PgUp {
		return "Roll up not allowed: already at the first record."
	}
	if key == aid.PgDn {
		return "Roll down not allowed: already at the last record."
	}
	return "Roll not allowed."
}
