package dom

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jnnngs/5250Web/internal/subfile"
)

const controlSelector = "input, select, textarea"

// Page is a parsed display-file page together with the runtime state a
// browser would keep for it.
type Page struct {
	Doc *goquery.Document
	URL *url.URL

	focus string
}

// Parse reads a page. base is the address it was loaded from and may be nil.
func Parse(r io.Reader, base *url.URL) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &Page{Doc: doc, URL: base}, nil
}

// ParseString is Parse for an in-memory page.
func ParseString(markup string, base *url.URL) (*Page, error) {
	return Parse(strings.NewReader(markup), base)
}

// Form returns the page's form, or the whole document when there is none.
func (p *Page) Form() *goquery.Selection {
	if f := p.Doc.Find("form").First(); f.Length() > 0 {
		return f
	}
	return p.Doc.Selection
}

// Controls returns every named form control in document order.
func (p *Page) Controls() *goquery.Selection {
	return p.Doc.Find(controlSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		return name != ""
	})
}

// Field returns the controls named name. Radio groups yield several.
func (p *Page) Field(name string) *goquery.Selection {
	return fieldIn(p.Doc.Selection, name)
}

func fieldIn(scope *goquery.Selection, name string) *goquery.Selection {
	return scope.Find(controlSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		n, _ := s.Attr("name")
		return n == name
	})
}

// HasField reports whether a control named name is rendered.
func (p *Page) HasField(name string) bool {
	return p.Field(name).Length() > 0
}

// State returns the current state of the named control.
func (p *Page) State(name string) (subfile.InputState, bool) {
	sel := p.Field(name)
	if sel.Length() == 0 {
		return subfile.InputState{}, false
	}
	return readState(sel), true
}

// SetState writes a state onto the named control.
func (p *Page) SetState(name string, st subfile.InputState) bool {
	sel := p.Field(name)
	if sel.Length() == 0 {
		return false
	}
	writeState(sel, st)
	return true
}

// Value returns the form value of name ("on"/"off" for checkboxes).
func (p *Page) Value(name string) (string, bool) {
	st, ok := p.State(name)
	if !ok {
		return "", false
	}
	return st.FormValue(), true
}

// SetHidden sets a hidden field, creating it at the end of the form when the
// page has none.
func (p *Page) SetHidden(name, value string) {
	if sel := p.Field(name); sel.Length() > 0 {
		sel.SetAttr("value", value)
		return
	}
	p.Form().AppendNodes(hiddenInput(name, value, nil))
}

// Focus returns the name of the focused field.
func (p *Page) Focus() string {
	return p.focus
}

// FocusField moves focus to name when such a control exists.
func (p *Page) FocusField(name string) bool {
	if name == "" || !p.HasField(name) {
		return false
	}
	p.focus = name
	return true
}

// Blur clears focus.
func (p *Page) Blur() {
	p.focus = ""
}

// Resolve turns ref into an absolute URL using the page address.
func (p *Page) Resolve(ref string) string {
	if p.URL == nil {
		return ref
	}
	u, err := p.URL.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

// Action returns the resolved form action.
func (p *Page) Action() string {
	action, _ := p.Form().Attr("action")
	return p.Resolve(action)
}

// HTML serialises the document.
func (p *Page) HTML() (string, error) {
	var buf bytes.Buffer
	for _, n := range p.Doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// SetText replaces the children of every selected element with text.
func SetText(sel *goquery.Selection, text string) {
	for _, n := range sel.Nodes {
		removeChildren(n)
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func element(tag atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: tag,
		Data:     tag.String(),
		Attr:     attrs,
	}
}

func hiddenInput(name, value string, extra []html.Attribute) *html.Node {
	attrs := []html.Attribute{
		{Key: "type", Val: "hidden"},
		{Key: "name", Val: name},
		{Key: "value", Val: value},
	}
	return element(atom.Input, append(attrs, extra...)...)
}
