package dom

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// FormValues collects what a browser would submit for the page's form:
// enabled named controls, checkboxes and radios only when checked.
func (p *Page) FormValues() url.Values {
	values := url.Values{}
	p.Form().Find(controlSelector).Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if name == "" || isDisabled(s) {
			return
		}
		switch inputType(s) {
		case "submit", "button", "reset", "image", "file":
			return
		case "checkbox", "radio":
			if isChecked(s) {
				values.Add(name, s.AttrOr("value", "on"))
			}
			return
		}
		switch tagOf(s) {
		case "select":
			values.Add(name, selectedOption(s))
		case "textarea":
			values.Add(name, s.Text())
		default:
			values.Add(name, s.AttrOr("value", ""))
		}
	})
	return values
}
