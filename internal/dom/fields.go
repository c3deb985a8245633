package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jnnngs/5250Web/internal/subfile"
)

func tagOf(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return s.Nodes[0].Data
}

func inputType(s *goquery.Selection) string {
	if tagOf(s) != "input" {
		return ""
	}
	t, _ := s.Attr("type")
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return "text"
	}
	return t
}

func isHiddenInput(s *goquery.Selection) bool {
	return inputType(s) == "hidden"
}

func isCheckbox(s *goquery.Selection) bool {
	return inputType(s) == "checkbox"
}

func isRadio(s *goquery.Selection) bool {
	return inputType(s) == "radio"
}

func isDisabled(s *goquery.Selection) bool {
	_, ok := s.Attr("disabled")
	return ok
}

// isFocusable reports whether the control can receive keyboard focus.
func isFocusable(s *goquery.Selection) bool {
	if isDisabled(s) || isHiddenInput(s) {
		return false
	}
	switch inputType(s) {
	case "submit", "button", "reset", "image":
		return false
	}
	return true
}

func isChecked(s *goquery.Selection) bool {
	_, ok := s.Attr("checked")
	return ok
}

// readState reads a control, or a radio group, into an InputState.
func readState(sel *goquery.Selection) subfile.InputState {
	first := sel.First()
	switch {
	case isCheckbox(first):
		return subfile.CheckboxState(isChecked(first))
	case isRadio(first):
		value := ""
		sel.EachWithBreak(func(_ int, r *goquery.Selection) bool {
			if isChecked(r) {
				value = r.AttrOr("value", "on")
				return false
			}
			return true
		})
		return subfile.TextState(value)
	case tagOf(first) == "select":
		return subfile.TextState(selectedOption(first))
	case tagOf(first) == "textarea":
		return subfile.TextState(first.Text())
	default:
		return subfile.TextState(first.AttrOr("value", ""))
	}
}

func writeState(sel *goquery.Selection, st subfile.InputState) {
	first := sel.First()
	switch {
	case isCheckbox(first):
		checked := st.Checked
		if !st.IsCheckbox {
			checked = st.Value != "" && st.Value != "off"
		}
		if checked {
			first.SetAttr("checked", "checked")
		} else {
			first.RemoveAttr("checked")
		}
	case isRadio(first):
		sel.Each(func(_ int, r *goquery.Selection) {
			if r.AttrOr("value", "on") == st.Value {
				r.SetAttr("checked", "checked")
			} else {
				r.RemoveAttr("checked")
			}
		})
	case tagOf(first) == "select":
		first.Find("option").Each(func(_ int, o *goquery.Selection) {
			if optionValue(o) == st.Value {
				o.SetAttr("selected", "selected")
			} else {
				o.RemoveAttr("selected")
			}
		})
	case tagOf(first) == "textarea":
		SetText(first, st.Value)
	default:
		first.SetAttr("value", st.FormValue())
	}
}

func optionValue(o *goquery.Selection) string {
	if v, ok := o.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(o.Text())
}

func selectedOption(sel *goquery.Selection) string {
	options := sel.Find("option")
	chosen := options.FilterFunction(func(_ int, o *goquery.Selection) bool {
		_, ok := o.Attr("selected")
		return ok
	}).First()
	if chosen.Length() == 0 {
		chosen = options.First()
	}
	if chosen.Length() == 0 {
		return ""
	}
	return optionValue(chosen)
}

// FirstInput returns the name of the first focusable control in scope.
func FirstInput(scope *goquery.Selection) (string, bool) {
	names := focusableNames(scope)
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// LastInput returns the name of the last focusable control in scope.
func LastInput(scope *goquery.Selection) (string, bool) {
	names := focusableNames(scope)
	if len(names) == 0 {
		return "", false
	}
	return names[len(names)-1], true
}

func focusableNames(scope *goquery.Selection) []string {
	var names []string
	scope.Find(controlSelector).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if name != "" && isFocusable(s) {
			names = append(names, name)
		}
	})
	return names
}
