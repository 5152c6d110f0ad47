package static

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hairizuan-noorazman/ui-harness/browser"
)

// resolve returns the first node matching sel, or an empty selection.
func resolve(doc *goquery.Document, sel browser.Selector) *goquery.Selection {
	switch sel.Strategy {
	case browser.StrategyRoleLabel:
		return doc.Find("[aria-label]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			if strings.TrimSpace(s.AttrOr("aria-label", "")) != sel.Value {
				return false
			}
			return sel.Role == "" || roleOf(s) == sel.Role
		}).First()
	case browser.StrategyContainsText:
		return deepestContaining(doc, sel.Value)
	default:
		return doc.Find(sel.Value).First()
	}
}

// deepestContaining mirrors cy.contains: the deepest element whose text or
// accessible label contains value.
func deepestContaining(doc *goquery.Document, value string) *goquery.Selection {
	var match *goquery.Selection
	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "script", "style", "noscript":
			return
		}
		if strings.Contains(s.Text(), value) || strings.Contains(s.AttrOr("aria-label", ""), value) {
			if match == nil || match.Contains(s.Get(0)) {
				match = s
			}
		}
	})
	if match == nil {
		return doc.Selection.Slice(0, 0)
	}
	return match
}

func roleOf(s *goquery.Selection) string {
	if role, ok := s.Attr("role"); ok {
		return role
	}
	switch goquery.NodeName(s) {
	case "button":
		return "button"
	case "a":
		return "link"
	case "input", "textarea":
		switch strings.ToLower(s.AttrOr("type", "text")) {
		case "submit", "button":
			return "button"
		case "checkbox":
			return "checkbox"
		default:
			return "textbox"
		}
	}
	return ""
}

func stateOf(node *goquery.Selection) browser.ElementState {
	state := browser.ElementState{
		Found:   true,
		Visible: isVisible(node),
		Enabled: isEnabled(node),
		Text:    strings.TrimSpace(node.Text()),
	}
	switch goquery.NodeName(node) {
	case "textarea":
		state.Value = node.Text()
		state.Editable = !hasAttr(node, "readonly")
	case "input":
		state.Value = node.AttrOr("value", "")
		switch strings.ToLower(node.AttrOr("type", "text")) {
		case "submit", "button", "checkbox", "radio", "hidden", "file", "image", "reset":
		default:
			state.Editable = !hasAttr(node, "readonly")
		}
	default:
		state.Editable = strings.EqualFold(node.AttrOr("contenteditable", "false"), "true")
	}
	state.Editable = state.Editable && state.Enabled
	return state
}

func isVisible(node *goquery.Selection) bool {
	if goquery.NodeName(node) == "input" && strings.EqualFold(node.AttrOr("type", ""), "hidden") {
		return false
	}
	for s := node; s.Length() > 0; s = s.Parent() {
		if hasAttr(s, "hidden") || strings.EqualFold(s.AttrOr("aria-hidden", ""), "true") {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func isEnabled(node *goquery.Selection) bool {
	if hasAttr(node, "disabled") || strings.EqualFold(node.AttrOr("aria-disabled", ""), "true") {
		return false
	}
	return node.ParentsFiltered("fieldset[disabled]").Length() == 0
}

func isSubmit(node *goquery.Selection) bool {
	switch goquery.NodeName(node) {
	case "button":
		return strings.EqualFold(node.AttrOr("type", "submit"), "submit")
	case "input":
		return strings.EqualFold(node.AttrOr("type", ""), "submit")
	}
	return false
}

func hasAttr(s *goquery.Selection, name string) bool {
	_, ok := s.Attr(name)
	return ok
}
