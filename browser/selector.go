package browser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSelector is returned when a selector has no value or an unknown strategy.
var ErrInvalidSelector = errors.New("invalid selector")

// Strategy tells a backend how to resolve a selector.
type Strategy string

const (
	// StrategyContainsText matches the deepest element whose text (or accessible
	// label, for semantics-layer nodes) contains the value, like cy.contains.
	StrategyContainsText Strategy = "contains-text"

	// StrategyAttributeMatch treats the value as a CSS selector.
	StrategyAttributeMatch Strategy = "attribute-match"

	// StrategyRoleLabel matches an element by its accessible label, and by role when one is set.
	StrategyRoleLabel Strategy = "role-label"
)

// IsValid checks if the strategy is known.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyContainsText, StrategyAttributeMatch, StrategyRoleLabel:
		return true
	default:
		return false
	}
}

var prefixes = map[string]Strategy{
	"text=":  StrategyContainsText,
	"css=":   StrategyAttributeMatch,
	"label=": StrategyRoleLabel,
}

// Selector is an immutable element locator.
type Selector struct {
	Strategy Strategy `json:"strategy" yaml:"strategy"`
	Value    string   `json:"value" yaml:"value"`
	Role     string   `json:"role,omitempty" yaml:"role,omitempty"`
}

// CSS returns an attribute-match selector.
func CSS(value string) Selector {
	return Selector{Strategy: StrategyAttributeMatch, Value: value}
}

// Text returns a contains-text selector.
func Text(value string) Selector {
	return Selector{Strategy: StrategyContainsText, Value: value}
}

// Label returns a role-label selector. role may be empty.
func Label(value, role string) Selector {
	return Selector{Strategy: StrategyRoleLabel, Value: value, Role: role}
}

// ParseSelector parses "text=...", "css=...", "label=..." or
// "role=ROLE:LABEL" forms. A value with no recognised prefix is a CSS selector.
func ParseSelector(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "role="); ok {
		role, label, found := strings.Cut(rest, ":")
		if !found || strings.TrimSpace(role) == "" {
			return Selector{}, fmt.Errorf("%w: %q must be role=ROLE:LABEL", ErrInvalidSelector, raw)
		}
		sel := Label(label, strings.TrimSpace(role))
		return sel, sel.Validate()
	}
	for prefix, strategy := range prefixes {
		if strings.HasPrefix(raw, prefix) {
			sel := Selector{Strategy: strategy, Value: strings.TrimPrefix(raw, prefix)}
			return sel, sel.Validate()
		}
	}
	sel := CSS(raw)
	return sel, sel.Validate()
}

// Validate checks the selector has a value and a known strategy.
func (s Selector) Validate() error {
	if strings.TrimSpace(s.Value) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidSelector)
	}
	if !s.Strategy.IsValid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidSelector, s.Strategy)
	}
	return nil
}

// String returns the canonical prefixed form.
func (s Selector) String() string {
	switch s.Strategy {
	case StrategyContainsText:
		return "text=" + s.Value
	case StrategyRoleLabel:
		if s.Role != "" {
			return fmt.Sprintf("role=%s:%s", s.Role, s.Value)
		}
		return "label=" + s.Value
	default:
		return "css=" + s.Value
	}
}
