// Package scenario defines named action sequences, loads them from YAML
// and runs them fail-fast against a fresh browser session.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hairizuan-noorazman/ui-harness/driver"
)

var (
	// ErrMissingName is returned when a scenario has no name.
	ErrMissingName = errors.New("scenario name is required")

	// ErrMissingPolicy is returned when a scenario does not state its exception policy.
	ErrMissingPolicy = errors.New("exception policy is required (ignore or fail)")

	// ErrInvalidPolicy is returned for an exception policy other than ignore or fail.
	ErrInvalidPolicy = errors.New("invalid exception policy")

	// ErrNoActions is returned when a scenario has no actions.
	ErrNoActions = errors.New("scenario has no actions")
)

// ExceptionPolicy decides what an uncaught page exception does to a scenario.
type ExceptionPolicy string

const (
	// PolicyIgnore logs exceptions and continues.
	PolicyIgnore ExceptionPolicy = "ignore"
	// PolicyFail fails the action during which the exception was observed.
	PolicyFail ExceptionPolicy = "fail"
)

// IsValid checks if the policy is valid.
func (p ExceptionPolicy) IsValid() bool {
	return p == PolicyIgnore || p == PolicyFail
}

// Scenario is a named, ordered list of actions. Entry is loaded and the
// application awaited before the first action; it defaults to "/".
type Scenario struct {
	Name            string
	Description     string
	Entry           string
	ExceptionPolicy ExceptionPolicy
	Tags            []string
	Actions         []driver.Action
}

// Validate checks the scenario and each of its actions.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrMissingName
	}
	if s.ExceptionPolicy == "" {
		return fmt.Errorf("%s: %w", s.Name, ErrMissingPolicy)
	}
	if !s.ExceptionPolicy.IsValid() {
		return fmt.Errorf("%s: %w: %q", s.Name, ErrInvalidPolicy, s.ExceptionPolicy)
	}
	if len(s.Actions) == 0 {
		return fmt.Errorf("%s: %w", s.Name, ErrNoActions)
	}
	for i, a := range s.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s: step %d: %w", s.Name, i+1, err)
		}
	}
	return nil
}

// EntryOrDefault returns the entry path.
func (s Scenario) EntryOrDefault() string {
	if s.Entry == "" {
		return "/"
	}
	return s.Entry
}

// HasTag reports whether the scenario carries tag.
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Filter returns the scenarios whose name matches one of names exactly or
// by suite prefix ("auth_flow" matches "auth_flow/sign-in"). No names
// returns every scenario.
func Filter(scenarios []Scenario, names ...string) []Scenario {
	if len(names) == 0 {
		return scenarios
	}
	var out []Scenario
	for _, s := range scenarios {
		for _, name := range names {
			if s.Name == name || strings.HasPrefix(s.Name, name+"/") {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
