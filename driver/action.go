package driver

import (
	"errors"
	"fmt"
	"time"

	"github.com/hairizuan-noorazman/ui-harness/browser"
)

var (
	// ErrUnknownKind is returned for an action kind the driver cannot execute.
	ErrUnknownKind = errors.New("unknown action kind")

	// ErrMissingTarget is returned when an action that needs a selector has none.
	ErrMissingTarget = errors.New("action target is required")

	// ErrMissingPayload is returned when an action that needs a payload has none.
	ErrMissingPayload = errors.New("action payload is required")

	// ErrNoReadiness is returned for wait-ready when the driver has no detector.
	ErrNoReadiness = errors.New("no readiness detector configured")
)

// Kind is the type of an action.
type Kind string

const (
	KindNavigate          Kind = "navigate"
	KindType              Kind = "type"
	KindClick             Kind = "click"
	KindAssertVisible     Kind = "assert-visible"
	KindAssertText        Kind = "assert-text"
	KindAssertExists      Kind = "assert-exists"
	KindAssertURLContains Kind = "assert-url-contains"
	KindAssertURLExcludes Kind = "assert-url-excludes"
	KindWaitReady         Kind = "wait-ready"
)

var kinds = map[Kind]struct {
	target  bool
	payload bool
}{
	KindNavigate:          {payload: true},
	KindType:              {target: true},
	KindClick:             {target: true},
	KindAssertVisible:     {target: true},
	KindAssertText:        {target: true, payload: true},
	KindAssertExists:      {target: true},
	KindAssertURLContains: {payload: true},
	KindAssertURLExcludes: {payload: true},
	KindWaitReady:         {},
}

// IsValid checks if the kind is known.
func (k Kind) IsValid() bool {
	_, ok := kinds[k]
	return ok
}

// Action is a stateless description of one user-intent step.
type Action struct {
	Kind    Kind
	Target  *browser.Selector
	Payload string
	// Timeout overrides the environment's short budget when positive.
	Timeout time.Duration
}

// Validate checks the action has what its kind needs. Typing an empty
// string is allowed and clears the field.
func (a Action) Validate() error {
	req, ok := kinds[a.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	if req.target {
		if a.Target == nil {
			return fmt.Errorf("%w for %s", ErrMissingTarget, a.Kind)
		}
		if err := a.Target.Validate(); err != nil {
			return err
		}
	}
	if req.payload && a.Payload == "" {
		return fmt.Errorf("%w for %s", ErrMissingPayload, a.Kind)
	}
	return nil
}

// String describes the action for logs and reports. Typed text is omitted.
func (a Action) String() string {
	switch {
	case a.Target != nil && a.Kind == KindAssertText:
		return fmt.Sprintf("%s %s %q", a.Kind, a.Target, a.Payload)
	case a.Target != nil:
		return fmt.Sprintf("%s %s", a.Kind, a.Target)
	case a.Payload != "":
		return fmt.Sprintf("%s %s", a.Kind, a.Payload)
	default:
		return string(a.Kind)
	}
}

// Navigate returns a navigate action.
func Navigate(url string) Action {
	return Action{Kind: KindNavigate, Payload: url}
}

// Type returns a type action.
func Type(sel browser.Selector, text string) Action {
	return Action{Kind: KindType, Target: &sel, Payload: text}
}

// Click returns a click action.
func Click(sel browser.Selector) Action {
	return Action{Kind: KindClick, Target: &sel}
}

// AssertVisible returns an assert-visible action.
func AssertVisible(sel browser.Selector) Action {
	return Action{Kind: KindAssertVisible, Target: &sel}
}

// AssertText returns an assert-text action.
func AssertText(sel browser.Selector, expected string) Action {
	return Action{Kind: KindAssertText, Target: &sel, Payload: expected}
}

// AssertExists returns an assert-exists action.
func AssertExists(sel browser.Selector) Action {
	return Action{Kind: KindAssertExists, Target: &sel}
}

// AssertURLContains returns an assert-url-contains action.
func AssertURLContains(fragment string) Action {
	return Action{Kind: KindAssertURLContains, Payload: fragment}
}

// AssertURLExcludes returns an assert-url-excludes action.
func AssertURLExcludes(fragment string) Action {
	return Action{Kind: KindAssertURLExcludes, Payload: fragment}
}

// WaitReady returns a wait-ready action.
func WaitReady() Action {
	return Action{Kind: KindWaitReady}
}
