// Package environment resolves the per-run parameters shared by every
// scenario: base URL, credentials, timeout budgets and readiness markers.
package environment

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	// ErrUnknownProfile is returned when the requested profile is not configured.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrInvalidBaseURL is returned when base_url is missing or not absolute.
	ErrInvalidBaseURL = errors.New("base_url must be an absolute http(s) URL")

	// ErrInvalidMode is returned when mode is neither test nor production.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidTimeouts is returned when a timeout budget is not positive.
	ErrInvalidTimeouts = errors.New("timeouts must be positive")
)

// Mode tells scenarios which UI variant the application serves.
type Mode string

const (
	ModeTest       Mode = "test"
	ModeProduction Mode = "production"
)

// IsValid checks if the mode is valid.
func (m Mode) IsValid() bool {
	return m == ModeTest || m == ModeProduction
}

// Credentials identify the account used by login flows.
type Credentials struct {
	Identifier string
	Secret     string
}

// Timeouts are the wait budgets. Short bounds cheap checks and element
// lookups, Medium bounds framework boot, Long bounds anything waiting on
// network or auth initialization.
type Timeouts struct {
	Short    time.Duration
	Medium   time.Duration
	Long     time.Duration
	Request  time.Duration
	Response time.Duration
	Interval time.Duration
}

// Validate checks that every budget is set and that the poll interval
// fits inside each wait budget.
func (t Timeouts) Validate() error {
	for name, d := range map[string]time.Duration{
		"short":    t.Short,
		"medium":   t.Medium,
		"long":     t.Long,
		"request":  t.Request,
		"response": t.Response,
		"interval": t.Interval,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s is %s", ErrInvalidTimeouts, name, d)
		}
	}
	for _, budget := range []struct {
		name string
		d    time.Duration
	}{{"short", t.Short}, {"medium", t.Medium}, {"long", t.Long}} {
		if t.Interval > budget.d {
			return fmt.Errorf("%w: interval %s exceeds %s %s", ErrInvalidTimeouts, t.Interval, budget.name, budget.d)
		}
	}
	return nil
}

// Readiness configures the markers the readiness chain looks for.
type Readiness struct {
	// FrameworkMarker is a substring expected in the rendered markup.
	FrameworkMarker string
	// SemanticsSelector locates the accessibility bridge of a canvas-rendered UI.
	SemanticsSelector string
	// FirstScreenSelector is optional. When set it must become visible.
	FirstScreenSelector string
	// Grace is an optional bounded pause after every signal succeeded.
	Grace time.Duration
}

// Environment is constructed once per run and treated as read-only.
type Environment struct {
	Name        string
	BaseURL     string
	Mode        Mode
	Credentials Credentials
	Timeouts    Timeouts
	Readiness   Readiness
	Vars        map[string]string
	Emulators   map[string]string

	base *url.URL
}

// Clone returns a deep copy so each scenario owns its snapshot.
func (e *Environment) Clone() *Environment {
	c := *e
	c.Vars = copyMap(e.Vars)
	c.Emulators = copyMap(e.Emulators)
	if e.base != nil {
		u := *e.base
		c.base = &u
	}
	return &c
}

// IsTestMode reports whether the application serves its test-mode UI.
func (e *Environment) IsTestMode() bool {
	return e.Mode == ModeTest
}

// ResolveURL resolves ref against the base URL. Absolute URLs pass through.
func (e *Environment) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	base := e.base
	if base == nil {
		if base, err = parseBaseURL(e.BaseURL); err != nil {
			return "", err
		}
	}
	return base.ResolveReference(u).String(), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return u, nil
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
