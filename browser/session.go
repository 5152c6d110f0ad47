package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionClosed is returned when a session is used after Close.
	ErrSessionClosed = errors.New("browser session closed")

	// ErrNoDocument is returned when an operation needs a loaded page.
	ErrNoDocument = errors.New("no document loaded")

	// ErrUnsupported is returned when a backend cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by browser backend")

	// ErrUnknownBackend is returned by runtime factories for unknown backend names.
	ErrUnknownBackend = errors.New("unknown browser backend")
)

// Viewport defines the browser viewport size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SessionConfig configures one session. Process-wide settings such as
// launch flags belong to the backend's runtime.
type SessionConfig struct {
	Viewport       Viewport
	RequestTimeout time.Duration
}

// Document is a point-in-time view of the loaded page.
type Document struct {
	URL          string
	BodyAttached bool
	HTML         string
	Text         string
}

// ElementState is what a backend observed about one element.
type ElementState struct {
	Found    bool
	Visible  bool
	Enabled  bool
	Editable bool
	Value    string
	Text     string
}

// Exception is an uncaught error raised by the page.
type Exception struct {
	Text string
	URL  string
	At   time.Time
}

// Session is one exclusively owned browser session. Implementations need
// not be safe for concurrent use beyond Exceptions.
type Session interface {
	ID() string

	// Navigate requests url. It reports only load-started or load-failed.
	Navigate(ctx context.Context, url string) error

	// Snapshot returns the current document.
	Snapshot(ctx context.Context) (Document, error)

	// Element observes the first element matching sel. A missing element
	// is reported as Found=false, not as an error.
	Element(ctx context.Context, sel Selector) (ElementState, error)

	// ClearAndType replaces the element's content with text.
	ClearAndType(ctx context.Context, sel Selector, text string) error

	// Click dispatches a click on the element.
	Click(ctx context.Context, sel Selector) error

	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Exceptions returns uncaught page exceptions seen so far.
	Exceptions() []Exception

	Close() error
}

// Runtime creates sessions.
type Runtime interface {
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
	Close() error
}
