// Package browsertest provides a scriptable in-memory browser for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/ui-harness/browser"
)

// Session is a fake browser.Session. Elements and document state can be
// scheduled to appear after a delay measured from session creation.
type Session struct {
	mu        sync.Mutex
	id        string
	created   time.Time
	closed    bool
	url       string
	doc       scheduled[browser.Document]
	elements  map[string][]scheduled[browser.ElementState]
	onClick   map[string]func(s *Session)
	typeErr   map[string]error
	hang      map[string]bool
	navErr    error
	exc       []browser.Exception
	calls     []string
	screenErr error
}

type scheduled[T any] struct {
	value T
	after time.Duration
}

// NewSession creates an empty fake session with no document.
func NewSession() *Session {
	return &Session{
		id:       uuid.New().String(),
		created:  time.Now(),
		elements: make(map[string][]scheduled[browser.ElementState]),
		onClick:  make(map[string]func(s *Session)),
		typeErr:  make(map[string]error),
		hang:     make(map[string]bool),
	}
}

// SetDocument makes doc the document returned from the moment after elapses.
func (s *Session) SetDocument(doc browser.Document, after time.Duration) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = scheduled[browser.Document]{value: doc, after: after}
	return s
}

// AddElement registers state for sel, visible once after has elapsed.
// Several registrations for the same selector form a timeline.
func (s *Session) AddElement(sel browser.Selector, state browser.ElementState, after time.Duration) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.Found = true
	key := sel.String()
	s.elements[key] = append(s.elements[key], scheduled[browser.ElementState]{value: state, after: after})
	return s
}

// AddInput registers a visible, enabled, editable element.
func (s *Session) AddInput(sel browser.Selector, after time.Duration) *Session {
	return s.AddElement(sel, browser.ElementState{Visible: true, Enabled: true, Editable: true}, after)
}

// AddVisible registers a visible, enabled element with the given text.
func (s *Session) AddVisible(sel browser.Selector, text string, after time.Duration) *Session {
	return s.AddElement(sel, browser.ElementState{Visible: true, Enabled: true, Text: text}, after)
}

// RemoveElement drops sel entirely.
func (s *Session) RemoveElement(sel browser.Selector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.elements, sel.String())
}

// OnClick runs fn when sel is clicked.
func (s *Session) OnClick(sel browser.Selector, fn func(s *Session)) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClick[sel.String()] = fn
	return s
}

// FailTyping makes ClearAndType on sel return err.
func (s *Session) FailTyping(sel browser.Selector, err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typeErr[sel.String()] = err
	return s
}

// Hang makes ClearAndType and Click on sel block until ctx is done, like a
// page whose main thread never yields.
func (s *Session) Hang(sel browser.Selector) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hang[sel.String()] = true
	return s
}

// FailNavigation makes Navigate return err.
func (s *Session) FailNavigation(err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navErr = err
	return s
}

// FailScreenshot makes Screenshot return err.
func (s *Session) FailScreenshot(err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenErr = err
	return s
}

// SetURL changes the current URL without recording a navigation.
func (s *Session) SetURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
}

// Throw records an uncaught page exception.
func (s *Session) Throw(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exc = append(s.exc, browser.Exception{Text: text, URL: s.url, At: time.Now()})
}

// Calls returns the recorded operations in order, e.g. "element css=body".
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Value returns the current value of sel, or "" if it has none.
func (s *Session) Value(sel browser.Selector) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, _ := s.current(sel.String())
	return state.Value
}

func (s *Session) record(format string, args ...interface{}) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

// current returns the latest timeline entry for key that is due.
func (s *Session) current(key string) (browser.ElementState, int) {
	elapsed := time.Since(s.created)
	idx := -1
	for i, entry := range s.elements[key] {
		if entry.after <= elapsed {
			idx = i
		}
	}
	if idx < 0 {
		return browser.ElementState{}, -1
	}
	return s.elements[key][idx].value, idx
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Navigate records the navigation and updates the current URL.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	s.record("navigate %s", url)
	if s.navErr != nil {
		return s.navErr
	}
	s.url = url
	return nil
}

// Snapshot returns the scheduled document once due.
func (s *Session) Snapshot(ctx context.Context) (browser.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.Document{}, browser.ErrSessionClosed
	}
	s.record("snapshot")
	if s.doc.after > time.Since(s.created) {
		return browser.Document{URL: s.url}, nil
	}
	doc := s.doc.value
	doc.URL = s.url
	return doc, nil
}

// Element returns the due state of sel.
func (s *Session) Element(ctx context.Context, sel browser.Selector) (browser.ElementState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ElementState{}, browser.ErrSessionClosed
	}
	s.record("element %s", sel)
	state, _ := s.current(sel.String())
	return state, nil
}

// ClearAndType replaces the element value with text.
func (s *Session) ClearAndType(ctx context.Context, sel browser.Selector, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	key := sel.String()
	s.record("type %s", sel)
	if s.hang[key] {
		s.mu.Unlock()
		<-ctx.Done()
		s.mu.Lock()
		return ctx.Err()
	}
	if err := s.typeErr[key]; err != nil {
		return err
	}
	_, idx := s.current(key)
	if idx < 0 {
		return fmt.Errorf("no element for %s", sel)
	}
	s.elements[key][idx].value.Value = text
	return nil
}

// Click runs the registered click handler for sel, if any.
func (s *Session) Click(ctx context.Context, sel browser.Selector) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return browser.ErrSessionClosed
	}
	key := sel.String()
	s.record("click %s", sel)
	if s.hang[key] {
		s.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	if _, idx := s.current(key); idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("no element for %s", sel)
	}
	fn := s.onClick[key]
	s.mu.Unlock()

	if fn != nil {
		fn(s)
	}
	return nil
}

// Screenshot returns a placeholder PNG header.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("screenshot")
	if s.screenErr != nil {
		return nil, s.screenErr
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

// Exceptions returns recorded exceptions.
func (s *Session) Exceptions() []browser.Exception {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]browser.Exception, len(s.exc))
	copy(out, s.exc)
	return out
}

// Close marks the session closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Runtime hands out sessions built by a factory and remembers them.
type Runtime struct {
	mu       sync.Mutex
	factory  func() *Session
	sessions []*Session
	err      error
}

// NewRuntime creates a fake runtime. factory is called once per NewSession.
func NewRuntime(factory func() *Session) *Runtime {
	return &Runtime{factory: factory}
}

// FailSessions makes NewSession return err.
func (r *Runtime) FailSessions(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// NewSession returns a fresh fake session.
func (r *Runtime) NewSession(ctx context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	s := r.factory()
	r.sessions = append(r.sessions, s)
	return s, nil
}

// Sessions returns every session created so far.
func (r *Runtime) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Close is a no-op.
func (r *Runtime) Close() error {
	return nil
}
