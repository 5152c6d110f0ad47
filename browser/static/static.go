// Package static implements a DOM-only browser backend. Pages are fetched
// over HTTP and queried with goquery. No script runs, so it suits
// server-rendered pages and fixtures, not canvas-rendered applications.
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/logger"
)

// Runtime creates static sessions sharing nothing but the logger.
type Runtime struct {
	logger logger.Logger
}

// NewRuntime creates a static runtime.
func NewRuntime(log logger.Logger) *Runtime {
	return &Runtime{logger: log}
}

// NewSession creates a session with its own cookie jar.
func (r *Runtime) NewSession(ctx context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &Session{
		id:     uuid.New().String(),
		client: &http.Client{Jar: jar, Timeout: timeout},
		logger: r.logger,
	}
	r.logger.Debug(ctx, "static session created", map[string]interface{}{
		"session_id": s.id,
	})
	return s, nil
}

// Close is a no-op.
func (r *Runtime) Close() error {
	return nil
}

// Session is a goquery-backed browser.Session.
type Session struct {
	mu     sync.Mutex
	id     string
	client *http.Client
	logger logger.Logger
	doc    *goquery.Document
	url    *url.URL
	closed bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Navigate fetches rawURL and replaces the current document.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return s.load(req)
}

func (s *Session) load(req *http.Request) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("failed to load %s: status %d", req.URL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	s.doc = doc
	s.url = resp.Request.URL
	return nil
}

// Snapshot returns the parsed document.
func (s *Session) Snapshot(ctx context.Context) (browser.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.Document{}, browser.ErrSessionClosed
	}
	if s.doc == nil {
		return browser.Document{}, nil
	}
	html, err := s.doc.Html()
	if err != nil {
		return browser.Document{}, fmt.Errorf("failed to render document: %w", err)
	}
	body := s.doc.Find("body")
	return browser.Document{
		URL:          s.url.String(),
		BodyAttached: body.Length() > 0 && body.Children().Length() > 0,
		HTML:         html,
		Text:         strings.TrimSpace(body.Text()),
	}, nil
}

// Element resolves sel against the current document.
func (s *Session) Element(ctx context.Context, sel browser.Selector) (browser.ElementState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ElementState{}, browser.ErrSessionClosed
	}
	if s.doc == nil {
		return browser.ElementState{}, nil
	}
	node := resolve(s.doc, sel)
	if node.Length() == 0 {
		return browser.ElementState{}, nil
	}
	return stateOf(node), nil
}

// ClearAndType sets the value of an input or the text of a textarea.
func (s *Session) ClearAndType(ctx context.Context, sel browser.Selector, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	if s.doc == nil {
		return browser.ErrNoDocument
	}
	node := resolve(s.doc, sel)
	if node.Length() == 0 {
		return fmt.Errorf("no element matches %s", sel)
	}
	if goquery.NodeName(node) == "textarea" {
		node.SetText(text)
		return nil
	}
	node.SetAttr("value", text)
	return nil
}

// Click follows links and submits forms. Clicks on other elements do nothing,
// since no script runs.
func (s *Session) Click(ctx context.Context, sel browser.Selector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	if s.doc == nil {
		return browser.ErrNoDocument
	}
	node := resolve(s.doc, sel)
	if node.Length() == 0 {
		return fmt.Errorf("no element matches %s", sel)
	}

	if link := node.Closest("a[href]"); link.Length() > 0 {
		href, _ := link.Attr("href")
		target, err := s.url.Parse(href)
		if err != nil {
			return fmt.Errorf("invalid link %q: %w", href, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		return s.load(req)
	}

	if isSubmit(node) {
		if form := node.Closest("form"); form.Length() > 0 {
			req, err := s.formRequest(ctx, form, node)
			if err != nil {
				return err
			}
			return s.load(req)
		}
	}

	s.logger.Debug(ctx, "static click has no effect", map[string]interface{}{
		"selector": sel.String(),
	})
	return nil
}

func (s *Session) formRequest(ctx context.Context, form, submitter *goquery.Selection) (*http.Request, error) {
	action, _ := form.Attr("action")
	target, err := s.url.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("invalid form action %q: %w", action, err)
	}

	values := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, field *goquery.Selection) {
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}
		name, _ := field.Attr("name")
		switch goquery.NodeName(field) {
		case "textarea":
			values.Add(name, field.Text())
		case "select":
			values.Add(name, field.Find("option[selected]").First().AttrOr("value", ""))
		default:
			kind := strings.ToLower(field.AttrOr("type", "text"))
			if kind == "submit" || kind == "button" {
				return
			}
			if (kind == "checkbox" || kind == "radio") && !hasAttr(field, "checked") {
				return
			}
			values.Add(name, field.AttrOr("value", ""))
		}
	})
	if name, ok := submitter.Attr("name"); ok {
		values.Add(name, submitter.AttrOr("value", ""))
	}

	if strings.EqualFold(form.AttrOr("method", "get"), http.MethodPost) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(values.Encode()))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}
	target.RawQuery = values.Encode()
	return http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
}

// Screenshot is not available without a renderer.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return nil, browser.ErrUnsupported
}

// Exceptions is always empty, no script runs.
func (s *Session) Exceptions() []browser.Exception {
	return nil
}

// Close releases idle connections.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}
