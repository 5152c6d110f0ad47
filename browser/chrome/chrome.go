// Package chrome implements browser.Session on Chrome via the DevTools
// protocol using chromedp.
package chrome

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/logger"
)

// refAttr tags the element resolved by the last lookup so chromedp
// queries can target it regardless of selector strategy.
const refAttr = "data-uiharness-ref"

// Config configures how Chrome is reached.
type Config struct {
	// RemoteURL is a DevTools websocket URL. When empty a local Chrome is launched.
	RemoteURL string
	ExecPath  string
	Headless  bool
	Viewport  browser.Viewport
	// Flags are extra command-line switches, passed as given.
	Flags []string
}

// Runtime owns one Chrome process (or remote connection). Each session is a new tab.
type Runtime struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	config      Config
	logger      logger.Logger
}

// NewRuntime creates the allocator. Chrome itself starts lazily on the first session.
func NewRuntime(cfg Config, log logger.Logger) *Runtime {
	var allocCtx context.Context
	var cancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
		)
		if cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
		}
		if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
			opts = append(opts, chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height))
		}
		for _, flag := range cfg.Flags {
			name, value := splitFlag(flag)
			opts = append(opts, chromedp.Flag(name, value))
		}
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	return &Runtime{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		config:      cfg,
		logger:      log,
	}
}

// splitFlag turns "--name=value" into chromedp's name/value form.
func splitFlag(flag string) (string, interface{}) {
	flag = strings.TrimLeft(flag, "-")
	if name, value, ok := strings.Cut(flag, "="); ok {
		return name, value
	}
	return flag, true
}

// NewSession opens a new tab.
func (r *Runtime) NewSession(ctx context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	s := &Session{
		id:     uuid.New().String(),
		logger: r.logger,
	}
	s.ctx, s.cancel = chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(ctx, fmt.Sprintf(format, args...), map[string]interface{}{"session_id": s.id})
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			r.logger.Warn(ctx, fmt.Sprintf(format, args...), map[string]interface{}{"session_id": s.id})
		}),
	)

	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		if ev, ok := ev.(*runtime.EventExceptionThrown); ok {
			s.recordException(ev.ExceptionDetails)
		}
	})

	viewport := cfg.Viewport
	if viewport.Width == 0 || viewport.Height == 0 {
		viewport = r.config.Viewport
	}
	actions := []chromedp.Action{runtime.Enable()}
	if viewport.Width > 0 && viewport.Height > 0 {
		actions = append(actions, chromedp.EmulateViewport(int64(viewport.Width), int64(viewport.Height)))
	}
	if err := s.run(ctx, actions...); err != nil {
		s.cancel()
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}

	r.logger.Debug(ctx, "chrome session created", map[string]interface{}{
		"session_id": s.id,
	})
	return s, nil
}

// Close shuts down Chrome or drops the remote connection.
func (r *Runtime) Close() error {
	r.allocCancel()
	return nil
}

// Session is one Chrome tab.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	id     string
	logger logger.Logger
	ref    int

	mu         sync.Mutex
	exceptions []browser.Exception
}

func (s *Session) recordException(details *runtime.ExceptionDetails) {
	if details == nil {
		return
	}
	text := details.Text
	if details.Exception != nil && details.Exception.Description != "" {
		text = details.Exception.Description
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptions = append(s.exceptions, browser.Exception{
		Text: text,
		URL:  details.URL,
		At:   time.Now(),
	})
}

// run executes actions on the tab, aborting when ctx is done without
// closing the tab.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.ctx.Err() != nil {
		return browser.ErrSessionClosed
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Navigate loads url and waits for the load event. Readiness beyond the
// load event is left to the caller.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Snapshot reads the document through script evaluation.
func (s *Session) Snapshot(ctx context.Context) (browser.Document, error) {
	var doc struct {
		URL          string `json:"url"`
		BodyAttached bool   `json:"bodyAttached"`
		HTML         string `json:"html"`
		Text         string `json:"text"`
	}
	if err := s.run(ctx, chromedp.Evaluate(snapshotScript, &doc)); err != nil {
		return browser.Document{}, err
	}
	return browser.Document{
		URL:          doc.URL,
		BodyAttached: doc.BodyAttached,
		HTML:         doc.HTML,
		Text:         doc.Text,
	}, nil
}

// Element resolves sel in the page and tags the match for follow-up actions.
func (s *Session) Element(ctx context.Context, sel browser.Selector) (browser.ElementState, error) {
	state, _, err := s.resolve(ctx, sel)
	return state, err
}

func (s *Session) resolve(ctx context.Context, sel browser.Selector) (browser.ElementState, string, error) {
	s.mu.Lock()
	s.ref++
	ref := fmt.Sprintf("r%d", s.ref)
	s.mu.Unlock()

	script, err := resolveScript(sel, ref)
	if err != nil {
		return browser.ElementState{}, "", err
	}
	var state browser.ElementState
	if err := s.run(ctx, chromedp.Evaluate(script, &state)); err != nil {
		return browser.ElementState{}, "", err
	}
	return state, fmt.Sprintf(`[%s="%s"]`, refAttr, ref), nil
}

// ClearAndType clears the element then sends text as key events.
func (s *Session) ClearAndType(ctx context.Context, sel browser.Selector, text string) error {
	state, query, err := s.resolve(ctx, sel)
	if err != nil {
		return err
	}
	if !state.Found {
		return fmt.Errorf("no element matches %s", sel)
	}
	return s.run(ctx,
		chromedp.Focus(query, chromedp.ByQuery),
		chromedp.Clear(query, chromedp.ByQuery),
		chromedp.SendKeys(query, text, chromedp.ByQuery),
	)
}

// Click dispatches a mouse click at the element's center.
func (s *Session) Click(ctx context.Context, sel browser.Selector) error {
	state, query, err := s.resolve(ctx, sel)
	if err != nil {
		return err
	}
	if !state.Found {
		return fmt.Errorf("no element matches %s", sel)
	}
	return s.run(ctx, chromedp.Click(query, chromedp.ByQuery))
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Exceptions returns uncaught exceptions seen in the tab.
func (s *Session) Exceptions() []browser.Exception {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]browser.Exception, len(s.exceptions))
	copy(out, s.exceptions)
	return out
}

// Close closes the tab.
func (s *Session) Close() error {
	s.cancel()
	return nil
}
