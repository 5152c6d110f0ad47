package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/driver"
	"github.com/hairizuan-noorazman/ui-harness/environment"
	"github.com/hairizuan-noorazman/ui-harness/failure"
	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/waiter"
)

// screenshotTimeout bounds capture and upload after a failure, even when
// the scenario context is already cancelled.
const screenshotTimeout = 10 * time.Second

// Uploader stores failure artifacts. storage.BlobStorage satisfies it.
type Uploader interface {
	Upload(ctx context.Context, path string, reader io.Reader) error
}

// Result is the outcome of one scenario run.
type Result struct {
	Scenario  string
	SessionID string
	Succeeded bool
	Elapsed   time.Duration
	// FailedStep is the 1-based index of the failed action. It is 0 when
	// the scenario succeeded or failed during setup.
	FailedStep   int
	FailedKind   driver.Kind
	FailedAction string
	Err          error
	// Screenshot is the artifact path of the failure screenshot, if any.
	Screenshot string
	Exceptions []browser.Exception
}

// Kind returns the failure kind, or failure.KindNone on success.
func (r Result) Kind() failure.Kind {
	return r.Outcome().Kind()
}

// Outcome summarizes the result as a waiter.Outcome.
func (r Result) Outcome() waiter.Outcome {
	return waiter.Outcome{Succeeded: r.Succeeded, Elapsed: r.Elapsed, Err: r.Err}
}

// Runner composes readiness and the action driver into scenario runs.
type Runner struct {
	runtime       browser.Runtime
	readiness     driver.ReadyWaiter
	logger        logger.Logger
	sessionConfig browser.SessionConfig
	artifacts     Uploader
	screenshots   bool
	driverOpts    []driver.Option
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSessionConfig sets the configuration for every new session.
func WithSessionConfig(cfg browser.SessionConfig) RunnerOption {
	return func(r *Runner) {
		r.sessionConfig = cfg
	}
}

// WithArtifacts uploads a screenshot to u whenever a scenario fails.
func WithArtifacts(u Uploader) RunnerOption {
	return func(r *Runner) {
		r.artifacts = u
		r.screenshots = u != nil
	}
}

// WithDriverOptions passes opts to the driver built for each run.
func WithDriverOptions(opts ...driver.Option) RunnerOption {
	return func(r *Runner) {
		r.driverOpts = append(r.driverOpts, opts...)
	}
}

// NewRunner creates a runner. Sessions come from rt.
func NewRunner(rt browser.Runtime, ready driver.ReadyWaiter, log logger.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		runtime:   rt,
		readiness: ready,
		logger:    log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes sc in a fresh session that is always closed afterwards.
// The entry page is loaded and readiness awaited before the first action.
// Actions run in order and the first failure stops the scenario.
func (r *Runner) Run(ctx context.Context, sc Scenario, env *environment.Environment) Result {
	start := time.Now()
	res := Result{Scenario: sc.Name}
	ctx = logger.ContextWithFields(ctx, map[string]interface{}{"scenario": sc.Name})

	if err := sc.Validate(); err != nil {
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}

	session, err := r.runtime.NewSession(ctx, r.sessionConfig)
	if err != nil {
		res.Err = failure.Wrap(failure.KindNavigationFailed, "open browser session", err)
		res.Elapsed = time.Since(start)
		r.logger.Error(ctx, "failed to open browser session", map[string]interface{}{
			"error": err.Error(),
		})
		return res
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Warn(ctx, "failed to close browser session", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
	res.SessionID = session.ID()
	ctx = logger.ContextWithFields(ctx, map[string]interface{}{"session_id": session.ID()})

	opts := append([]driver.Option{driver.WithReadiness(r.readiness)}, r.driverOpts...)
	d := driver.New(env, r.logger, opts...)
	watch := &exceptionWatch{policy: sc.ExceptionPolicy}

	r.logger.Info(ctx, "scenario started", map[string]interface{}{
		"actions": len(sc.Actions),
		"entry":   sc.EntryOrDefault(),
	})

	setup := []driver.Action{driver.Navigate(sc.EntryOrDefault()), driver.WaitReady()}
	for _, a := range setup {
		out := d.Execute(ctx, session, a)
		if err := r.checkExceptions(ctx, session, watch, out); err != nil {
			r.fail(ctx, &res, session, 0, a, err)
			res.Exceptions = watch.seen
			res.Elapsed = time.Since(start)
			return res
		}
	}

	for i, a := range sc.Actions {
		out := d.Execute(ctx, session, a)
		if err := r.checkExceptions(ctx, session, watch, out); err != nil {
			r.fail(ctx, &res, session, i+1, a, err)
			res.Exceptions = watch.seen
			res.Elapsed = time.Since(start)
			return res
		}
	}

	res.Succeeded = true
	res.Exceptions = watch.seen
	res.Elapsed = time.Since(start)
	r.logger.Info(ctx, "scenario passed", map[string]interface{}{
		"elapsed_ms": res.Elapsed.Milliseconds(),
	})
	return res
}

// checkExceptions returns the action's failure, or an uncaught_exception
// failure when the policy is fail and new exceptions appeared.
func (r *Runner) checkExceptions(ctx context.Context, s browser.Session, w *exceptionWatch, out waiter.Outcome) error {
	fresh := w.observe(s.Exceptions())
	for _, exc := range fresh {
		r.logger.Warn(ctx, "uncaught page exception", map[string]interface{}{
			"exception": exc.Text,
			"url":       exc.URL,
			"policy":    string(w.policy),
		})
	}
	if !out.Succeeded {
		if out.Err == nil {
			return errors.New("action failed without an error")
		}
		return out.Err
	}
	if w.policy == PolicyFail && len(fresh) > 0 {
		texts := make([]string, len(fresh))
		for i, exc := range fresh {
			texts[i] = exc.Text
		}
		return failure.New(failure.KindUncaughtException, strings.Join(texts, "; "))
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, res *Result, s browser.Session, step int, a driver.Action, err error) {
	res.FailedStep = step
	res.FailedKind = a.Kind
	res.FailedAction = a.String()
	res.Err = err

	if r.screenshots {
		res.Screenshot = r.captureScreenshot(ctx, s, res.Scenario)
	}

	r.logger.Error(ctx, "scenario failed", map[string]interface{}{
		"step":       step,
		"action":     res.FailedAction,
		"error_kind": string(failure.KindOf(err)),
		"error":      err.Error(),
		"screenshot": res.Screenshot,
	})
}

func (r *Runner) captureScreenshot(ctx context.Context, s browser.Session, scenarioName string) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), screenshotTimeout)
	defer cancel()

	png, err := s.Screenshot(ctx)
	if err != nil {
		if errors.Is(err, browser.ErrUnsupported) {
			r.logger.Debug(ctx, "screenshot not supported by backend", nil)
		} else {
			r.logger.Warn(ctx, "failed to capture screenshot", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return ""
	}

	key := ScreenshotPath(scenarioName, s.ID())
	if err := r.artifacts.Upload(ctx, key, bytes.NewReader(png)); err != nil {
		r.logger.Warn(ctx, "failed to upload screenshot", map[string]interface{}{
			"error": err.Error(),
			"path":  key,
		})
		return ""
	}
	return key
}

// ScreenshotPath returns the artifact path for a failure screenshot.
func ScreenshotPath(scenarioName, sessionID string) string {
	return path.Join("screenshots", slug(scenarioName), fmt.Sprintf("%s.png", sessionID))
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '/':
			b.WriteRune('/')
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-/")
}

// exceptionWatch tracks which session exceptions were already seen.
type exceptionWatch struct {
	policy ExceptionPolicy
	seen   []browser.Exception
}

func (w *exceptionWatch) observe(all []browser.Exception) []browser.Exception {
	if len(all) <= len(w.seen) {
		return nil
	}
	fresh := all[len(w.seen):]
	w.seen = append(w.seen, fresh...)
	return fresh
}
