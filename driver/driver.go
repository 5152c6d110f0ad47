// Package driver executes user-intent actions against a browser session.
// Every lookup is a bounded poll: an element that is not attached or not
// yet visible is retried until the action's own timeout.
package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/environment"
	"github.com/hairizuan-noorazman/ui-harness/failure"
	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/waiter"
)

// ReadyWaiter is satisfied by readiness.Detector.
type ReadyWaiter interface {
	WaitUntilReady(ctx context.Context, s browser.Session, env *environment.Environment) waiter.Outcome
}

// ActionRecorder receives the result of every executed action.
type ActionRecorder interface {
	ObserveAction(kind string, result failure.Kind, elapsed time.Duration)
}

// Driver runs actions. It holds the environment reference and nothing
// else; the session is passed to every call.
type Driver struct {
	env       *environment.Environment
	logger    logger.Logger
	readiness ReadyWaiter
	waits     waiter.Recorder
	actions   ActionRecorder
}

// Option configures a Driver.
type Option func(*Driver)

// WithReadiness lets Execute handle wait-ready actions.
func WithReadiness(r ReadyWaiter) Option {
	return func(d *Driver) {
		d.readiness = r
	}
}

// WithWaitRecorder reports every element wait to r.
func WithWaitRecorder(r waiter.Recorder) Option {
	return func(d *Driver) {
		d.waits = r
	}
}

// WithActionRecorder reports every executed action to r.
func WithActionRecorder(r ActionRecorder) Option {
	return func(d *Driver) {
		d.actions = r
	}
}

// New creates a driver bound to env.
func New(env *environment.Environment, log logger.Logger, opts ...Option) *Driver {
	d := &Driver{
		env:    env,
		logger: log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute validates a, expands placeholders in its payload and dispatches by kind.
func (d *Driver) Execute(ctx context.Context, s browser.Session, a Action) waiter.Outcome {
	start := time.Now()
	out := d.execute(ctx, s, a)
	if out.Elapsed == 0 {
		out.Elapsed = time.Since(start)
	}

	fields := map[string]interface{}{
		"action":     string(a.Kind),
		"elapsed_ms": out.ElapsedMs(),
	}
	if a.Target != nil {
		fields["selector"] = a.Target.String()
	}
	if out.Succeeded {
		d.logger.Debug(ctx, "action succeeded", fields)
	} else {
		fields["error"] = out.Err.Error()
		d.logger.Warn(ctx, "action failed", fields)
	}
	if d.actions != nil {
		d.actions.ObserveAction(string(a.Kind), out.Kind(), out.Elapsed)
	}
	return out
}

func (d *Driver) execute(ctx context.Context, s browser.Session, a Action) waiter.Outcome {
	if err := a.Validate(); err != nil {
		return waiter.Outcome{Err: failure.Invalid(a.String(), err)}
	}
	payload, err := d.env.Expand(a.Payload)
	if err != nil {
		return waiter.Outcome{Err: failure.Invalid(a.String(), err)}
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = d.env.Timeouts.Short
	}

	switch a.Kind {
	case KindNavigate:
		return d.Navigate(ctx, s, payload)
	case KindType:
		return d.typeText(ctx, s, *a.Target, payload, timeout)
	case KindClick:
		return d.click(ctx, s, *a.Target, timeout)
	case KindAssertVisible:
		return d.assertVisible(ctx, s, *a.Target, timeout)
	case KindAssertText:
		return d.assertText(ctx, s, *a.Target, payload, timeout)
	case KindAssertExists:
		return d.assertExists(ctx, s, *a.Target, timeout)
	case KindAssertURLContains:
		return d.assertURL(ctx, s, payload, true, timeout)
	case KindAssertURLExcludes:
		return d.assertURL(ctx, s, payload, false, timeout)
	case KindWaitReady:
		if d.readiness == nil {
			return waiter.Outcome{Err: failure.Invalid(a.String(), ErrNoReadiness)}
		}
		return d.readiness.WaitUntilReady(ctx, s, d.env)
	}
	return waiter.Outcome{Err: failure.Invalid(a.String(), fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind))}
}

// Navigate requests the browser load ref, resolved against the base URL.
// It reports only load-started or load-failed; readiness is checked separately.
func (d *Driver) Navigate(ctx context.Context, s browser.Session, ref string) waiter.Outcome {
	start := time.Now()
	target, err := d.env.ResolveURL(ref)
	if err != nil {
		return waiter.Outcome{Err: failure.Wrap(failure.KindNavigationFailed, ref, err)}
	}

	navCtx, cancel := context.WithTimeout(ctx, d.env.Timeouts.Response)
	defer cancel()
	err = s.Navigate(navCtx, target)
	out := waiter.Outcome{Elapsed: time.Since(start), Attempts: 1}
	switch {
	case err == nil:
		out.Succeeded = true
	case ctx.Err() != nil:
		out.Err = failure.Cancelled(ctx.Err())
	default:
		out.Err = failure.Wrap(failure.KindNavigationFailed, target, err)
	}
	return out
}

// Type waits for sel to be visible, enabled and editable, then replaces its
// content with text. Repeating it leaves exactly one copy of text.
func (d *Driver) Type(ctx context.Context, s browser.Session, sel browser.Selector, text string) waiter.Outcome {
	return d.typeText(ctx, s, sel, text, d.env.Timeouts.Short)
}

func (d *Driver) typeText(ctx context.Context, s browser.Session, sel browser.Selector, text string, timeout time.Duration) waiter.Outcome {
	var last browser.ElementState
	out := d.await(ctx, "type into "+sel.String(), timeout, func(ctx context.Context) (string, bool, error) {
		state, err := s.Element(ctx, sel)
		if err != nil {
			return "", false, err
		}
		last = state
		return describeState(sel, state), state.Found && state.Visible && state.Enabled && state.Editable, nil
	})
	if !out.Succeeded {
		return classifyLocate(out, sel, last)
	}

	return interact(ctx, out, sel, timeout, func(ctx context.Context) error {
		return s.ClearAndType(ctx, sel, text)
	})
}

// Click waits for sel to be visible, then clicks it.
func (d *Driver) Click(ctx context.Context, s browser.Session, sel browser.Selector) waiter.Outcome {
	return d.click(ctx, s, sel, d.env.Timeouts.Short)
}

func (d *Driver) click(ctx context.Context, s browser.Session, sel browser.Selector, timeout time.Duration) waiter.Outcome {
	var last browser.ElementState
	out := d.await(ctx, "click "+sel.String(), timeout, func(ctx context.Context) (string, bool, error) {
		state, err := s.Element(ctx, sel)
		if err != nil {
			return "", false, err
		}
		last = state
		return describeState(sel, state), state.Found && state.Visible, nil
	})
	if !out.Succeeded {
		return classifyLocate(out, sel, last)
	}

	return interact(ctx, out, sel, timeout, func(ctx context.Context) error {
		return s.Click(ctx, sel)
	})
}

// interact runs fn on a located element, bounded by the action timeout.
// An interaction that errors or does not finish in time leaves the element
// not interactable.
func interact(ctx context.Context, out waiter.Outcome, sel browser.Selector, timeout time.Duration, fn func(ctx context.Context) error) waiter.Outcome {
	start := time.Now()
	actCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(actCtx)
	out.Elapsed += time.Since(start)
	switch {
	case err == nil:
		return out
	case ctx.Err() != nil:
		out.Err = failure.Cancelled(ctx.Err())
	case actCtx.Err() != nil:
		out.Err = failure.Wrap(failure.KindElementNotInteractable, fmt.Sprintf("%s did not respond within %s", sel, timeout), err)
	default:
		out.Err = failure.Wrap(failure.KindElementNotInteractable, sel.String(), err)
	}
	out.Succeeded = false
	return out
}

// AssertVisible fails with assertion_failed unless sel becomes visible in time.
func (d *Driver) AssertVisible(ctx context.Context, s browser.Session, sel browser.Selector) waiter.Outcome {
	return d.assertVisible(ctx, s, sel, d.env.Timeouts.Short)
}

func (d *Driver) assertVisible(ctx context.Context, s browser.Session, sel browser.Selector, timeout time.Duration) waiter.Outcome {
	out := d.await(ctx, "assert visible "+sel.String(), timeout, func(ctx context.Context) (string, bool, error) {
		state, err := s.Element(ctx, sel)
		if err != nil {
			return "", false, err
		}
		return describeState(sel, state), state.Found && state.Visible, nil
	})
	return asAssertion(out, fmt.Sprintf("expected %s to be visible", sel))
}

// AssertText fails unless sel's text comes to contain expected.
func (d *Driver) AssertText(ctx context.Context, s browser.Session, sel browser.Selector, expected string) waiter.Outcome {
	return d.assertText(ctx, s, sel, expected, d.env.Timeouts.Short)
}

func (d *Driver) assertText(ctx context.Context, s browser.Session, sel browser.Selector, expected string, timeout time.Duration) waiter.Outcome {
	out := d.await(ctx, "assert text "+sel.String(), timeout, func(ctx context.Context) (string, bool, error) {
		state, err := s.Element(ctx, sel)
		if err != nil {
			return "", false, err
		}
		if !state.Found {
			return describeState(sel, state), false, nil
		}
		text := state.Text
		if text == "" {
			text = state.Value
		}
		return fmt.Sprintf("text %q", text), strings.Contains(text, expected), nil
	})
	return asAssertion(out, fmt.Sprintf("expected %s to contain %q", sel, expected))
}

// AssertExists fails unless sel resolves in time, visible or not.
func (d *Driver) AssertExists(ctx context.Context, s browser.Session, sel browser.Selector) waiter.Outcome {
	return d.assertExists(ctx, s, sel, d.env.Timeouts.Short)
}

func (d *Driver) assertExists(ctx context.Context, s browser.Session, sel browser.Selector, timeout time.Duration) waiter.Outcome {
	out := d.await(ctx, "assert exists "+sel.String(), timeout, func(ctx context.Context) (string, bool, error) {
		state, err := s.Element(ctx, sel)
		if err != nil {
			return "", false, err
		}
		return describeState(sel, state), state.Found, nil
	})
	return asAssertion(out, fmt.Sprintf("expected %s to exist", sel))
}

// AssertURL checks the current URL contains (or, when want is false,
// does not contain) fragment.
func (d *Driver) AssertURL(ctx context.Context, s browser.Session, fragment string, want bool) waiter.Outcome {
	return d.assertURL(ctx, s, fragment, want, d.env.Timeouts.Short)
}

func (d *Driver) assertURL(ctx context.Context, s browser.Session, fragment string, want bool, timeout time.Duration) waiter.Outcome {
	verb := "include"
	if !want {
		verb = "not include"
	}
	out := d.await(ctx, "assert url "+verb+" "+fragment, timeout, func(ctx context.Context) (string, bool, error) {
		doc, err := s.Snapshot(ctx)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("url %q", doc.URL), strings.Contains(doc.URL, fragment) == want, nil
	})
	return asAssertion(out, fmt.Sprintf("expected url to %s %q", verb, fragment))
}

func (d *Driver) await(ctx context.Context, description string, timeout time.Duration, p waiter.Predicate) waiter.Outcome {
	interval := d.env.Timeouts.Interval
	if interval > timeout {
		interval = timeout
	}
	var opts []waiter.Option
	if d.waits != nil {
		opts = append(opts, waiter.WithRecorder(d.waits))
	}
	return waiter.Await(ctx, waiter.Spec{
		Description: description,
		Timeout:     timeout,
		Interval:    interval,
		Predicate:   p,
	}, opts...)
}

// classifyLocate maps a failed element wait to not-found or not-interactable.
func classifyLocate(out waiter.Outcome, sel browser.Selector, last browser.ElementState) waiter.Outcome {
	if out.Kind() != failure.KindTimeoutExceeded {
		return out
	}
	kind := failure.KindElementNotFound
	if last.Found {
		kind = failure.KindElementNotInteractable
	}
	out.Err = failure.Wrap(kind, describeState(sel, last), out.Err)
	return out
}

// asAssertion turns a timed-out observation into assertion_failed with the
// last observed value in the detail.
func asAssertion(out waiter.Outcome, expectation string) waiter.Outcome {
	if out.Kind() != failure.KindTimeoutExceeded {
		return out
	}
	detail := expectation
	if out.LastObservation != "" {
		detail = fmt.Sprintf("%s, observed %s", expectation, out.LastObservation)
	}
	fe := failure.Assertion(detail)
	fe.Err = out.LastError
	out.Err = fe
	return out
}

func describeState(sel browser.Selector, state browser.ElementState) string {
	switch {
	case !state.Found:
		return sel.String() + " not found"
	case !state.Visible:
		return sel.String() + " hidden"
	case !state.Enabled:
		return sel.String() + " disabled"
	case !state.Editable:
		return sel.String() + " visible, not editable"
	default:
		return sel.String() + " visible"
	}
}
