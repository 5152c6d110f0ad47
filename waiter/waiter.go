package waiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hairizuan-noorazman/ui-harness/failure"
)

var (
	// ErrInvalidTimeout is returned when a spec timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be greater than zero")

	// ErrInvalidInterval is returned when a spec poll interval is not positive.
	ErrInvalidInterval = errors.New("poll interval must be greater than zero")

	// ErrIntervalExceedsTimeout is returned when the poll interval is longer than the timeout.
	ErrIntervalExceedsTimeout = errors.New("poll interval must not exceed timeout")

	// ErrMissingPredicate is returned when a spec has no predicate.
	ErrMissingPredicate = errors.New("predicate is required")
)

// Predicate observes state once. It returns a short description of what it
// saw, whether the condition holds, and any evaluation error. An error is
// treated as an unsatisfied evaluation and retried.
type Predicate func(ctx context.Context) (observation string, ok bool, err error)

// Spec describes one bounded wait.
type Spec struct {
	Description string
	Timeout     time.Duration
	Interval    time.Duration
	Predicate   Predicate
}

// Validate reports whether the wait can be polled.
func (s Spec) Validate() error {
	if s.Predicate == nil {
		return ErrMissingPredicate
	}
	if s.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if s.Interval <= 0 {
		return ErrInvalidInterval
	}
	if s.Interval > s.Timeout {
		return ErrIntervalExceedsTimeout
	}
	return nil
}

// Outcome is the result of a wait or of any harness operation built on one.
type Outcome struct {
	Succeeded bool
	Elapsed   time.Duration
	Attempts  int
	// LastObservation is what the predicate last reported.
	LastObservation string
	// LastError is the last predicate evaluation error. It is nil when the
	// predicate simply kept returning false.
	LastError error
	// Err is the classified failure when Succeeded is false.
	Err error
}

// Kind returns the failure kind of the outcome, or failure.KindNone on
// success. A failure carrying no classified error is invalid_configuration.
func (o Outcome) Kind() failure.Kind {
	if o.Succeeded {
		return failure.KindNone
	}
	if kind := failure.KindOf(o.Err); kind != failure.KindNone {
		return kind
	}
	return failure.KindInvalidConfiguration
}

// ElapsedMs returns the elapsed time in milliseconds.
func (o Outcome) ElapsedMs() int64 {
	return o.Elapsed.Milliseconds()
}

// Recorder receives the duration of every completed wait.
type Recorder interface {
	ObserveWait(description string, kind failure.Kind, elapsed time.Duration)
}

// Option configures Await.
type Option func(*options)

type options struct {
	recorder Recorder
}

// WithRecorder reports wait durations to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// Await polls spec.Predicate until it holds, the timeout elapses, or ctx is
// done. The first evaluation happens immediately. Later evaluations are
// spaced by spec.Interval, with one final evaluation at the deadline.
// Each evaluation runs under a context that expires one interval after the
// deadline, so a blocked predicate ends the wait as timeout_exceeded.
func Await(ctx context.Context, spec Spec, opts ...Option) Outcome {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := spec.Validate(); err != nil {
		return Outcome{Err: failure.Invalid(fmt.Sprintf("wait %q", spec.Description), err)}
	}

	out := poll(ctx, spec)
	if o.recorder != nil {
		o.recorder.ObserveWait(spec.Description, out.Kind(), out.Elapsed)
	}
	return out
}

func poll(ctx context.Context, spec Spec) Outcome {
	start := time.Now()
	deadline := start.Add(spec.Timeout)
	var out Outcome
	for {
		if err := ctx.Err(); err != nil {
			out.Elapsed = time.Since(start)
			out.Err = failure.Cancelled(err)
			return out
		}

		evalStart := time.Now()
		evalCtx, cancel := context.WithDeadline(ctx, deadline.Add(spec.Interval))
		observation, ok, err := evaluate(evalCtx, spec.Predicate)
		cancel()
		out.Attempts++
		out.LastObservation = observation
		if ok {
			out.Succeeded = true
			out.Elapsed = time.Since(start)
			out.LastError = nil
			return out
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.Elapsed = time.Since(start)
				out.Err = failure.Cancelled(ctxErr)
				return out
			}
			out.LastError = err
		}

		now := time.Now()
		if !now.Before(deadline) {
			out.Elapsed = now.Sub(start)
			out.Err = timeoutError(spec, out)
			return out
		}

		next := evalStart.Add(spec.Interval)
		if next.After(deadline) {
			next = deadline
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			out.Elapsed = time.Since(start)
			out.Err = failure.Cancelled(ctx.Err())
			return out
		case <-timer.C:
		}
	}
}

// evaluate runs the predicate, converting a panic into an evaluation error.
func evaluate(ctx context.Context, p Predicate) (observation string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	return p(ctx)
}

func timeoutError(spec Spec, out Outcome) error {
	detail := fmt.Sprintf("%s not satisfied after %s (%d attempts)", spec.Description, spec.Timeout, out.Attempts)
	if out.LastObservation != "" {
		detail = fmt.Sprintf("%s, last observed: %s", detail, out.LastObservation)
	}
	if out.LastError != nil {
		return failure.Timeout(detail, fmt.Errorf("last evaluation error: %w", out.LastError))
	}
	return failure.Timeout(detail, nil)
}
