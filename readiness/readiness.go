// Package readiness decides when a dynamically rendered application is
// interactive by walking an ordered chain of polled signals.
package readiness

import (
	"context"
	"time"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/environment"
	"github.com/hairizuan-noorazman/ui-harness/failure"
	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/waiter"
)

// Check observes the session once for a signal.
type Check func(ctx context.Context, s browser.Session) (observation string, ok bool, err error)

// Signal is one checkpoint in the readiness chain.
type Signal struct {
	Name     string
	Timeout  time.Duration
	Interval time.Duration
	Check    Check
}

// SignalSource builds the chain for an environment.
type SignalSource func(env *environment.Environment) []Signal

// Detector waits for the readiness chain to resolve.
type Detector struct {
	signals  SignalSource
	logger   logger.Logger
	recorder waiter.Recorder
}

// Option configures a Detector.
type Option func(*Detector)

// WithSignals replaces the default signal chain.
func WithSignals(source SignalSource) Option {
	return func(d *Detector) {
		d.signals = source
	}
}

// WithRecorder reports every signal wait to r.
func WithRecorder(r waiter.Recorder) Option {
	return func(d *Detector) {
		d.recorder = r
	}
}

// NewDetector creates a detector using DefaultSignals unless overridden.
func NewDetector(log logger.Logger, opts ...Option) *Detector {
	d := &Detector{
		signals: DefaultSignals,
		logger:  log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WaitUntilReady evaluates the signals strictly in order. A signal is only
// polled after the previous one succeeded. The first signal that never
// resolves is reported as readiness_timeout(signal).
func (d *Detector) WaitUntilReady(ctx context.Context, s browser.Session, env *environment.Environment) waiter.Outcome {
	start := time.Now()
	var total waiter.Outcome

	var opts []waiter.Option
	if d.recorder != nil {
		opts = append(opts, waiter.WithRecorder(d.recorder))
	}

	for _, signal := range d.signals(env) {
		signal := signal
		out := waiter.Await(ctx, waiter.Spec{
			Description: "readiness " + signal.Name,
			Timeout:     signal.Timeout,
			Interval:    signal.Interval,
			Predicate: func(ctx context.Context) (string, bool, error) {
				return signal.Check(ctx, s)
			},
		}, opts...)

		total.Attempts += out.Attempts
		total.LastObservation = out.LastObservation
		total.LastError = out.LastError

		if !out.Succeeded {
			total.Elapsed = time.Since(start)
			switch out.Kind() {
			case failure.KindCancelled, failure.KindInvalidConfiguration:
				total.Err = out.Err
			default:
				total.Err = failure.Readiness(signal.Name, out.Err)
			}
			d.logger.Warn(ctx, "readiness signal did not resolve", map[string]interface{}{
				"signal":     signal.Name,
				"elapsed_ms": out.ElapsedMs(),
				"attempts":   out.Attempts,
				"observed":   out.LastObservation,
				"error":      total.Err.Error(),
			})
			return total
		}

		d.logger.Debug(ctx, "readiness signal resolved", map[string]interface{}{
			"signal":     signal.Name,
			"elapsed_ms": out.ElapsedMs(),
			"attempts":   out.Attempts,
		})
	}

	if grace := env.Readiness.Grace; grace > 0 {
		timer := time.NewTimer(grace)
		select {
		case <-ctx.Done():
			timer.Stop()
			total.Elapsed = time.Since(start)
			total.Err = failure.Cancelled(ctx.Err())
			return total
		case <-timer.C:
		}
	}

	total.Succeeded = true
	total.Elapsed = time.Since(start)
	total.LastError = nil
	d.logger.Info(ctx, "application ready", map[string]interface{}{
		"elapsed_ms": total.ElapsedMs(),
	})
	return total
}

// Names returns the signal names of the chain for env, in order.
func (d *Detector) Names(env *environment.Environment) []string {
	signals := d.signals(env)
	names := make([]string, len(signals))
	for i, s := range signals {
		names[i] = s.Name
	}
	return names
}
