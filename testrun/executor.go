package testrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hairizuan-noorazman/ui-harness/environment"
	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/scenario"
)

// ErrNoScenarios is returned when Execute is called with nothing to run.
var ErrNoScenarios = errors.New("no scenarios to run")

// ScenarioRunner runs one scenario. scenario.Runner satisfies it.
type ScenarioRunner interface {
	Run(ctx context.Context, sc scenario.Scenario, env *environment.Environment) scenario.Result
}

// ScenarioRecorder receives the outcome of every scenario attempt.
type ScenarioRecorder interface {
	ObserveScenario(succeeded bool, elapsed time.Duration)
}

// Executor runs a batch of scenarios as one test run and persists every
// attempt.
type Executor struct {
	runner      ScenarioRunner
	runs        Store
	results     ResultStore
	logger      logger.Logger
	parallelism int
	retries     int
	recorder    ScenarioRecorder
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithParallelism sets how many scenarios run at once. Values below 1 mean 1.
func WithParallelism(n int) ExecutorOption {
	return func(e *Executor) {
		if n < 1 {
			n = 1
		}
		e.parallelism = n
	}
}

// WithRetries sets how many extra attempts a scenario gets after a
// retryable failure.
func WithRetries(n int) ExecutorOption {
	return func(e *Executor) {
		if n < 0 {
			n = 0
		}
		e.retries = n
	}
}

// WithScenarioRecorder reports every attempt to r.
func WithScenarioRecorder(r ScenarioRecorder) ExecutorOption {
	return func(e *Executor) {
		e.recorder = r
	}
}

// NewExecutor creates an executor. Scenarios run one at a time without
// retries unless configured otherwise.
func NewExecutor(runner ScenarioRunner, runs Store, results ResultStore, log logger.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		runner:      runner,
		runs:        runs,
		results:     results,
		logger:      log,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs scenarios against env. Each scenario gets its own copy of
// env and its own browser session. The returned error reports persistence
// failures only; scenario failures are in the report.
func (e *Executor) Execute(ctx context.Context, env *environment.Environment, scenarios []scenario.Scenario) (*Report, error) {
	if len(scenarios) == 0 {
		return nil, ErrNoScenarios
	}

	run := &TestRun{
		Environment: env.Name,
		Mode:        string(env.Mode),
		BaseURL:     env.BaseURL,
		Total:       len(scenarios),
	}
	if err := e.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create test run: %w", err)
	}
	if err := e.runs.Start(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("failed to start test run: %w", err)
	}

	ctx = logger.ContextWithFields(ctx, map[string]interface{}{"test_run_id": run.ID.String()})
	e.logger.Info(ctx, "test run started", map[string]interface{}{
		"environment": env.Name,
		"scenarios":   len(scenarios),
		"parallelism": e.parallelism,
		"retries":     e.retries,
	})

	report := &Report{
		RunID:       run.ID,
		Environment: env.Name,
		StartedAt:   time.Now(),
		Scenarios:   make([]Summary, len(scenarios)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			summary, err := e.runScenario(gctx, run.ID, sc, env)
			report.Scenarios[i] = summary
			return err
		})
	}
	runErr := g.Wait()
	report.Elapsed = time.Since(report.StartedAt)

	status, notes := StatusPassed, report.String()
	if report.Failed() > 0 || runErr != nil {
		status = StatusFailed
	}
	if runErr != nil {
		notes = runErr.Error()
	}

	// The run is closed out even when the caller's context is already done.
	persistCtx := context.WithoutCancel(ctx)
	if err := e.runs.Complete(persistCtx, run.ID, status, report.Passed(), report.Failed(), notes); err != nil {
		return report, errors.Join(runErr, fmt.Errorf("failed to complete test run: %w", err))
	}

	e.logger.Info(ctx, "test run completed", map[string]interface{}{
		"status":     status,
		"passed":     report.Passed(),
		"failed":     report.Failed(),
		"elapsed_ms": report.Elapsed.Milliseconds(),
	})
	return report, runErr
}

// runScenario runs sc until it passes, fails with a non-retryable kind, or
// runs out of attempts.
func (e *Executor) runScenario(ctx context.Context, runID uuid.UUID, sc scenario.Scenario, env *environment.Environment) (Summary, error) {
	persistCtx := context.WithoutCancel(ctx)
	for attempt := 1; ; attempt++ {
		res := e.runner.Run(ctx, sc, env.Clone())
		if e.recorder != nil {
			e.recorder.ObserveScenario(res.Succeeded, res.Elapsed)
		}

		if err := e.results.Create(persistCtx, NewScenarioResult(runID, attempt, res)); err != nil {
			return Summary{Result: res, Attempts: attempt}, fmt.Errorf("failed to record result of %s: %w", sc.Name, err)
		}

		if res.Succeeded || attempt > e.retries || !res.Kind().IsRetryable() || ctx.Err() != nil {
			return Summary{Result: res, Attempts: attempt}, nil
		}

		e.logger.Warn(ctx, "retrying scenario", map[string]interface{}{
			"scenario":   sc.Name,
			"attempt":    attempt,
			"error_kind": string(res.Kind()),
		})
	}
}
