package testrun

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for test run persistence operations.
type Store interface {
	// Create creates a new test run in the store.
	Create(ctx context.Context, testRun *TestRun) error

	// GetByID retrieves a test run by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*TestRun, error)

	// Update updates a test run with the given setters.
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error

	// List retrieves a paginated list of test runs, newest first. An empty
	// environment lists runs of every environment.
	List(ctx context.Context, environment string, limit, offset int) ([]*TestRun, error)

	// Start marks a test run as started (sets started_at, changes status to running).
	Start(ctx context.Context, id uuid.UUID) error

	// Complete marks a test run as completed (sets completed_at, final status, tallies, optional notes).
	Complete(ctx context.Context, id uuid.UUID, status Status, passed, failed int, notes string) error
}

// ResultStore defines the interface for scenario result persistence.
type ResultStore interface {
	// Create stores one scenario attempt.
	Create(ctx context.Context, result *ScenarioResult) error

	// ListByTestRun returns every attempt of a test run in creation order.
	ListByTestRun(ctx context.Context, testRunID uuid.UUID) ([]*ScenarioResult, error)

	// ListByScenario returns the latest attempts of a scenario across runs.
	ListByScenario(ctx context.Context, scenarioName string, limit int) ([]*ScenarioResult, error)
}

// UpdateSetter is a function that updates a test run field.
type UpdateSetter func(*TestRun) error
