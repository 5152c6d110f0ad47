// Package testrun records batches of scenario runs and executes them with
// bounded parallelism and scenario-level retries.
package testrun

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/ui-harness/scenario"
)

var (
	// ErrTestRunNotFound is returned when a test run is not found.
	ErrTestRunNotFound = errors.New("test run not found")

	// ErrInvalidEnvironment is returned when environment is not set.
	ErrInvalidEnvironment = errors.New("environment is required")

	// ErrInvalidStatus is returned when status is invalid.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrTestRunNotRunning is returned when trying to complete a test run that's not running.
	ErrTestRunNotRunning = errors.New("test run is not running")

	// ErrTestRunAlreadyStarted is returned when trying to start an already started test run.
	ErrTestRunAlreadyStarted = errors.New("test run already started")

	// ErrInvalidTestRunID is returned when a scenario result has no test run.
	ErrInvalidTestRunID = errors.New("test_run_id is required")

	// ErrInvalidScenarioName is returned when a scenario result has no scenario name.
	ErrInvalidScenarioName = errors.New("scenario_name is required")

	// ErrInvalidAttempt is returned when a scenario result attempt is below 1.
	ErrInvalidAttempt = errors.New("attempt must be at least 1")
)

// Status represents the status of a test run or scenario result.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusPassed, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsFinal checks if the status is a final status (can't be changed).
func (s Status) IsFinal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusSkipped
}

// TestRun is one invocation of the harness over a set of scenarios.
type TestRun struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Environment string     `json:"environment" gorm:"type:varchar(100);not null;index:idx_environment"`
	Mode        string     `json:"mode" gorm:"type:varchar(20);not null"`
	BaseURL     string     `json:"base_url" gorm:"type:varchar(500);not null"`
	Status      Status     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_status"`
	Total       int        `json:"total"`
	Passed      int        `json:"passed"`
	Failed      int        `json:"failed"`
	Notes       string     `json:"notes" gorm:"type:text"`
	StartedAt   *time.Time `json:"started_at,omitempty" gorm:"index:idx_started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating a new test run
func (tr *TestRun) BeforeCreate(tx *gorm.DB) error {
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	return nil
}

// Validate checks if the test run has valid required fields.
func (tr *TestRun) Validate() error {
	if tr.Environment == "" {
		return ErrInvalidEnvironment
	}
	if !tr.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Start sets the started_at timestamp and changes status to running.
// Returns an error if the test run has already been started.
func (tr *TestRun) Start() error {
	if tr.StartedAt != nil {
		return ErrTestRunAlreadyStarted
	}
	now := time.Now()
	tr.StartedAt = &now
	tr.Status = StatusRunning
	return nil
}

// Complete sets the completed_at timestamp, final status and tallies.
// Returns an error if the test run is not currently running.
func (tr *TestRun) Complete(status Status, passed, failed int, notes string) error {
	if tr.Status != StatusRunning {
		return ErrTestRunNotRunning
	}
	if !status.IsFinal() {
		return ErrInvalidStatus
	}
	now := time.Now()
	tr.CompletedAt = &now
	tr.Status = status
	tr.Passed = passed
	tr.Failed = failed
	if notes != "" {
		tr.Notes = notes
	}
	return nil
}

// ScenarioResult is the persisted outcome of one scenario attempt.
type ScenarioResult struct {
	ID             uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	TestRunID      uuid.UUID `json:"test_run_id" gorm:"type:char(36);not null;index:idx_test_run_id"`
	ScenarioName   string    `json:"scenario_name" gorm:"type:varchar(255);not null;index:idx_scenario_name"`
	Attempt        int       `json:"attempt" gorm:"not null;default:1"`
	SessionID      string    `json:"session_id" gorm:"type:varchar(64)"`
	Status         Status    `json:"status" gorm:"type:varchar(20);not null"`
	FailedStep     int       `json:"failed_step,omitempty"`
	FailedAction   string    `json:"failed_action,omitempty" gorm:"type:varchar(500)"`
	ErrorKind      string    `json:"error_kind,omitempty" gorm:"type:varchar(50);index:idx_error_kind"`
	Detail         string    `json:"detail,omitempty" gorm:"type:text"`
	ElapsedMs      int64     `json:"elapsed_ms"`
	ScreenshotPath string    `json:"screenshot_path,omitempty" gorm:"type:varchar(500)"`
	CreatedAt      time.Time `json:"created_at"`
}

// BeforeCreate hook to generate UUID before creating a new result
func (r *ScenarioResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Validate checks if the result has valid required fields.
func (r *ScenarioResult) Validate() error {
	if r.TestRunID == uuid.Nil {
		return ErrInvalidTestRunID
	}
	if r.ScenarioName == "" {
		return ErrInvalidScenarioName
	}
	if r.Attempt < 1 {
		return ErrInvalidAttempt
	}
	if !r.Status.IsFinal() {
		return ErrInvalidStatus
	}
	return nil
}

// NewScenarioResult converts a scenario result into its persisted form.
func NewScenarioResult(testRunID uuid.UUID, attempt int, res scenario.Result) *ScenarioResult {
	r := &ScenarioResult{
		TestRunID:      testRunID,
		ScenarioName:   res.Scenario,
		Attempt:        attempt,
		SessionID:      res.SessionID,
		Status:         StatusPassed,
		ElapsedMs:      res.Elapsed.Milliseconds(),
		ScreenshotPath: res.Screenshot,
	}
	if !res.Succeeded {
		r.Status = StatusFailed
		r.FailedStep = res.FailedStep
		r.FailedAction = res.FailedAction
		r.ErrorKind = string(res.Kind())
		if res.Err != nil {
			r.Detail = res.Err.Error()
		}
	}
	return r
}
