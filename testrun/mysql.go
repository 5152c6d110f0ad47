package testrun

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/ui-harness/logger"
)

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed test run store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new test run in the database.
func (s *MySQLStore) Create(ctx context.Context, testRun *TestRun) error {
	// Ensure default status is set before validation
	if testRun.Status == "" {
		testRun.Status = StatusPending
	}

	if err := testRun.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(testRun).Error; err != nil {
		s.logger.Error(ctx, "failed to create test run", map[string]interface{}{
			"error":       err.Error(),
			"environment": testRun.Environment,
		})
		return err
	}

	s.logger.Info(ctx, "test run created", map[string]interface{}{
		"test_run_id": testRun.ID,
		"environment": testRun.Environment,
	})

	return nil
}

// GetByID retrieves a test run by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*TestRun, error) {
	var testRun TestRun
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&testRun).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestRunNotFound
		}
		s.logger.Error(ctx, "failed to get test run by ID", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": id,
		})
		return nil, err
	}

	return &testRun, nil
}

// Update updates a test run with the given setters.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	testRun, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(testRun); err != nil {
			return err
		}
	}

	return s.save(ctx, testRun, "update", "updated")
}

// List retrieves a paginated list of test runs, newest first.
func (s *MySQLStore) List(ctx context.Context, environment string, limit, offset int) ([]*TestRun, error) {
	var testRuns []*TestRun
	query := s.db.WithContext(ctx)
	if environment != "" {
		query = query.Where("environment = ?", environment)
	}
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&testRuns).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list test runs", map[string]interface{}{
			"error":       err.Error(),
			"environment": environment,
			"limit":       limit,
			"offset":      offset,
		})
		return nil, err
	}

	return testRuns, nil
}

// Start marks a test run as started (sets started_at, changes status to running).
func (s *MySQLStore) Start(ctx context.Context, id uuid.UUID) error {
	testRun, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := testRun.Start(); err != nil {
		return err
	}

	return s.save(ctx, testRun, "start", "started")
}

// Complete marks a test run as completed.
func (s *MySQLStore) Complete(ctx context.Context, id uuid.UUID, status Status, passed, failed int, notes string) error {
	testRun, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := testRun.Complete(status, passed, failed, notes); err != nil {
		return err
	}

	return s.save(ctx, testRun, "complete", "completed")
}

func (s *MySQLStore) save(ctx context.Context, testRun *TestRun, op, done string) error {
	if err := s.db.WithContext(ctx).Save(testRun).Error; err != nil {
		s.logger.Error(ctx, "failed to "+op+" test run", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": testRun.ID,
		})
		return err
	}

	s.logger.Info(ctx, "test run "+done, map[string]interface{}{
		"test_run_id": testRun.ID,
		"status":      testRun.Status,
	})

	return nil
}

// MySQLResultStore implements the ResultStore interface using GORM and MySQL.
type MySQLResultStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLResultStore creates a new MySQL-backed scenario result store.
func NewMySQLResultStore(db *gorm.DB, log logger.Logger) *MySQLResultStore {
	return &MySQLResultStore{
		db:     db,
		logger: log,
	}
}

// Create stores one scenario attempt.
func (s *MySQLResultStore) Create(ctx context.Context, result *ScenarioResult) error {
	if err := result.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(result).Error; err != nil {
		s.logger.Error(ctx, "failed to create scenario result", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": result.TestRunID,
			"scenario":    result.ScenarioName,
		})
		return err
	}

	s.logger.Debug(ctx, "scenario result created", map[string]interface{}{
		"result_id":   result.ID,
		"test_run_id": result.TestRunID,
		"scenario":    result.ScenarioName,
		"attempt":     result.Attempt,
		"status":      result.Status,
	})

	return nil
}

// ListByTestRun returns every attempt of a test run in creation order.
func (s *MySQLResultStore) ListByTestRun(ctx context.Context, testRunID uuid.UUID) ([]*ScenarioResult, error) {
	var results []*ScenarioResult
	err := s.db.WithContext(ctx).
		Where("test_run_id = ?", testRunID).
		Order("created_at ASC").
		Order("attempt ASC").
		Find(&results).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list scenario results by test run", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": testRunID,
		})
		return nil, err
	}

	return results, nil
}

// ListByScenario returns the latest attempts of a scenario across runs.
func (s *MySQLResultStore) ListByScenario(ctx context.Context, scenarioName string, limit int) ([]*ScenarioResult, error) {
	var results []*ScenarioResult
	err := s.db.WithContext(ctx).
		Where("scenario_name = ?", scenarioName).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list scenario results by scenario", map[string]interface{}{
			"error":    err.Error(),
			"scenario": scenarioName,
		})
		return nil, err
	}

	return results, nil
}
