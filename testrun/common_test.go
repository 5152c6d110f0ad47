package testrun

import (
	"testing"

	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/testutil"
)

// setupTestStore creates a test database with test run and result stores.
func setupTestStore(t *testing.T) (*MySQLStore, *MySQLResultStore) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &TestRun{}, &ScenarioResult{})

	log := logger.NewTestLogger()
	return NewMySQLStore(db, log), NewMySQLResultStore(db, log)
}

// createTestRun creates a test run with default values.
func createTestRun(environment string, status Status, notes string) *TestRun {
	return &TestRun{
		Environment: environment,
		Mode:        "test",
		BaseURL:     "http://localhost:8080",
		Status:      status,
		Notes:       notes,
	}
}
