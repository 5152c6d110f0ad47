package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/testrun"
	"github.com/hairizuan-noorazman/ui-harness/testutil"
)

type runFixtures struct {
	router   *mux.Router
	web      *testrun.TestRun
	emulator *testrun.TestRun
}

func setupRunHandler(t *testing.T) runFixtures {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &testrun.TestRun{}, &testrun.ScenarioResult{})

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	web := &testrun.TestRun{
		Environment: "web", Mode: "test", BaseURL: "http://localhost:8080",
		Status: testrun.StatusFailed, Total: 2, Passed: 1, Failed: 1, CreatedAt: base,
	}
	emulator := &testrun.TestRun{
		Environment: "emulator", Mode: "test", BaseURL: "http://localhost:8081",
		Status: testrun.StatusPassed, Total: 1, Passed: 1, CreatedAt: base.Add(time.Hour),
	}
	testutil.CreateFixtures(t, db, web, emulator)
	testutil.CreateFixtures(t, db,
		&testrun.ScenarioResult{
			TestRunID: web.ID, ScenarioName: "app_load/title", Attempt: 1,
			Status: testrun.StatusPassed, CreatedAt: base,
		},
		&testrun.ScenarioResult{
			TestRunID: web.ID, ScenarioName: "auth_flow/sign-in", Attempt: 1,
			Status: testrun.StatusFailed, FailedStep: 3, ErrorKind: "element_not_found",
			ScreenshotPath: "screenshots/auth_flow/sign-in/s1.png", CreatedAt: base.Add(time.Second),
		},
		&testrun.ScenarioResult{
			TestRunID: emulator.ID, ScenarioName: "app_load/title", Attempt: 1,
			Status: testrun.StatusPassed, CreatedAt: base.Add(time.Hour),
		},
	)

	log := logger.NewTestLogger()
	h := NewRunHandler(testrun.NewMySQLStore(db, log), testrun.NewMySQLResultStore(db, log), log)

	router := mux.NewRouter()
	router.HandleFunc("/runs", h.List).Methods(http.MethodGet)
	router.HandleFunc("/runs/{run_id}", h.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/runs/{run_id}/results", h.ListResults).Methods(http.MethodGet)
	router.HandleFunc("/results", h.ScenarioHistory).Methods(http.MethodGet)

	return runFixtures{router: router, web: web, emulator: emulator}
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type paginated[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRunHandler_List(t *testing.T) {
	f := setupRunHandler(t)

	tests := []struct {
		name       string
		target     string
		wantIDs    []uuid.UUID
		wantLimit  int
		wantOffset int
	}{
		{
			name:      "newest first",
			target:    "/runs",
			wantIDs:   []uuid.UUID{f.emulator.ID, f.web.ID},
			wantLimit: defaultLimit,
		},
		{
			name:      "filtered by environment",
			target:    "/runs?environment=web",
			wantIDs:   []uuid.UUID{f.web.ID},
			wantLimit: defaultLimit,
		},
		{
			name:       "paginated",
			target:     "/runs?limit=1&offset=1",
			wantIDs:    []uuid.UUID{f.web.ID},
			wantLimit:  1,
			wantOffset: 1,
		},
		{
			name:      "limit above maximum falls back to default",
			target:    "/runs?limit=1000",
			wantIDs:   []uuid.UUID{f.emulator.ID, f.web.ID},
			wantLimit: defaultLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, f.router, tt.target)
			require.Equal(t, http.StatusOK, w.Code)

			resp := decode[paginated[testrun.TestRun]](t, w)
			var ids []uuid.UUID
			for _, run := range resp.Items {
				ids = append(ids, run.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantLimit, resp.Limit)
			assert.Equal(t, tt.wantOffset, resp.Offset)
		})
	}
}

func TestRunHandler_GetByID(t *testing.T) {
	f := setupRunHandler(t)

	t.Run("found", func(t *testing.T) {
		w := get(t, f.router, "/runs/"+f.web.ID.String())
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		run := decode[testrun.TestRun](t, w)
		assert.Equal(t, "web", run.Environment)
		assert.Equal(t, testrun.StatusFailed, run.Status)
		assert.Equal(t, 1, run.Failed)
	})

	t.Run("not found", func(t *testing.T) {
		w := get(t, f.router, "/runs/"+uuid.New().String())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := get(t, f.router, "/runs/42")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode[ErrorResponse](t, w).Error, "invalid test run ID")
	})
}

func TestRunHandler_ListResults(t *testing.T) {
	f := setupRunHandler(t)

	t.Run("results in creation order", func(t *testing.T) {
		w := get(t, f.router, "/runs/"+f.web.ID.String()+"/results")
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[paginated[testrun.ScenarioResult]](t, w)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, "app_load/title", resp.Items[0].ScenarioName)
		assert.Equal(t, "auth_flow/sign-in", resp.Items[1].ScenarioName)
		assert.Equal(t, "element_not_found", resp.Items[1].ErrorKind)
		assert.Equal(t, 3, resp.Items[1].FailedStep)
	})

	t.Run("unknown run", func(t *testing.T) {
		w := get(t, f.router, "/runs/"+uuid.New().String()+"/results")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRunHandler_ScenarioHistory(t *testing.T) {
	f := setupRunHandler(t)

	t.Run("latest first across runs", func(t *testing.T) {
		w := get(t, f.router, "/results?scenario=app_load/title")
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[paginated[testrun.ScenarioResult]](t, w)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, f.emulator.ID, resp.Items[0].TestRunID)
		assert.Equal(t, f.web.ID, resp.Items[1].TestRunID)
	})

	t.Run("limit", func(t *testing.T) {
		w := get(t, f.router, "/results?scenario=app_load/title&limit=1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[paginated[testrun.ScenarioResult]](t, w).Items, 1)
	})

	t.Run("scenario is required", func(t *testing.T) {
		w := get(t, f.router, "/results")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
