package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/testrun"
)

// RunHandler handles test run history requests.
type RunHandler struct {
	runStore    testrun.Store
	resultStore testrun.ResultStore
	logger      logger.Logger
}

// NewRunHandler creates a new run handler.
func NewRunHandler(runStore testrun.Store, resultStore testrun.ResultStore, log logger.Logger) *RunHandler {
	return &RunHandler{
		runStore:    runStore,
		resultStore: resultStore,
		logger:      log,
	}
}

// List handles listing test runs, newest first. The optional environment
// query parameter narrows the list to one profile.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	environment := strings.TrimSpace(r.URL.Query().Get("environment"))

	runs, err := h.runStore.List(r.Context(), environment, limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list test runs", map[string]interface{}{
			"error":       err.Error(),
			"environment": environment,
		})
		respondError(w, http.StatusInternalServerError, "failed to list test runs")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(runs, len(runs), limit, offset))
}

// GetByID handles getting a single test run by ID.
func (h *RunHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "run_id", "test run")
	if !ok {
		return
	}

	tr, err := h.runStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, testrun.ErrTestRunNotFound) {
			respondError(w, http.StatusNotFound, "test run not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get test run", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to get test run")
		return
	}

	respondJSON(w, http.StatusOK, tr)
}

// ListResults handles listing every scenario attempt of a test run.
func (h *RunHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "run_id", "test run")
	if !ok {
		return
	}

	if _, err := h.runStore.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, testrun.ErrTestRunNotFound) {
			respondError(w, http.StatusNotFound, "test run not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to verify test run")
		return
	}

	results, err := h.resultStore.ListByTestRun(r.Context(), id)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list scenario results", map[string]interface{}{
			"error":       err.Error(),
			"test_run_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to list scenario results")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(results, len(results), len(results), 0))
}

// ScenarioHistory handles listing the latest attempts of one scenario
// across runs. The scenario is named by the required scenario query
// parameter because suite-qualified names contain a slash.
func (h *RunHandler) ScenarioHistory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("scenario"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "scenario is required")
		return
	}
	limit, _ := parsePagination(r)

	results, err := h.resultStore.ListByScenario(r.Context(), name, limit)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list scenario history", map[string]interface{}{
			"error":    err.Error(),
			"scenario": name,
		})
		respondError(w, http.StatusInternalServerError, "failed to list scenario history")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(results, len(results), limit, 0))
}
