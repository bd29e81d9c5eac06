package tracker

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethpandaops/reportoor/pkg/tracker/store"
	"github.com/go-chi/chi/v5"
)

const runIDBytes = 12

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// generateRunID creates an opaque run identifier.
func generateRunID() (string, error) {
	b := make([]byte, runIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}

	return "run-" + hex.EncodeToString(b), nil
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Run endpoints ---

type createRunRequest struct {
	JobName      string    `json:"job_name"`
	BuildNumber  string    `json:"build_number"`
	Branch       string    `json:"branch"`
	Commit       string    `json:"commit"`
	TriggeredBy  string    `json:"triggered_by"`
	Environment  string    `json:"environment"`
	Organization string    `json:"organization"`
	CreatedBy    string    `json:"created_by"`
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"started_at"`
}

// handleCreateRun creates a new pipeline run and returns its identifier
// nested under data.run_id.
func (s *server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	if req.JobName == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"job_name is required"})

		return
	}

	runID, err := generateRunID()
	if err != nil {
		s.log.WithError(err).Error("Failed to generate run id")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	startedAt := req.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	run := &store.PipelineRun{
		RunID:        runID,
		JobName:      req.JobName,
		BuildNumber:  req.BuildNumber,
		Branch:       req.Branch,
		Commit:       req.Commit,
		TriggeredBy:  req.TriggeredBy,
		Environment:  req.Environment,
		Organization: req.Organization,
		CreatedBy:    req.CreatedBy,
		Status:       store.StatusRunning,
		StartedAt:    startedAt,
	}

	if err := s.store.CreateRun(r.Context(), run); err != nil {
		s.log.WithError(err).Error("Failed to create run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	s.log.WithField("run_id", runID).
		WithField("job", req.JobName).
		Info("Pipeline run created")

	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]string{"run_id": runID},
	})
}

type finalizeRunRequest struct {
	Status     string    `json:"status"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`
	Total      int       `json:"total"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Aborted    int       `json:"aborted"`
}

// handleFinalizeRun updates a run with its final status and aggregates.
func (s *server) handleFinalizeRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	var req finalizeRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	if req.Status != store.StatusPassed && req.Status != store.StatusFailed {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"status must be passed or failed"})

		return
	}

	endedAt := req.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}

	err := s.store.FinalizeRun(r.Context(), runID, &store.RunUpdate{
		Status:     req.Status,
		EndedAt:    endedAt,
		DurationMs: req.DurationMs,
		Total:      req.Total,
		Passed:     req.Passed,
		Failed:     req.Failed,
		Aborted:    req.Aborted,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound,
				errorResponse{"run not found"})

			return
		}

		s.log.WithError(err).Error("Failed to finalize run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.log.WithError(err).Error("Failed to read back finalized run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	s.log.WithField("run_id", runID).
		WithField("status", run.Status).
		Info("Pipeline run finalized")

	writeJSON(w, http.StatusOK, map[string]any{"data": run})
}

// handleListRuns returns recent runs, newest first.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{"invalid limit"})

			return
		}

		limit = parsed
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list runs")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": runs})
}

// handleGetRun returns one run with its test cases.
func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound,
				errorResponse{"run not found"})

			return
		}

		s.log.WithError(err).Error("Failed to get run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	cases, err := s.store.ListTestCases(r.Context(), runID)
	if err != nil {
		s.log.WithError(err).Error("Failed to list test cases")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"run":        run,
			"test_cases": cases,
		},
	})
}

// --- Test case endpoints ---

type createTestCaseRequest struct {
	RunID        string    `json:"run_id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	DurationMs   int64     `json:"duration_ms"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	ErrorMessage string    `json:"error_message"`
}

func validTestCaseStatus(status string) bool {
	switch status {
	case "passed", "failed", "skipped":
		return true
	default:
		return false
	}
}

// handleCreateTestCase records one test case against an existing run.
func (s *server) handleCreateTestCase(w http.ResponseWriter, r *http.Request) {
	var req createTestCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	if req.RunID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"run_id and name are required"})

		return
	}

	if !validTestCaseStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"status must be passed, failed or skipped"})

		return
	}

	if req.DurationMs < 0 {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"duration_ms must not be negative"})

		return
	}

	if _, err := s.store.GetRun(r.Context(), req.RunID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound,
				errorResponse{"run not found"})

			return
		}

		s.log.WithError(err).Error("Failed to check run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	tc := &store.TestCase{
		RunID:        req.RunID,
		Name:         req.Name,
		Status:       req.Status,
		DurationMs:   req.DurationMs,
		StartedAt:    req.StartedAt,
		EndedAt:      req.EndedAt,
		ErrorMessage: req.ErrorMessage,
	}

	if err := s.store.CreateTestCase(r.Context(), tc); err != nil {
		s.log.WithError(err).Error("Failed to create test case")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}
