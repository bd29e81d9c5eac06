package reporter

import "time"

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

// Run statuses. A run that is never finalized (process crash) stays
// "running" on the tracker; there is no reaper for abandoned runs.
const (
	RunStatusRunning RunStatus = "running"
	RunStatusPassed  RunStatus = "passed"
	RunStatusFailed  RunStatus = "failed"
)

// TestStatus is the outcome of a single test case.
type TestStatus string

// Test case statuses.
const (
	TestStatusPassed  TestStatus = "passed"
	TestStatusFailed  TestStatus = "failed"
	TestStatusSkipped TestStatus = "skipped"
)

// ValidTestStatus reports whether s is a recognized test status.
func ValidTestStatus(s TestStatus) bool {
	switch s {
	case TestStatusPassed, TestStatusFailed, TestStatusSkipped:
		return true
	default:
		return false
	}
}

// TestRecord is the compact per-test record persisted to the run log
// and read back at finish time to compute aggregates.
type TestRecord struct {
	Name       string     `json:"name"`
	Status     TestStatus `json:"status"`
	DurationMs int64      `json:"duration_ms"`
}

// RunInfo is returned by Start on success.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
}

// RunSummary is returned by Finish on success.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Status     RunStatus `json:"status"`
	Total      int       `json:"total"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Aborted    int       `json:"aborted"`
	DurationMs int64     `json:"duration_ms"`
}

// --- Tracking service wire types ---
//
// The run-create payload carries organization and created_by, and the
// create response nests the identifier under data.run_id. The finalize
// payload reports skipped tests under "aborted".

type createRunRequest struct {
	JobName      string    `json:"job_name"`
	BuildNumber  string    `json:"build_number,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	Commit       string    `json:"commit,omitempty"`
	TriggeredBy  string    `json:"triggered_by,omitempty"`
	Environment  string    `json:"environment,omitempty"`
	Organization string    `json:"organization,omitempty"`
	CreatedBy    string    `json:"created_by,omitempty"`
	Status       RunStatus `json:"status"`
	StartedAt    time.Time `json:"started_at"`
}

type createRunResponse struct {
	Data struct {
		RunID string `json:"run_id"`
	} `json:"data"`
}

type createTestCaseRequest struct {
	RunID        string     `json:"run_id"`
	Name         string     `json:"name"`
	Status       TestStatus `json:"status"`
	DurationMs   int64      `json:"duration_ms"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      time.Time  `json:"ended_at"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

type finalizeRunRequest struct {
	Status     RunStatus `json:"status"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`
	Total      int       `json:"total"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Aborted    int       `json:"aborted"`
}
