package reporter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethpandaops/reportoor/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// fakeTracker is an httptest stand-in for the tracking service.
type fakeTracker struct {
	mu         sync.Mutex
	requests   []capturedRequest
	failCreate bool
	failAll    bool
	srv        *httptest.Server
}

func newFakeTracker(t *testing.T) *fakeTracker {
	t.Helper()

	ft := &fakeTracker{}
	ft.srv = httptest.NewServer(http.HandlerFunc(ft.handle))
	t.Cleanup(ft.srv.Close)

	return ft
}

func (ft *fakeTracker) handle(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	ft.mu.Lock()
	ft.requests = append(ft.requests, capturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	})
	failCreate, failAll := ft.failCreate, ft.failAll
	ft.mu.Unlock()

	if failAll {
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/pipeline-runs":
		if failCreate {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"run_id": "run-42"},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/test-cases":
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/api/v1/pipeline-runs/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (ft *fakeTracker) captured() []capturedRequest {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	out := make([]capturedRequest, len(ft.requests))
	copy(out, ft.requests)

	return out
}

func testConfig(baseURL string) *config.ReporterConfig {
	return &config.ReporterConfig{
		Enabled:        true,
		BaseURL:        baseURL,
		Token:          "test-token",
		OrgID:          "org-1",
		CreatorID:      "user-1",
		RequestTimeout: "5s",
	}
}

func newTestReporter(t *testing.T, ft *fakeTracker) Reporter {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	return NewWithState(
		log, testConfig(ft.srv.URL),
		NewMemoryRunLog(), NewMemoryRunHandle(),
	)
}

func TestReporter_Lifecycle(t *testing.T) {
	ft := newFakeTracker(t)
	rep := newTestReporter(t, ft)
	ctx := context.Background()

	info := rep.Start(ctx)
	require.NotNil(t, info)
	assert.Equal(t, "run-42", info.RunID)
	assert.False(t, info.StartedAt.IsZero())

	rep.MarkTestStart()

	rec := rep.RecordTest(ctx, "TC-1: login", TestStatusPassed, "")
	require.NotNil(t, rec)
	assert.Equal(t, "TC-1: login", rec.Name)
	assert.GreaterOrEqual(t, rec.DurationMs, int64(0))

	rep.MarkTestStart()

	rec = rep.RecordTest(ctx, "TC-2: bad password", TestStatusFailed, "element not found")
	require.NotNil(t, rec)

	summary := rep.Finish(ctx)
	require.NotNil(t, summary)
	assert.Equal(t, "run-42", summary.RunID)
	assert.Equal(t, RunStatusFailed, summary.Status)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Aborted)

	reqs := ft.captured()
	require.Len(t, reqs, 4)

	// Run create carries org / creator and bearer auth.
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/api/v1/pipeline-runs", reqs[0].Path)
	assert.Equal(t, "Bearer test-token", reqs[0].Auth)
	assert.Equal(t, "org-1", reqs[0].Body["organization"])
	assert.Equal(t, "user-1", reqs[0].Body["created_by"])
	assert.Equal(t, "running", reqs[0].Body["status"])

	// Failed test case carries the error message.
	assert.Equal(t, "/api/v1/test-cases", reqs[2].Path)
	assert.Equal(t, "run-42", reqs[2].Body["run_id"])
	assert.Equal(t, "element not found", reqs[2].Body["error_message"])

	// Finalize carries aggregate counts.
	assert.Equal(t, http.MethodPatch, reqs[3].Method)
	assert.Equal(t, "/api/v1/pipeline-runs/run-42", reqs[3].Path)
	assert.Equal(t, "failed", reqs[3].Body["status"])
	assert.Equal(t, float64(2), reqs[3].Body["total"])
	assert.Equal(t, float64(1), reqs[3].Body["passed"])
	assert.Equal(t, float64(1), reqs[3].Body["failed"])
	assert.Equal(t, float64(0), reqs[3].Body["aborted"])
}

func TestReporter_ZeroTests(t *testing.T) {
	ft := newFakeTracker(t)
	rep := newTestReporter(t, ft)
	ctx := context.Background()

	require.NotNil(t, rep.Start(ctx))

	summary := rep.Finish(ctx)
	require.NotNil(t, summary)
	assert.Equal(t, RunStatusPassed, summary.Status)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Aborted)
}

func TestReporter_DisabledIsNoOp(t *testing.T) {
	ft := newFakeTracker(t)
	stateDir := t.TempDir()

	cfg := testConfig(ft.srv.URL)
	cfg.Enabled = false
	cfg.StateDir = stateDir

	rep := New(logrus.New(), cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Nil(t, rep.Start(ctx))
		rep.MarkTestStart()
		assert.Nil(t, rep.RecordTest(ctx, "TC-1", TestStatusPassed, ""))
		assert.Nil(t, rep.Finish(ctx))
	}

	// No network calls and no persisted-file mutation.
	assert.Empty(t, ft.captured())

	entries, err := os.ReadDir(stateDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReporter_StartFailureKeepsLocalBookkeeping(t *testing.T) {
	ft := newFakeTracker(t)
	ft.failCreate = true

	runLog := NewMemoryRunLog()
	handle := NewMemoryRunHandle()

	log := logrus.New()
	rep := NewWithState(log, testConfig(ft.srv.URL), runLog, handle)
	ctx := context.Background()

	assert.Nil(t, rep.Start(ctx))

	// No run id was obtained: remote calls are skipped, but the local
	// append still happens.
	assert.Nil(t, rep.RecordTest(ctx, "TC-1", TestStatusPassed, ""))
	assert.Nil(t, rep.Finish(ctx))

	records, err := runLog.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TC-1", records[0].Name)

	// Only the failed create reached the network.
	reqs := ft.captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v1/pipeline-runs", reqs[0].Path)
}

func TestReporter_TransportFailureReturnsNil(t *testing.T) {
	ft := newFakeTracker(t)
	rep := newTestReporter(t, ft)
	ctx := context.Background()

	require.NotNil(t, rep.Start(ctx))

	ft.mu.Lock()
	ft.failAll = true
	ft.mu.Unlock()

	assert.Nil(t, rep.RecordTest(ctx, "TC-1", TestStatusPassed, ""))
	assert.Nil(t, rep.Finish(ctx))
}

func TestReporter_UnmarkedTestHasZeroDuration(t *testing.T) {
	ft := newFakeTracker(t)
	rep := newTestReporter(t, ft)
	ctx := context.Background()

	require.NotNil(t, rep.Start(ctx))

	rec := rep.RecordTest(ctx, "TC-1", TestStatusPassed, "")
	require.NotNil(t, rec)
	assert.Equal(t, int64(0), rec.DurationMs)
}

func TestReporter_ExternallyMeasuredDuration(t *testing.T) {
	ft := newFakeTracker(t)
	rep := newTestReporter(t, ft)
	ctx := context.Background()

	require.NotNil(t, rep.Start(ctx))

	rec := rep.RecordTestDuration(ctx, "TC-1", TestStatusPassed, "", 1500*time.Millisecond)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1500), rec.DurationMs)

	rec = rep.RecordTestDuration(ctx, "TC-2", TestStatusPassed, "", -time.Second)
	require.NotNil(t, rec)
	assert.Equal(t, int64(0), rec.DurationMs)
}

func TestReporter_TruncatesErrorMessage(t *testing.T) {
	ft := newFakeTracker(t)
	rep := newTestReporter(t, ft)
	ctx := context.Background()

	require.NotNil(t, rep.Start(ctx))

	long := strings.Repeat("x", maxErrorMessageLen+500)
	require.NotNil(t, rep.RecordTest(ctx, "TC-1", TestStatusFailed, long))

	reqs := ft.captured()
	require.Len(t, reqs, 2)

	msg, ok := reqs[1].Body["error_message"].(string)
	require.True(t, ok)
	assert.Len(t, msg, maxErrorMessageLen)
}

func TestReporter_CrossProcessLifecycle(t *testing.T) {
	ft := newFakeTracker(t)
	stateDir := t.TempDir()
	ctx := context.Background()

	newProcess := func() Reporter {
		cfg := testConfig(ft.srv.URL)
		cfg.StateDir = stateDir

		return New(logrus.New(), cfg)
	}

	// Each phase runs in a fresh Reporter, sharing only the state dir.
	require.NotNil(t, newProcess().Start(ctx))
	require.NotNil(t, newProcess().RecordTestDuration(
		ctx, "TC-1: login", TestStatusPassed, "", 1500*time.Millisecond,
	))
	require.NotNil(t, newProcess().RecordTestDuration(
		ctx, "TC-2: logout", TestStatusSkipped, "", 0,
	))

	// The persisted file holds exactly the recorded sequence.
	records, err := NewFileRunLog(filepath.Join(stateDir, RunLogFileName)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, TestRecord{
		Name: "TC-1: login", Status: TestStatusPassed, DurationMs: 1500,
	}, records[0])

	summary := newProcess().Finish(ctx)
	require.NotNil(t, summary)
	assert.Equal(t, RunStatusPassed, summary.Status)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Aborted)
	assert.GreaterOrEqual(t, summary.DurationMs, int64(0))
}

func TestReporter_StartClearsPreviousRun(t *testing.T) {
	ft := newFakeTracker(t)
	stateDir := t.TempDir()
	ctx := context.Background()

	cfg := testConfig(ft.srv.URL)
	cfg.StateDir = stateDir

	rep := New(logrus.New(), cfg)

	require.NotNil(t, rep.Start(ctx))
	require.NotNil(t, rep.RecordTest(ctx, "old", TestStatusFailed, "boom"))

	// A new Start discards the previous run's records.
	require.NotNil(t, rep.Start(ctx))

	summary := rep.Finish(ctx)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, RunStatusPassed, summary.Status)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		records  []TestRecord
		expected RunSummary
	}{
		{
			name:    "empty is passed",
			records: nil,
			expected: RunSummary{
				RunID: "r", Status: RunStatusPassed,
			},
		},
		{
			name: "mixed with failure",
			records: []TestRecord{
				{Status: TestStatusPassed},
				{Status: TestStatusPassed},
				{Status: TestStatusPassed},
				{Status: TestStatusFailed},
			},
			expected: RunSummary{
				RunID: "r", Status: RunStatusFailed,
				Total: 4, Passed: 3, Failed: 1,
			},
		},
		{
			name: "skipped counts as aborted, not failure",
			records: []TestRecord{
				{Status: TestStatusPassed},
				{Status: TestStatusSkipped},
			},
			expected: RunSummary{
				RunID: "r", Status: RunStatusPassed,
				Total: 2, Passed: 1, Aborted: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, &tt.expected, summarize("r", tt.records))
		})
	}
}

func TestValidTestStatus(t *testing.T) {
	assert.True(t, ValidTestStatus(TestStatusPassed))
	assert.True(t, ValidTestStatus(TestStatusFailed))
	assert.True(t, ValidTestStatus(TestStatusSkipped))
	assert.False(t, ValidTestStatus("aborted"))
	assert.False(t, ValidTestStatus(""))
}
