package reporter

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ethpandaops/reportoor/pkg/config"
	"github.com/sirupsen/logrus"
)

const (
	// RunLogFileName is the per-test record log inside the state dir.
	RunLogFileName = "testcases.json"

	// RunHandleFileName is the run reference file inside the state dir.
	RunHandleFileName = "run.json"

	// maxErrorMessageLen bounds failure detail sent to the tracker so a
	// huge stack trace cannot blow up the request payload.
	maxErrorMessageLen = 2048
)

// Reporter coordinates one test-run's lifecycle with the tracking
// service. All four operations absorb every failure: they log and return
// nil instead of erroring, because reporting must never affect the test
// run itself. The harness is free to discard every return value.
//
// Expected call order within one run: Start once, then MarkTestStart /
// RecordTest per test, then Finish once. Start and the later calls may
// happen in separate process invocations sharing the state directory.
type Reporter interface {
	// Start clears the run log, creates the run on the tracker, and
	// stores the assigned run id for later calls. Returns nil when
	// reporting is disabled or the create call fails.
	Start(ctx context.Context) *RunInfo

	// MarkTestStart records the start marker used to compute the next
	// recorded test's duration. No network effect.
	MarkTestStart()

	// RecordTest appends a local record and reports the test case to the
	// tracker. The local append happens even when the remote call is
	// skipped or fails. Returns nil unless the remote call succeeded.
	RecordTest(ctx context.Context, title string, status TestStatus, errMsg string) *TestRecord

	// RecordTestDuration is RecordTest with an externally measured
	// duration instead of the MarkTestStart marker.
	RecordTestDuration(ctx context.Context, title string, status TestStatus, errMsg string, d time.Duration) *TestRecord

	// Finish reads back the run log, computes aggregates, and finalizes
	// the run on the tracker. Returns nil when disabled, when no run id
	// is resolvable, or when the finalize call fails. A run that never
	// reaches Finish stays "running" on the tracker.
	Finish(ctx context.Context) *RunSummary
}

// Compile-time interface check.
var _ Reporter = (*reporter)(nil)

type reporter struct {
	log    logrus.FieldLogger
	cfg    *config.ReporterConfig
	client *trackerClient
	runLog RunLog
	handle RunHandle

	// Start marker for the next RecordTest. Zero when never marked, in
	// which case the computed duration is zero. The Reporter is
	// single-threaded by contract; no locking here.
	testStartedAt time.Time
}

// New creates a Reporter with file-backed state under cfg.StateDir.
func New(log logrus.FieldLogger, cfg *config.ReporterConfig) Reporter {
	return NewWithState(
		log, cfg,
		NewFileRunLog(filepath.Join(cfg.StateDir, RunLogFileName)),
		NewFileRunHandle(filepath.Join(cfg.StateDir, RunHandleFileName)),
	)
}

// NewWithState creates a Reporter with injected run log and run handle
// backends. Single-process harnesses can pass the in-memory backends.
func NewWithState(
	log logrus.FieldLogger,
	cfg *config.ReporterConfig,
	runLog RunLog,
	handle RunHandle,
) Reporter {
	return &reporter{
		log:    log.WithField("component", "reporter"),
		cfg:    cfg,
		client: newTrackerClient(log, cfg),
		runLog: runLog,
		handle: handle,
	}
}

func (r *reporter) Start(ctx context.Context) *RunInfo {
	if !r.cfg.Enabled {
		r.log.Debug("Reporting disabled, skipping run start")

		return nil
	}

	// Fresh run: drop any records left over from a previous run.
	if err := r.runLog.Reset(); err != nil {
		r.log.WithError(err).Warn("Failed to reset run log")
	}

	startedAt := time.Now().UTC()

	req := r.buildCreateRunRequest(startedAt)

	runID, err := r.client.createRun(ctx, req)
	if err != nil {
		r.log.WithError(err).Warn("Failed to create run on tracker")

		// Keep the local start timestamp so a later Finish in another
		// process can still compute elapsed time if an id shows up via
		// the environment.
		if herr := r.handle.Set(&RunRef{StartedAt: startedAt}); herr != nil {
			r.log.WithError(herr).Warn("Failed to persist run handle")
		}

		return nil
	}

	if err := r.handle.Set(&RunRef{RunID: runID, StartedAt: startedAt}); err != nil {
		r.log.WithError(err).Warn("Failed to persist run handle")
	}

	r.log.WithField("run_id", runID).Info("Run created on tracker")

	return &RunInfo{RunID: runID, StartedAt: startedAt}
}

func (r *reporter) MarkTestStart() {
	r.testStartedAt = time.Now().UTC()
}

func (r *reporter) RecordTest(
	ctx context.Context,
	title string,
	status TestStatus,
	errMsg string,
) *TestRecord {
	endedAt := time.Now().UTC()

	var d time.Duration
	if !r.testStartedAt.IsZero() {
		d = endedAt.Sub(r.testStartedAt)
	}

	return r.recordTest(ctx, title, status, errMsg, d, endedAt)
}

func (r *reporter) RecordTestDuration(
	ctx context.Context,
	title string,
	status TestStatus,
	errMsg string,
	d time.Duration,
) *TestRecord {
	return r.recordTest(ctx, title, status, errMsg, d, time.Now().UTC())
}

func (r *reporter) recordTest(
	ctx context.Context,
	title string,
	status TestStatus,
	errMsg string,
	d time.Duration,
	endedAt time.Time,
) *TestRecord {
	if !r.cfg.Enabled {
		r.log.Debug("Reporting disabled, skipping test record")

		return nil
	}

	if d < 0 {
		d = 0
	}

	rec := TestRecord{
		Name:       title,
		Status:     status,
		DurationMs: d.Milliseconds(),
	}

	// Local bookkeeping first: the final aggregate depends on the run
	// log, not on remote call success.
	if err := r.runLog.Append(rec); err != nil {
		r.log.WithError(err).Warn("Failed to append to run log")
	}

	ref := r.resolveRun()
	if ref == nil || ref.RunID == "" {
		r.log.WithField("test", title).
			Warn("No run id resolvable, skipping remote test-case report")

		return nil
	}

	req := &createTestCaseRequest{
		RunID:      ref.RunID,
		Name:       title,
		Status:     status,
		DurationMs: rec.DurationMs,
		StartedAt:  endedAt.Add(-d),
		EndedAt:    endedAt,
	}

	if status == TestStatusFailed {
		req.ErrorMessage = truncate(errMsg, maxErrorMessageLen)
	}

	if err := r.client.createTestCase(ctx, req); err != nil {
		r.log.WithError(err).WithField("test", title).
			Warn("Failed to report test case to tracker")

		return nil
	}

	r.log.WithField("test", title).WithField("status", status).
		Debug("Test case reported")

	return &rec
}

func (r *reporter) Finish(ctx context.Context) *RunSummary {
	if !r.cfg.Enabled {
		r.log.Debug("Reporting disabled, skipping run finish")

		return nil
	}

	ref := r.resolveRun()
	if ref == nil || ref.RunID == "" {
		r.log.Warn("No run id resolvable, skipping run finalize")

		return nil
	}

	// Best-effort read-back: a damaged run log finalizes with zero counts
	// rather than failing the run.
	records, err := r.runLog.ReadAll()
	if err != nil {
		r.log.WithError(err).Warn("Failed to read run log, finalizing with zero counts")

		records = nil
	}

	summary := summarize(ref.RunID, records)

	endedAt := time.Now().UTC()

	if !ref.StartedAt.IsZero() {
		if elapsed := endedAt.Sub(ref.StartedAt); elapsed > 0 {
			summary.DurationMs = elapsed.Milliseconds()
		}
	}

	req := &finalizeRunRequest{
		Status:     summary.Status,
		EndedAt:    endedAt,
		DurationMs: summary.DurationMs,
		Total:      summary.Total,
		Passed:     summary.Passed,
		Failed:     summary.Failed,
		Aborted:    summary.Aborted,
	}

	if err := r.client.finalizeRun(ctx, ref.RunID, req); err != nil {
		r.log.WithError(err).Warn("Failed to finalize run on tracker")

		return nil
	}

	r.log.WithField("run_id", ref.RunID).
		WithField("status", summary.Status).
		WithField("total", summary.Total).
		Info("Run finalized on tracker")

	return summary
}

// resolveRun loads the run reference, logging read failures.
func (r *reporter) resolveRun() *RunRef {
	ref, err := r.handle.Get()
	if err != nil {
		r.log.WithError(err).Warn("Failed to read run handle")

		return nil
	}

	return ref
}

// summarize computes aggregate counts and the overall run status:
// failed when any test failed, passed otherwise (including zero tests).
func summarize(runID string, records []TestRecord) *RunSummary {
	s := &RunSummary{RunID: runID, Status: RunStatusPassed}

	for _, rec := range records {
		s.Total++

		switch rec.Status {
		case TestStatusPassed:
			s.Passed++
		case TestStatusFailed:
			s.Failed++
		case TestStatusSkipped:
			s.Aborted++
		}
	}

	if s.Failed > 0 {
		s.Status = RunStatusFailed
	}

	return s
}

// buildCreateRunRequest fills run metadata from config, falling back to
// the CI environment for unset fields.
func (r *reporter) buildCreateRunRequest(startedAt time.Time) *createRunRequest {
	md := r.cfg.Metadata

	return &createRunRequest{
		JobName:      fallbackEnv(md.JobName, "GITHUB_WORKFLOW"),
		BuildNumber:  fallbackEnv(md.BuildNumber, "GITHUB_RUN_NUMBER"),
		Branch:       fallbackEnv(md.Branch, "GITHUB_REF_NAME"),
		Commit:       fallbackEnv(md.Commit, "GITHUB_SHA"),
		TriggeredBy:  fallbackEnv(md.TriggeredBy, "GITHUB_ACTOR"),
		Environment:  md.Environment,
		Organization: r.cfg.OrgID,
		CreatedBy:    r.cfg.CreatorID,
		Status:       RunStatusRunning,
		StartedAt:    startedAt,
	}
}

func fallbackEnv(value, envVar string) string {
	if value != "" {
		return value
	}

	return os.Getenv(envVar)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max]
}
