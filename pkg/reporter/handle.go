package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunIDEnvVar carries the active run identifier between CI steps that
// cannot share a state directory.
const RunIDEnvVar = "REPORTOOR_RUN_ID"

// RunRef identifies the run currently being reported. An empty RunID
// means no run was started (or the create call failed).
type RunRef struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
}

// RunHandle shares the active run identity across process invocations.
// Start writes it; RecordTest and Finish read it back, possibly from a
// different process.
type RunHandle interface {
	// Get returns the current run reference, or nil when none is set.
	Get() (*RunRef, error)

	// Set stores the run reference for later invocations.
	Set(ref *RunRef) error

	// Clear removes any stored run reference.
	Clear() error
}

// fileRunHandle persists the run reference as JSON at a fixed path.
// Set also appends REPORTOOR_RUN_ID to the file named by GITHUB_ENV when
// present, so that later workflow steps see the id as an environment
// variable; Get falls back to that variable when the file is missing.
type fileRunHandle struct {
	path string
}

// Compile-time interface check.
var _ RunHandle = (*fileRunHandle)(nil)

// NewFileRunHandle creates a RunHandle backed by a JSON file at path.
func NewFileRunHandle(path string) RunHandle {
	return &fileRunHandle{path: path}
}

func (h *fileRunHandle) Get() (*RunRef, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			if id := os.Getenv(RunIDEnvVar); id != "" {
				return &RunRef{RunID: id}, nil
			}

			return nil, nil
		}

		return nil, fmt.Errorf("reading run handle: %w", err)
	}

	var ref RunRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("parsing run handle: %w", err)
	}

	return &ref, nil
}

func (h *fileRunHandle) Set(ref *RunRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encoding run handle: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	if err := os.WriteFile(h.path, data, 0o644); err != nil {
		return fmt.Errorf("writing run handle: %w", err)
	}

	if ref.RunID != "" {
		h.exportToEnvFile(ref.RunID)
	}

	return nil
}

func (h *fileRunHandle) Clear() error {
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing run handle: %w", err)
	}

	return nil
}

// exportToEnvFile makes the run id visible to subsequent GitHub Actions
// steps. Best-effort: failures are ignored, the state file remains the
// source of truth on a shared filesystem.
func (h *fileRunHandle) exportToEnvFile(runID string) {
	envFile := os.Getenv("GITHUB_ENV")
	if envFile == "" {
		return
	}

	f, err := os.OpenFile(envFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "%s=%s\n", RunIDEnvVar, runID)
}

// memoryRunHandle keeps the run reference in memory for single-process
// harnesses.
type memoryRunHandle struct {
	ref *RunRef
}

// Compile-time interface check.
var _ RunHandle = (*memoryRunHandle)(nil)

// NewMemoryRunHandle creates an in-memory RunHandle.
func NewMemoryRunHandle() RunHandle {
	return &memoryRunHandle{}
}

func (h *memoryRunHandle) Get() (*RunRef, error) {
	if h.ref == nil {
		return nil, nil
	}

	ref := *h.ref

	return &ref, nil
}

func (h *memoryRunHandle) Set(ref *RunRef) error {
	r := *ref
	h.ref = &r

	return nil
}

func (h *memoryRunHandle) Clear() error {
	h.ref = nil

	return nil
}
