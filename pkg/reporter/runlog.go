package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RunLog is an append-only log of per-test records for the current run.
// It is reset by Start, appended to by RecordTest, and read back once by
// Finish. Appends are assumed to be serialized by the harness; the file
// backend is not safe for concurrent writers.
type RunLog interface {
	// Reset discards all records, starting a fresh run.
	Reset() error

	// Append adds one record to the end of the log.
	Append(rec TestRecord) error

	// ReadAll returns every record appended since the last Reset.
	ReadAll() ([]TestRecord, error)
}

// fileRunLog persists records as a JSON array at a fixed path so that
// separate sequential process invocations share one log.
type fileRunLog struct {
	path string
}

// Compile-time interface check.
var _ RunLog = (*fileRunLog)(nil)

// NewFileRunLog creates a RunLog backed by a JSON file at path.
func NewFileRunLog(path string) RunLog {
	return &fileRunLog{path: path}
}

func (l *fileRunLog) Reset() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	if err := os.WriteFile(l.path, []byte("[]"), 0o644); err != nil {
		return fmt.Errorf("resetting run log: %w", err)
	}

	return nil
}

func (l *fileRunLog) Append(rec TestRecord) error {
	records, err := l.ReadAll()
	if err != nil {
		return err
	}

	records = append(records, rec)

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding run log: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("writing run log: %w", err)
	}

	return nil
}

func (l *fileRunLog) ReadAll() ([]TestRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []TestRecord{}, nil
		}

		return nil, fmt.Errorf("reading run log: %w", err)
	}

	var records []TestRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing run log: %w", err)
	}

	return records, nil
}

// memoryRunLog keeps records in memory for single-process harnesses.
type memoryRunLog struct {
	mu      sync.Mutex
	records []TestRecord
}

// Compile-time interface check.
var _ RunLog = (*memoryRunLog)(nil)

// NewMemoryRunLog creates an in-memory RunLog.
func NewMemoryRunLog() RunLog {
	return &memoryRunLog{}
}

func (l *memoryRunLog) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = nil

	return nil
}

func (l *memoryRunLog) Append(rec TestRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)

	return nil
}

func (l *memoryRunLog) ReadAll() ([]TestRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]TestRecord, len(l.records))
	copy(out, l.records)

	return out, nil
}
