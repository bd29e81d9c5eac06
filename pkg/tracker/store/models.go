package store

import (
	"time"
)

// Run statuses as stored.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// PipelineRun represents one full execution of a test suite.
type PipelineRun struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	RunID        string     `gorm:"uniqueIndex;not null" json:"run_id"`
	JobName      string     `json:"job_name"`
	BuildNumber  string     `json:"build_number,omitempty"`
	Branch       string     `json:"branch,omitempty"`
	Commit       string     `json:"commit,omitempty"`
	TriggeredBy  string     `json:"triggered_by,omitempty"`
	Environment  string     `json:"environment,omitempty"`
	Organization string     `json:"organization,omitempty"`
	CreatedBy    string     `json:"created_by,omitempty"`
	Status       string     `gorm:"not null;index" json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	DurationMs   int64      `json:"duration_ms"`
	Total        int        `json:"total"`
	Passed       int        `json:"passed"`
	Failed       int        `json:"failed"`
	Aborted      int        `json:"aborted"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TestCase represents one individual test's outcome within a run.
type TestCase struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	RunID        string    `gorm:"index;not null" json:"run_id"`
	Name         string    `gorm:"not null" json:"name"`
	Status       string    `gorm:"not null" json:"status"`
	DurationMs   int64     `json:"duration_ms"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
