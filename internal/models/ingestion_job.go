package models

import "time"

// JobStatus represents the state of an ingestion job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transition can occur from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// TriggerType records how an ingestion run was started
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
)

// CompletionReason qualifies a completed job. Per-URL failures never fail
// the parent job; a fully degraded candidate fetch still completes, with
// the degradation surfaced here instead of through the state machine.
type CompletionReason string

const (
	CompletionOK           CompletionReason = "ok"
	CompletionNoCandidates CompletionReason = "no_candidates"
	CompletionDegraded     CompletionReason = "degraded" // every candidate batch failed upstream
)

// IngestionJob is one ingestion run for a theme. It owns an ordered set of
// ScrapeJob children and reaches a terminal state if and only if every
// child has reached one.
//
// Lifecycle: pending (created, no children) -> running (candidate fetch
// happened, children exist) -> completed/failed. "failed" is reserved for
// coordinator-level faults; a job whose units all failed still completes.
type IngestionJob struct {
	ID               string           `json:"id"`
	ThemeID          string           `json:"theme_id"`
	ConfigVersion    int              `json:"config_version"` // config snapshot bound at trigger time
	Trigger          TriggerType      `json:"trigger"`
	Status           JobStatus        `json:"status"`
	CompletionReason CompletionReason `json:"completion_reason,omitempty"`
	Error            string           `json:"error,omitempty"`

	// Snapshot counters, synced when the job reaches a terminal status.
	URLsFound      int `json:"urls_found"`
	TotalUnits     int `json:"total_units"`
	ExtractedUnits int `json:"extracted_units"`
	FailedUnits    int `json:"failed_units"`
	SkippedUnits   int `json:"skipped_units"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
