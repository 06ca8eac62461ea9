package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// StatusReport is the derived view of one ingestion job for polling
// clients.
type StatusReport struct {
	JobID          string
	Status         models.JobStatus
	Progress       int // 0-100
	TotalUnits     int
	CompletedUnits int // units that produced a document
	FailedUnits    int
	SkippedUnits   int
	ScrapingUnits  int
	PendingUnits   int
	StatusMessage  string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// Tracker derives job progress from durable unit state and applies the
// terminal transition when the last sibling lands. Everything it reports is
// computed from storage, never from in-process call stacks, so a poller's
// view survives process restarts.
type Tracker struct {
	jobs   interfaces.JobStorage
	logger arbor.ILogger

	// mu serializes the completion re-check. The transition itself is
	// idempotent; the mutex just keeps concurrent completions from
	// interleaving their read-check-write cycles.
	mu sync.Mutex
}

// NewTracker creates a Tracker over job storage.
func NewTracker(jobs interfaces.JobStorage, logger arbor.ILogger) *Tracker {
	return &Tracker{
		jobs:   jobs,
		logger: logger,
	}
}

// Report loads a job and its children and derives the polling view.
func (t *Tracker) Report(ctx context.Context, jobID string) (*StatusReport, error) {
	job, err := t.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	stats, err := t.jobs.GetUnitStats(ctx, jobID)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		JobID:          job.ID,
		Status:         job.Status,
		TotalUnits:     stats.Total,
		CompletedUnits: stats.Extracted,
		FailedUnits:    stats.Failed,
		SkippedUnits:   stats.Skipped,
		ScrapingUnits:  stats.Scraping,
		PendingUnits:   stats.Pending,
		Progress:       progress(job.Status, stats),
		StatusMessage:  statusMessage(job, stats),
		CreatedAt:      job.CreatedAt,
		CompletedAt:    job.CompletedAt,
	}
	return report, nil
}

// OnUnitTerminal re-checks whether all sibling units of a job are terminal
// and, if so, completes the parent. Safe to call from every unit's
// completion path concurrently; late or repeated calls are no-ops.
func (t *Tracker) OnUnitTerminal(ctx context.Context, jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.jobs.GetJob(ctx, jobID)
	if err != nil {
		t.logger.Warn().Err(err).Str("job_id", jobID).Msg("Completion re-check failed to load job")
		return
	}
	if job.Status.IsTerminal() {
		return
	}

	stats, err := t.jobs.GetUnitStats(ctx, jobID)
	if err != nil {
		t.logger.Warn().Err(err).Str("job_id", jobID).Msg("Completion re-check failed to load unit stats")
		return
	}
	if stats.Total == 0 || stats.Terminal() < stats.Total {
		return
	}

	now := time.Now()
	job.Status = models.JobStatusCompleted
	if job.CompletionReason == "" {
		job.CompletionReason = models.CompletionOK
	}
	job.CompletedAt = &now
	job.TotalUnits = stats.Total
	job.ExtractedUnits = stats.Extracted
	job.FailedUnits = stats.Failed
	job.SkippedUnits = stats.Skipped

	if err := t.jobs.SaveJob(ctx, job); err != nil {
		t.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to persist job completion")
		return
	}

	t.logger.Info().
		Str("job_id", jobID).
		Int("total", stats.Total).
		Int("extracted", stats.Extracted).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Msg("Ingestion job completed")
}

// progress maps unit counts to 0-100. Small nonzero floors keep a UI
// progress bar off 0% while work exists: 2% when units exist but none have
// started, 5% while units are actively scraping.
func progress(status models.JobStatus, stats *interfaces.UnitStats) int {
	if status.IsTerminal() {
		return 100
	}
	if stats.Total == 0 {
		return 0
	}

	pct := stats.Terminal() * 100 / stats.Total
	if pct == 0 {
		if stats.Scraping > 0 {
			return 5
		}
		return 2
	}
	if pct >= 100 {
		// All units terminal but the parent transition has not landed yet.
		return 99
	}
	return pct
}

func statusMessage(job *models.IngestionJob, stats *interfaces.UnitStats) string {
	switch job.Status {
	case models.JobStatusPending:
		return "waiting for candidates"
	case models.JobStatusRunning:
		return fmt.Sprintf("processing %d of %d URLs", stats.Terminal(), stats.Total)
	case models.JobStatusFailed:
		if job.Error != "" {
			return "failed: " + job.Error
		}
		return "failed"
	case models.JobStatusCompleted:
		switch job.CompletionReason {
		case models.CompletionNoCandidates:
			return "completed: no candidate URLs found"
		case models.CompletionDegraded:
			return "completed: candidate source unavailable"
		default:
			return fmt.Sprintf("completed: %d extracted, %d failed, %d skipped", stats.Extracted, stats.Failed, stats.Skipped)
		}
	default:
		return string(job.Status)
	}
}
