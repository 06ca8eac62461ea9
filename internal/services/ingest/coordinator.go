package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/budget"
	"github.com/ternarybob/colligo/internal/services/gdelt"
)

// TriggerResult is the synchronous response of starting an ingestion run.
// All further progress is observed by polling the tracker.
type TriggerResult struct {
	JobID           string
	Status          models.JobStatus
	URLsFound       int
	URLsProcessed   int
	RemainingBudget int
}

// Coordinator runs the ingestion state machine: resolve config, admit
// against budget, gather candidates, fan units out to workers, and hand
// completion tracking to the Tracker.
type Coordinator struct {
	storage    interfaces.StorageManager
	aggregator *gdelt.Aggregator
	gate       *budget.Gate
	worker     *Worker
	tracker    *Tracker
	logger     arbor.ILogger

	// baseCtx parents dispatched unit work so it outlives the trigger
	// request but stops on service shutdown.
	baseCtx context.Context
}

// NewCoordinator creates a Coordinator. baseCtx should be the service
// lifetime context, not a request context.
func NewCoordinator(baseCtx context.Context, storage interfaces.StorageManager, aggregator *gdelt.Aggregator, gate *budget.Gate, worker *Worker, tracker *Tracker, logger arbor.ILogger) *Coordinator {
	return &Coordinator{
		storage:    storage,
		aggregator: aggregator,
		gate:       gate,
		worker:     worker,
		tracker:    tracker,
		logger:     logger,
		baseCtx:    baseCtx,
	}
}

// Trigger starts an ingestion run for a theme and returns as soon as units
// are dispatched. Dispatched units are fire-and-forget: they run on the
// service context and record their outcomes durably.
//
// Pre-flight failures (unknown theme, missing config, exhausted budget)
// surface as sentinel errors and never create a job.
func (c *Coordinator) Trigger(ctx context.Context, slug string, trigger models.TriggerType) (*TriggerResult, error) {
	theme, err := c.storage.Themes().GetThemeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	config, err := c.storage.Themes().GetActiveConfig(ctx, theme.ID)
	if err != nil {
		return nil, err
	}

	remaining, err := c.gate.Remaining(ctx, theme.ID, config.DailyBudget)
	if err != nil {
		return nil, fmt.Errorf("budget check failed: %w", err)
	}
	if remaining <= 0 {
		return nil, models.ErrBudgetExhausted
	}

	job := &models.IngestionJob{
		ID:            common.NewJobID(),
		ThemeID:       theme.ID,
		ConfigVersion: config.Version,
		Trigger:       trigger,
		Status:        models.JobStatusPending,
		CreatedAt:     time.Now(),
	}
	if err := c.storage.Jobs().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	c.logger.Info().
		Str("job_id", job.ID).
		Str("theme", slug).
		Str("trigger", string(trigger)).
		Int("remaining_budget", remaining).
		Msg("Ingestion run started")

	agg, err := c.aggregator.Collect(ctx, theme, config, remaining)
	if err != nil {
		return nil, c.failJob(ctx, job, fmt.Errorf("candidate aggregation failed: %w", err))
	}

	if len(agg.Candidates) == 0 {
		reason := models.CompletionNoCandidates
		if agg.Degraded {
			reason = models.CompletionDegraded
		}
		if err := c.completeEmpty(ctx, job, reason); err != nil {
			return nil, err
		}
		return &TriggerResult{
			JobID:           job.ID,
			Status:          job.Status,
			RemainingBudget: remaining,
		}, nil
	}

	units := make([]*models.ScrapeJob, 0, len(agg.Candidates))
	for _, candidate := range agg.Candidates {
		unit := &models.ScrapeJob{
			ID:            common.NewUnitID(),
			JobID:         job.ID,
			ThemeID:       theme.ID,
			URL:           candidate.URL,
			Status:        models.ScrapeStatusPending,
			Title:         candidate.Title,
			SourceDomain:  candidate.Domain,
			Language:      candidate.Language,
			SourceCountry: candidate.SourceCountry,
			SeenAt:        candidate.SeenAt,
			CreatedAt:     time.Now(),
		}
		if err := c.storage.Jobs().SaveScrapeJob(ctx, unit); err != nil {
			return nil, c.failJob(ctx, job, fmt.Errorf("failed to create scrape job: %w", err))
		}
		units = append(units, unit)
	}

	now := time.Now()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	job.URLsFound = len(agg.Candidates)
	job.TotalUnits = len(units)
	if agg.FailedBatches > 0 && agg.FailedBatches < agg.BatchCount {
		// Partial upstream degradation with candidates still found.
		c.logger.Warn().
			Str("job_id", job.ID).
			Int("failed_batches", agg.FailedBatches).
			Int("batches", agg.BatchCount).
			Msg("Some candidate batches failed")
	}
	if err := c.storage.Jobs().SaveJob(ctx, job); err != nil {
		return nil, c.failJob(ctx, job, fmt.Errorf("failed to start job: %w", err))
	}

	for _, unit := range units {
		u := unit
		common.SafeGoWithContext(c.baseCtx, c.logger, "ingest.unit."+u.ID, func() {
			c.worker.Process(c.baseCtx, u, config)
		})
	}

	return &TriggerResult{
		JobID:           job.ID,
		Status:          job.Status,
		URLsFound:       job.URLsFound,
		URLsProcessed:   0,
		RemainingBudget: remaining,
	}, nil
}

// Status returns the polling view for a job.
func (c *Coordinator) Status(ctx context.Context, jobID string) (*StatusReport, error) {
	return c.tracker.Report(ctx, jobID)
}

// completeEmpty finishes a run that produced no units. Zero units means
// there is nothing to wait for; the job completes immediately.
func (c *Coordinator) completeEmpty(ctx context.Context, job *models.IngestionJob, reason models.CompletionReason) error {
	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.CompletionReason = reason
	job.StartedAt = &now
	job.CompletedAt = &now
	if err := c.storage.Jobs().SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to complete empty job: %w", err)
	}
	c.logger.Info().
		Str("job_id", job.ID).
		Str("reason", string(reason)).
		Msg("Ingestion run completed with zero units")
	return nil
}

// failJob marks a coordinator-level fault. Per-URL failures never route
// through here; "failed" is reserved for faults of the run itself.
func (c *Coordinator) failJob(ctx context.Context, job *models.IngestionJob, cause error) error {
	now := time.Now()
	job.Status = models.JobStatusFailed
	job.Error = cause.Error()
	job.CompletedAt = &now
	if err := c.storage.Jobs().SaveJob(ctx, job); err != nil {
		c.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist job failure")
	}
	c.logger.Error().Err(cause).Str("job_id", job.ID).Msg("Ingestion run failed")
	return cause
}
