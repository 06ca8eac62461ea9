package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.IngestionJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.IngestionJob, error) {
	var job models.IngestionJob
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.IngestionJob, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts != nil {
		if opts.ThemeID != "" {
			query = query.And("ThemeID").Eq(opts.ThemeID)
		}
		if opts.Status != "" {
			query = query.And("Status").Eq(models.JobStatus(opts.Status))
		}
	}

	var jobs []models.IngestionJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	// Newest first. Sort before paging so offsets are stable.
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if opts != nil && opts.Offset > 0 {
		if opts.Offset >= len(jobs) {
			jobs = nil
		} else {
			jobs = jobs[opts.Offset:]
		}
	}
	if opts != nil && opts.Limit > 0 && opts.Limit < len(jobs) {
		jobs = jobs[:opts.Limit]
	}

	result := make([]*models.IngestionJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) CountJobs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.IngestionJob{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}

// DeleteJob removes a job together with its scrape jobs, attempts and
// extracted documents. Document deletes release their fingerprint claims,
// so re-ingesting the same content after a delete is not treated as a
// duplicate.
func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return err
	}

	var docs []models.ExtractedDocument
	if err := s.db.Store().Find(&docs, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to load documents for job %s: %w", jobID, err)
	}
	for i := range docs {
		if err := s.db.Store().Delete(docs[i].ID, &models.ExtractedDocument{}); err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to delete document %s: %w", docs[i].ID, err)
		}
		cid := claimID(docs[i].ThemeID, docs[i].Fingerprint)
		if err := s.db.Store().Delete(cid, &fingerprintClaim{}); err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to release fingerprint claim for document %s: %w", docs[i].ID, err)
		}
	}

	if err := s.db.Store().DeleteMatching(&models.ExtractionAttempt{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete attempts for job %s: %w", jobID, err)
	}
	if err := s.db.Store().DeleteMatching(&models.ScrapeJob{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete scrape jobs for job %s: %w", jobID, err)
	}
	if err := s.db.Store().Delete(jobID, &models.IngestionJob{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete job %s: %w", jobID, err)
	}

	s.logger.Debug().Str("job_id", jobID).Msg("Deleted job with children")
	return nil
}

func (s *JobStorage) SaveScrapeJob(ctx context.Context, unit *models.ScrapeJob) error {
	if unit.ID == "" {
		return fmt.Errorf("scrape job ID is required")
	}
	if unit.JobID == "" {
		return fmt.Errorf("parent job ID is required")
	}
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(unit.ID, unit); err != nil {
		return fmt.Errorf("failed to save scrape job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetScrapeJob(ctx context.Context, unitID string) (*models.ScrapeJob, error) {
	var unit models.ScrapeJob
	if err := s.db.Store().Get(unitID, &unit); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("scrape job not found: %s", unitID)
		}
		return nil, fmt.Errorf("failed to get scrape job: %w", err)
	}
	return &unit, nil
}

func (s *JobStorage) GetScrapeJobs(ctx context.Context, jobID string) ([]*models.ScrapeJob, error) {
	var units []models.ScrapeJob
	if err := s.db.Store().Find(&units, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to list scrape jobs: %w", err)
	}

	sort.Slice(units, func(i, j int) bool {
		return units[i].CreatedAt.Before(units[j].CreatedAt)
	})

	result := make([]*models.ScrapeJob, len(units))
	for i := range units {
		result[i] = &units[i]
	}
	return result, nil
}

func (s *JobStorage) GetUnitStats(ctx context.Context, jobID string) (*interfaces.UnitStats, error) {
	units, err := s.GetScrapeJobs(ctx, jobID)
	if err != nil {
		return nil, err
	}

	stats := &interfaces.UnitStats{Total: len(units)}
	for _, unit := range units {
		switch unit.Status {
		case models.ScrapeStatusPending:
			stats.Pending++
		case models.ScrapeStatusScraping:
			stats.Scraping++
		case models.ScrapeStatusExtracted:
			stats.Extracted++
		case models.ScrapeStatusFailed:
			stats.Failed++
		case models.ScrapeStatusSkipped:
			stats.Skipped++
		}
	}
	return stats, nil
}

func (s *JobStorage) SaveAttempt(ctx context.Context, attempt *models.ExtractionAttempt) error {
	if attempt.ID == "" {
		return fmt.Errorf("attempt ID is required")
	}
	if err := s.db.Store().Upsert(attempt.ID, attempt); err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}
	return nil
}

func (s *JobStorage) GetAttempts(ctx context.Context, unitID string) ([]*models.ExtractionAttempt, error) {
	var attempts []models.ExtractionAttempt
	if err := s.db.Store().Find(&attempts, badgerhold.Where("ScrapeJobID").Eq(unitID)); err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].StartedAt.Before(attempts[j].StartedAt)
	})

	result := make([]*models.ExtractionAttempt, len(attempts))
	for i := range attempts {
		result[i] = &attempts[i]
	}
	return result, nil
}
