package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/ingest"
)

// themeEntry tracks one theme's registered cron schedule.
type themeEntry struct {
	slug     string
	schedule string
	cronID   cron.EntryID
	lastRun  *time.Time
	lastErr  string
}

// Service triggers scheduled ingestion runs for themes that declare a cron
// schedule. Themes without a schedule are manual-only.
type Service struct {
	storage     interfaces.StorageManager
	coordinator *ingest.Coordinator
	cron        *cron.Cron
	logger      arbor.ILogger

	mu      sync.Mutex
	entries map[string]*themeEntry
	running bool
}

// NewService creates a scheduler service.
func NewService(storage interfaces.StorageManager, coordinator *ingest.Coordinator, logger arbor.ILogger) *Service {
	return &Service{
		storage:     storage,
		coordinator: coordinator,
		cron:        cron.New(),
		logger:      logger,
		entries:     make(map[string]*themeEntry),
	}
}

// Start registers every scheduled theme and starts the cron runner.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	themes, err := s.storage.Themes().ListThemes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list themes: %w", err)
	}

	registered := 0
	for _, theme := range themes {
		if theme.Schedule == "" {
			continue
		}
		entry := &themeEntry{slug: theme.Slug, schedule: theme.Schedule}
		cronID, err := s.cron.AddFunc(theme.Schedule, func() { s.runTheme(entry) })
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("slug", theme.Slug).
				Str("schedule", theme.Schedule).
				Msg("Invalid theme schedule, skipping")
			continue
		}
		entry.cronID = cronID
		s.entries[theme.Slug] = entry
		registered++
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().Int("scheduled_themes", registered).Msg("Scheduler started")
	return nil
}

// Stop halts the cron runner, waiting for an in-flight trigger to return.
// The lock is released before the wait so in-flight runs can record their
// outcome without deadlocking against the shutdown.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCtx := s.cron.Stop()
	s.running = false
	s.mu.Unlock()

	select {
	case <-stopCtx.Done():
	case <-time.After(10 * time.Second):
		s.logger.Warn().Msg("Timed out waiting for scheduled runs to stop")
	}

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Service) runTheme(entry *themeEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	s.mu.Lock()
	entry.lastRun = &now
	s.mu.Unlock()

	result, err := s.coordinator.Trigger(ctx, entry.slug, models.TriggerScheduled)
	if err != nil {
		s.mu.Lock()
		entry.lastErr = err.Error()
		s.mu.Unlock()
		// Exhausted budget is routine for a busy theme, not a fault.
		if errors.Is(err, models.ErrBudgetExhausted) {
			s.logger.Debug().Str("slug", entry.slug).Msg("Scheduled run skipped, budget exhausted")
			return
		}
		s.logger.Warn().Err(err).Str("slug", entry.slug).Msg("Scheduled ingestion failed to start")
		return
	}

	s.mu.Lock()
	entry.lastErr = ""
	s.mu.Unlock()
	s.logger.Info().
		Str("slug", entry.slug).
		Str("job_id", result.JobID).
		Int("urls_found", result.URLsFound).
		Msg("Scheduled ingestion started")
}
