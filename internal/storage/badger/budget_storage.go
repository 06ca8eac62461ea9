package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// BudgetStorage implements the BudgetStorage interface for Badger. A single
// mutex serializes read-modify-write on the counters; budget checks are
// rare relative to extraction work, so contention is negligible.
type BudgetStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewBudgetStorage creates a new BudgetStorage instance
func NewBudgetStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BudgetStorage {
	return &BudgetStorage{
		db:     db,
		logger: logger,
	}
}

func (s *BudgetStorage) GetUsage(ctx context.Context, themeID, day string, ceiling int) (*models.DailyBudgetUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrCreate(themeID, day, ceiling)
}

// TryConsume admits one unit when used < ceiling, incrementing the counter.
// The mutex makes check-and-increment atomic, so the ceiling is a hard cap
// even under concurrent workers.
func (s *BudgetStorage) TryConsume(ctx context.Context, themeID, day string, ceiling int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage, err := s.loadOrCreate(themeID, day, ceiling)
	if err != nil {
		return false, 0, err
	}

	if usage.Used >= ceiling {
		return false, usage.Used, nil
	}

	usage.Used++
	usage.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(usage.ID, usage); err != nil {
		return false, usage.Used - 1, fmt.Errorf("failed to update budget counter: %w", err)
	}
	return true, usage.Used, nil
}

func (s *BudgetStorage) Reset(ctx context.Context, themeID, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := models.BudgetUsageID(themeID, day)
	var usage models.DailyBudgetUsage
	if err := s.db.Store().Get(id, &usage); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to get budget counter: %w", err)
	}

	usage.Used = 0
	usage.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(id, &usage); err != nil {
		return fmt.Errorf("failed to reset budget counter: %w", err)
	}

	s.logger.Info().Str("theme_id", themeID).Str("day", day).Msg("Budget counter reset")
	return nil
}

// loadOrCreate returns the counter for the theme/day, creating it lazily.
// Callers must hold s.mu.
func (s *BudgetStorage) loadOrCreate(themeID, day string, ceiling int) (*models.DailyBudgetUsage, error) {
	id := models.BudgetUsageID(themeID, day)

	var usage models.DailyBudgetUsage
	err := s.db.Store().Get(id, &usage)
	if err == badgerhold.ErrNotFound {
		usage = models.DailyBudgetUsage{
			ID:        id,
			ThemeID:   themeID,
			Date:      day,
			Used:      0,
			Limit:     ceiling,
			UpdatedAt: time.Now(),
		}
		if err := s.db.Store().Upsert(id, &usage); err != nil {
			return nil, fmt.Errorf("failed to create budget counter: %w", err)
		}
		return &usage, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget counter: %w", err)
	}

	// The ceiling lives in theme config; keep the stored limit in sync so
	// reads reflect the current config version.
	if usage.Limit != ceiling {
		usage.Limit = ceiling
		usage.UpdatedAt = time.Now()
		if err := s.db.Store().Upsert(id, &usage); err != nil {
			return nil, fmt.Errorf("failed to update budget limit: %w", err)
		}
	}
	return &usage, nil
}
