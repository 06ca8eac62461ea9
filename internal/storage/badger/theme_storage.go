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

// ThemeStorage implements the ThemeStorage interface for Badger
type ThemeStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewThemeStorage creates a new ThemeStorage instance
func NewThemeStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ThemeStorage {
	return &ThemeStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ThemeStorage) SaveTheme(ctx context.Context, theme *models.Theme) error {
	if theme.ID == "" {
		return fmt.Errorf("theme ID is required")
	}
	if theme.Slug == "" {
		return fmt.Errorf("theme slug is required")
	}

	now := time.Now()
	if theme.CreatedAt.IsZero() {
		theme.CreatedAt = now
	}
	theme.UpdatedAt = now

	if err := s.db.Store().Upsert(theme.ID, theme); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

func (s *ThemeStorage) GetTheme(ctx context.Context, themeID string) (*models.Theme, error) {
	var theme models.Theme
	if err := s.db.Store().Get(themeID, &theme); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrThemeNotFound
		}
		return nil, fmt.Errorf("failed to get theme: %w", err)
	}
	return &theme, nil
}

func (s *ThemeStorage) GetThemeBySlug(ctx context.Context, slug string) (*models.Theme, error) {
	var themes []models.Theme
	if err := s.db.Store().Find(&themes, badgerhold.Where("Slug").Eq(slug)); err != nil {
		return nil, fmt.Errorf("failed to find theme by slug: %w", err)
	}
	if len(themes) == 0 {
		return nil, models.ErrThemeNotFound
	}
	return &themes[0], nil
}

func (s *ThemeStorage) ListThemes(ctx context.Context) ([]*models.Theme, error) {
	var themes []models.Theme
	if err := s.db.Store().Find(&themes, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}

	sort.Slice(themes, func(i, j int) bool {
		return themes[i].Slug < themes[j].Slug
	})

	result := make([]*models.Theme, len(themes))
	for i := range themes {
		result[i] = &themes[i]
	}
	return result, nil
}

func (s *ThemeStorage) SaveConfig(ctx context.Context, config *models.ThemeConfig) error {
	if config.ThemeID == "" {
		return fmt.Errorf("theme ID is required")
	}
	if config.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}

	config.ID = models.ConfigID(config.ThemeID, config.Version)
	if config.CreatedAt.IsZero() {
		config.CreatedAt = time.Now()
	}

	// Insert, not Upsert: config versions are append-only.
	if err := s.db.Store().Insert(config.ID, config); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("config version %d already exists for theme %s", config.Version, config.ThemeID)
		}
		return fmt.Errorf("failed to save theme config: %w", err)
	}
	return nil
}

func (s *ThemeStorage) GetActiveConfig(ctx context.Context, themeID string) (*models.ThemeConfig, error) {
	var configs []models.ThemeConfig
	if err := s.db.Store().Find(&configs, badgerhold.Where("ThemeID").Eq(themeID)); err != nil {
		return nil, fmt.Errorf("failed to find theme configs: %w", err)
	}
	if len(configs) == 0 {
		return nil, models.ErrConfigMissing
	}

	active := &configs[0]
	for i := range configs {
		if configs[i].Version > active.Version {
			active = &configs[i]
		}
	}
	return active, nil
}
