package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// themeFile is the on-disk TOML shape of a theme definition. The decoder
// runs in strict mode: an unknown key anywhere in the file (including under
// [config.overrides]) rejects the whole file instead of being silently
// dropped or forwarded upstream.
type themeFile struct {
	Name             string              `toml:"name" validate:"required"`
	Slug             string              `toml:"slug" validate:"required"`
	DeliveryEndpoint string              `toml:"delivery_endpoint"`
	Schedule         string              `toml:"schedule"`
	Terms            []models.TopicTerm  `toml:"terms" validate:"required,min=1,dive"`
	DomainRules      []models.DomainRule `toml:"domain_rules" validate:"dive"`
	Config           themeFileConfig     `toml:"config"`
}

type themeFileConfig struct {
	Languages         []string               `toml:"languages"`
	Regions           []string               `toml:"regions"`
	MinTextLength     int                    `toml:"min_text_length" validate:"min=0"`
	MinQualityScore   float64                `toml:"min_quality_score" validate:"min=0,max=1"`
	DailyBudget       int                    `toml:"daily_budget" validate:"min=1"`
	HourlyRate        int                    `toml:"hourly_rate" validate:"min=0"`
	MaxArticleAgeDays int                    `toml:"max_article_age_days" validate:"min=0"`
	Overrides         models.ConfigOverrides `toml:"overrides"`
}

// LoadThemesFromFiles loads theme definitions from TOML files in the
// specified directory. Existing themes are matched by slug; when a theme's
// config settings changed since the active version, a new config version is
// appended rather than mutating the old one.
func LoadThemesFromFiles(ctx context.Context, themeStorage interfaces.ThemeStorage, themesDir string, logger arbor.ILogger) error {
	if _, err := os.Stat(themesDir); os.IsNotExist(err) {
		logger.Debug().Str("dir", themesDir).Msg("Themes directory does not exist, skipping")
		return nil
	}

	logger.Info().Str("dir", themesDir).Msg("Loading themes from files")

	entries, err := os.ReadDir(themesDir)
	if err != nil {
		return fmt.Errorf("failed to read themes directory: %w", err)
	}

	loadedCount := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}

		filePath := filepath.Join(themesDir, entry.Name())
		tomlBytes, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read theme file")
			continue
		}

		var file themeFile
		decoder := toml.NewDecoder(bytes.NewReader(tomlBytes))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&file); err != nil {
			var strictErr *toml.StrictMissingError
			if errors.As(err, &strictErr) {
				logger.Warn().Str("file", entry.Name()).Str("detail", strictErr.String()).Msg("Theme file contains unknown keys, rejecting")
			} else {
				logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse theme TOML")
			}
			continue
		}

		if err := validator.New().Struct(&file); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Theme file validation failed, rejecting")
			continue
		}

		if err := loadTheme(ctx, themeStorage, &file, logger); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Str("slug", file.Slug).Msg("Failed to load theme")
			continue
		}
		loadedCount++
	}

	logger.Info().Int("count", loadedCount).Msg("Themes loaded from files")
	return nil
}

func loadTheme(ctx context.Context, themeStorage interfaces.ThemeStorage, file *themeFile, logger arbor.ILogger) error {
	theme, err := themeStorage.GetThemeBySlug(ctx, file.Slug)
	if err != nil {
		if !errors.Is(err, models.ErrThemeNotFound) {
			return err
		}
		theme = &models.Theme{ID: common.NewThemeID(), Slug: file.Slug}
	}

	theme.Name = file.Name
	theme.DeliveryEndpoint = file.DeliveryEndpoint
	theme.Schedule = file.Schedule
	theme.Terms = file.Terms
	theme.DomainRules = file.DomainRules

	if err := themeStorage.SaveTheme(ctx, theme); err != nil {
		return err
	}

	next := &models.ThemeConfig{
		ThemeID:           theme.ID,
		Languages:         file.Config.Languages,
		Regions:           file.Config.Regions,
		MinTextLength:     file.Config.MinTextLength,
		MinQualityScore:   file.Config.MinQualityScore,
		DailyBudget:       file.Config.DailyBudget,
		HourlyRate:        file.Config.HourlyRate,
		MaxArticleAgeDays: file.Config.MaxArticleAgeDays,
		Overrides:         file.Config.Overrides,
	}

	active, err := themeStorage.GetActiveConfig(ctx, theme.ID)
	switch {
	case errors.Is(err, models.ErrConfigMissing):
		next.Version = 1
	case err != nil:
		return err
	case configEquals(active, next):
		logger.Debug().Str("slug", theme.Slug).Int("version", active.Version).Msg("Theme config unchanged")
		return nil
	default:
		next.Version = active.Version + 1
	}

	if err := themeStorage.SaveConfig(ctx, next); err != nil {
		return err
	}

	logger.Info().Str("slug", theme.Slug).Int("version", next.Version).Msg("Theme config version saved")
	return nil
}

// configEquals compares the settings payload of two config versions,
// ignoring identity and timestamps.
func configEquals(a, b *models.ThemeConfig) bool {
	na, nb := *a, *b
	na.ID, nb.ID = "", ""
	na.Version, nb.Version = 0, 0
	na.CreatedAt, nb.CreatedAt = b.CreatedAt, b.CreatedAt
	return reflect.DeepEqual(na, nb)
}
