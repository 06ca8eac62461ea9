package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// ThemeStorage persists themes and their append-only config history.
type ThemeStorage interface {
	SaveTheme(ctx context.Context, theme *models.Theme) error
	GetTheme(ctx context.Context, themeID string) (*models.Theme, error)
	GetThemeBySlug(ctx context.Context, slug string) (*models.Theme, error)
	ListThemes(ctx context.Context) ([]*models.Theme, error)

	// SaveConfig appends a new config version. The caller sets Version;
	// versions are never mutated in place.
	SaveConfig(ctx context.Context, config *models.ThemeConfig) error

	// GetActiveConfig returns the config with the highest version for the
	// theme, or models.ErrConfigMissing when none exists.
	GetActiveConfig(ctx context.Context, themeID string) (*models.ThemeConfig, error)
}

// JobListOptions filters and pages job listings.
type JobListOptions struct {
	ThemeID string
	Status  string
	Limit   int
	Offset  int
}

// UnitStats aggregates child scrape-job statuses for one ingestion job.
type UnitStats struct {
	Total     int
	Pending   int
	Scraping  int
	Extracted int
	Failed    int
	Skipped   int
}

// Terminal returns the number of children in a terminal status.
func (s *UnitStats) Terminal() int {
	return s.Extracted + s.Failed + s.Skipped
}

// JobStorage persists ingestion jobs, their scrape-job children and
// extraction attempts. Deleting a job cascades to its children.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.IngestionJob) error
	GetJob(ctx context.Context, jobID string) (*models.IngestionJob, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.IngestionJob, error)
	CountJobs(ctx context.Context) (int, error)
	DeleteJob(ctx context.Context, jobID string) error

	SaveScrapeJob(ctx context.Context, unit *models.ScrapeJob) error
	GetScrapeJob(ctx context.Context, unitID string) (*models.ScrapeJob, error)
	GetScrapeJobs(ctx context.Context, jobID string) ([]*models.ScrapeJob, error)
	GetUnitStats(ctx context.Context, jobID string) (*UnitStats, error)

	SaveAttempt(ctx context.Context, attempt *models.ExtractionAttempt) error
	GetAttempts(ctx context.Context, unitID string) ([]*models.ExtractionAttempt, error)
}

// DocumentListOptions filters and pages document listings.
type DocumentListOptions struct {
	ThemeID string
	Limit   int
	Offset  int
}

// DocumentStorage persists extracted documents with per-theme fingerprint
// uniqueness.
type DocumentStorage interface {
	// CreateIfAbsent persists doc unless a document with the same
	// (theme, fingerprint) pair already exists. The check-and-create is a
	// single atomic operation; it returns false when the fingerprint was
	// already claimed.
	CreateIfAbsent(ctx context.Context, doc *models.ExtractedDocument) (bool, error)

	// Delete removes a document and releases its fingerprint claim.
	Delete(ctx context.Context, docID string) error

	GetDocument(ctx context.Context, docID string) (*models.ExtractedDocument, error)
	HasFingerprint(ctx context.Context, themeID, fingerprint string) (bool, error)
	ListDocuments(ctx context.Context, opts *DocumentListOptions) ([]*models.ExtractedDocument, error)
	Stats(ctx context.Context) (*models.DocumentStats, error)
}

// BudgetStorage persists per-theme-per-day extraction counters. Counters
// are created lazily with used=0 on first access.
type BudgetStorage interface {
	// GetUsage returns the counter for the theme/day, creating it when
	// absent. The stored limit is refreshed from ceiling.
	GetUsage(ctx context.Context, themeID, day string, ceiling int) (*models.DailyBudgetUsage, error)

	// TryConsume atomically increments the counter when used < ceiling.
	// Returns whether the unit was admitted and the resulting used count.
	TryConsume(ctx context.Context, themeID, day string, ceiling int) (bool, int, error)

	// Reset sets used back to 0 for the theme/day without changing the limit.
	Reset(ctx context.Context, themeID, day string) error
}

// StorageManager is the facade over all storage backends.
type StorageManager interface {
	Themes() ThemeStorage
	Jobs() JobStorage
	Documents() DocumentStorage
	Budget() BudgetStorage

	// LoadThemesFromFiles loads theme definitions from TOML files in a
	// directory, versioning configs that changed since the last load.
	LoadThemesFromFiles(ctx context.Context, dirPath string) error

	Close() error
}
