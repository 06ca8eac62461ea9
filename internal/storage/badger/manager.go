package badger

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	theme    interfaces.ThemeStorage
	job      interfaces.JobStorage
	document interfaces.DocumentStorage
	budget   interfaces.BudgetStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		theme:    NewThemeStorage(db, logger),
		job:      NewJobStorage(db, logger),
		document: NewDocumentStorage(db, logger),
		budget:   NewBudgetStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// Themes returns the Theme storage interface
func (m *Manager) Themes() interfaces.ThemeStorage {
	return m.theme
}

// Jobs returns the Job storage interface
func (m *Manager) Jobs() interfaces.JobStorage {
	return m.job
}

// Documents returns the Document storage interface
func (m *Manager) Documents() interfaces.DocumentStorage {
	return m.document
}

// Budget returns the Budget storage interface
func (m *Manager) Budget() interfaces.BudgetStorage {
	return m.budget
}

// LoadThemesFromFiles loads theme definitions from TOML files
func (m *Manager) LoadThemesFromFiles(ctx context.Context, dirPath string) error {
	return LoadThemesFromFiles(ctx, m.theme, dirPath, m.logger)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
