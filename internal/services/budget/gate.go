package budget

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Gate enforces a theme's daily extraction ceiling. The admission check at
// trigger time is advisory; the hard cap is Consume, whose conditional
// increment at the storage layer cannot overshoot the ceiling even under
// concurrent workers.
type Gate struct {
	storage interfaces.BudgetStorage
	logger  arbor.ILogger
}

// NewGate creates a budget gate over budget storage.
func NewGate(storage interfaces.BudgetStorage, logger arbor.ILogger) *Gate {
	return &Gate{
		storage: storage,
		logger:  logger,
	}
}

// Remaining returns the theme's unused capacity for today (never negative).
func (g *Gate) Remaining(ctx context.Context, themeID string, ceiling int) (int, error) {
	usage, err := g.storage.GetUsage(ctx, themeID, today(), ceiling)
	if err != nil {
		return 0, err
	}
	remaining := ceiling - usage.Used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Consume admits one committed extraction. Returns false without error
// when the ceiling is already reached.
func (g *Gate) Consume(ctx context.Context, themeID string, ceiling int) (bool, error) {
	admitted, used, err := g.storage.TryConsume(ctx, themeID, today(), ceiling)
	if err != nil {
		return false, err
	}
	if !admitted {
		g.logger.Debug().
			Str("theme_id", themeID).
			Int("used", used).
			Int("ceiling", ceiling).
			Msg("Budget ceiling reached")
	}
	return admitted, nil
}

// Usage returns today's counter for a theme.
func (g *Gate) Usage(ctx context.Context, themeID string, ceiling int) (*models.DailyBudgetUsage, error) {
	return g.storage.GetUsage(ctx, themeID, today(), ceiling)
}

// Reset zeroes today's counter for a theme without changing the ceiling.
func (g *Gate) Reset(ctx context.Context, themeID string) error {
	return g.storage.Reset(ctx, themeID, today())
}

func today() string {
	return models.BudgetDay(time.Now())
}
