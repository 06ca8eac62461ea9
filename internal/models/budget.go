package models

import "time"

// DailyBudgetUsage is a per-theme-per-day extraction counter. Used is only
// ever incremented by a committed successful extraction, through the
// storage layer's conditional increment, so it never exceeds Limit.
type DailyBudgetUsage struct {
	ID      string    `json:"id"` // themeID|YYYY-MM-DD
	ThemeID string    `json:"theme_id"`
	Date    string    `json:"date"` // YYYY-MM-DD, UTC
	Used    int       `json:"used"`
	Limit   int       `json:"limit"`

	UpdatedAt time.Time `json:"updated_at"`
}

// BudgetDay formats a time as the budget counter's day key (UTC).
func BudgetDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// BudgetUsageID builds the storage key for a theme's counter on a day.
func BudgetUsageID(themeID string, day string) string {
	return themeID + "|" + day
}
