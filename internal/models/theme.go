package models

import (
	"fmt"
	"time"
)

// DomainRuleType controls whether a domain rule admits or drops candidates
type DomainRuleType string

const (
	DomainRuleAllow DomainRuleType = "allow"
	DomainRuleBlock DomainRuleType = "block"
)

// TopicTerm is a weighted search term attached to a theme. Weight orders
// terms when packing query batches; heavier terms land in earlier batches.
type TopicTerm struct {
	Name   string  `json:"name" toml:"name" validate:"required"`
	Weight float64 `json:"weight" toml:"weight"`
}

// DomainRule restricts which source domains a theme accepts. Block rules
// take precedence over allow rules.
type DomainRule struct {
	Domain string         `json:"domain" toml:"domain" validate:"required,fqdn"`
	Rule   DomainRuleType `json:"rule" toml:"rule" validate:"required,oneof=allow block"`
}

// Theme is a named scraping target. Themes are loaded from TOML definition
// files on startup; the service exposes no CRUD surface for them.
type Theme struct {
	ID               string       `json:"id"`
	Name             string       `json:"name" toml:"name" validate:"required"`
	Slug             string       `json:"slug" toml:"slug" validate:"required"`
	DeliveryEndpoint string       `json:"delivery_endpoint,omitempty" toml:"delivery_endpoint"`
	Schedule         string       `json:"schedule,omitempty" toml:"schedule"` // optional cron expression for scheduled ingestion
	Terms            []TopicTerm  `json:"terms" toml:"terms" validate:"dive"`
	DomainRules      []DomainRule `json:"domain_rules,omitempty" toml:"domain_rules" validate:"dive"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// ConfigOverrides is the enumerated set of raw query overrides a theme may
// set. Unknown keys in theme files are rejected at load time rather than
// merged blindly into the upstream query.
type ConfigOverrides struct {
	Timespan   string `json:"timespan,omitempty" toml:"timespan"`       // e.g. "3d", "1w" - passed to the article index verbatim
	MaxRecords int    `json:"max_records,omitempty" toml:"max_records"` // per-batch record ceiling
}

// ThemeConfig is an immutable, versioned snapshot of a theme's ingestion
// settings. Edits always append version N+1; the active config is the one
// with the highest version number.
type ThemeConfig struct {
	ID                string          `json:"id"` // themeID|version
	ThemeID           string          `json:"theme_id"`
	Version           int             `json:"version"`
	Languages         []string        `json:"languages,omitempty" toml:"languages"` // ISO 639-1 codes
	Regions           []string        `json:"regions,omitempty" toml:"regions"`     // ISO 3166-1 alpha-2 codes
	MinTextLength     int             `json:"min_text_length" toml:"min_text_length" validate:"min=0"`
	MinQualityScore   float64         `json:"min_quality_score" toml:"min_quality_score" validate:"min=0,max=1"`
	DailyBudget       int             `json:"daily_budget" toml:"daily_budget" validate:"min=1"`
	HourlyRate        int             `json:"hourly_rate" toml:"hourly_rate" validate:"min=0"`
	MaxArticleAgeDays int             `json:"max_article_age_days" toml:"max_article_age_days" validate:"min=0"`
	Overrides         ConfigOverrides `json:"overrides" toml:"overrides"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ConfigID builds the storage key for a theme config version.
func ConfigID(themeID string, version int) string {
	return fmt.Sprintf("%s|v%d", themeID, version)
}
