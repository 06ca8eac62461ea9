package gdelt

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
)

// AggregateResult is the merged outcome of running every query batch.
type AggregateResult struct {
	Candidates    []models.Candidate
	BatchCount    int
	FailedBatches int

	// Degraded is set when every batch failed upstream. The candidate set
	// is then empty for a reason the caller may want to surface, since an
	// empty set is otherwise indistinguishable from a query matching
	// nothing.
	Degraded bool
}

// Aggregator fans a theme's terms out into query batches, runs them
// sequentially through the client, and merges the results with URL
// deduplication and locale/domain post-filters.
type Aggregator struct {
	client            *Client
	logger            arbor.ILogger
	maxQueryLength    int
	defaultMaxRecords int
}

// NewAggregator creates an Aggregator over an article index client.
func NewAggregator(client *Client, logger arbor.ILogger, cfg *common.GdeltConfig) *Aggregator {
	return &Aggregator{
		client:            client,
		logger:            logger,
		maxQueryLength:    cfg.MaxQueryLength,
		defaultMaxRecords: cfg.MaxRecords,
	}
}

// Collect gathers up to maxUnits candidates for a theme. One batch failing
// does not abort the others; the failure count and the all-batches-failed
// degradation are reported on the result instead of through an error.
func (a *Aggregator) Collect(ctx context.Context, theme *models.Theme, config *models.ThemeConfig, maxUnits int) (*AggregateResult, error) {
	queries := BuildQueries(theme.Terms, config.Languages, config.Regions, a.maxQueryLength)

	maxRecords := a.defaultMaxRecords
	if config.Overrides.MaxRecords > 0 {
		maxRecords = config.Overrides.MaxRecords
	}

	result := &AggregateResult{BatchCount: len(queries)}
	seen := make(map[string]bool)

	for i, query := range queries {
		candidates, err := a.client.FetchArticles(ctx, query, maxRecords, config.Overrides.Timespan)
		if err != nil {
			result.FailedBatches++
			a.logger.Warn().
				Err(err).
				Str("theme_id", theme.ID).
				Int("batch", i+1).
				Int("batches", len(queries)).
				Msg("Candidate batch failed, continuing with remaining batches")
			continue
		}

		for _, candidate := range candidates {
			if seen[candidate.URL] {
				continue
			}
			seen[candidate.URL] = true

			if !a.admit(&candidate, theme, config) {
				continue
			}
			result.Candidates = append(result.Candidates, candidate)
		}
	}

	result.Degraded = result.BatchCount > 0 && result.FailedBatches == result.BatchCount

	if maxUnits > 0 && len(result.Candidates) > maxUnits {
		result.Candidates = result.Candidates[:maxUnits]
	}

	a.logger.Info().
		Str("theme_id", theme.ID).
		Int("batches", result.BatchCount).
		Int("failed_batches", result.FailedBatches).
		Int("candidates", len(result.Candidates)).
		Msg("Candidate aggregation finished")

	return result, nil
}

// admit applies the post-filters: URL syntax, locale match, domain rules
// and article age.
func (a *Aggregator) admit(candidate *models.Candidate, theme *models.Theme, config *models.ThemeConfig) bool {
	if !common.IsHTTPURL(candidate.URL) {
		return false
	}

	// Locale filters are best-effort: candidates missing the metadata are
	// kept, mismatching metadata drops them.
	if len(config.Languages) > 0 && candidate.Language != "" && !matchesLocale(candidate.Language, config.Languages, LanguageName) {
		return false
	}
	if len(config.Regions) > 0 && candidate.SourceCountry != "" && !matchesLocale(candidate.SourceCountry, config.Regions, CountryName) {
		return false
	}

	if !matchesDomainRules(candidateDomain(candidate), theme.DomainRules) {
		return false
	}

	if config.MaxArticleAgeDays > 0 && candidate.SeenAt != nil {
		cutoff := time.Now().AddDate(0, 0, -config.MaxArticleAgeDays)
		if candidate.SeenAt.Before(cutoff) {
			return false
		}
	}

	return true
}

func candidateDomain(candidate *models.Candidate) string {
	if candidate.Domain != "" {
		return strings.TrimPrefix(strings.ToLower(candidate.Domain), "www.")
	}
	return common.SourceDomain(candidate.URL)
}

// matchesLocale compares the upstream-reported name against the configured
// codes' mapped names, case-insensitively and ignoring internal spaces
// ("United States" vs "unitedstates").
func matchesLocale(reported string, codes []string, mapName func(string) string) bool {
	normalized := strings.ReplaceAll(strings.ToLower(reported), " ", "")
	for _, code := range codes {
		if normalized == mapName(code) {
			return true
		}
	}
	return false
}

// matchesDomainRules applies block rules first, then the allow-list when
// one exists. A domain matches a rule exactly or as a subdomain suffix.
func matchesDomainRules(domain string, rules []models.DomainRule) bool {
	if domain == "" {
		return len(rules) == 0
	}

	hasAllow := false
	allowed := false
	for _, rule := range rules {
		match := domainMatches(domain, strings.ToLower(rule.Domain))
		switch rule.Rule {
		case models.DomainRuleBlock:
			if match {
				return false
			}
		case models.DomainRuleAllow:
			hasAllow = true
			if match {
				allowed = true
			}
		}
	}
	if hasAllow {
		return allowed
	}
	return true
}

func domainMatches(domain, ruleDomain string) bool {
	return domain == ruleDomain || strings.HasSuffix(domain, "."+ruleDomain)
}
