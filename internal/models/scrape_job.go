package models

import "time"

// ScrapeStatus represents the state of a single URL's extraction attempt
type ScrapeStatus string

const (
	ScrapeStatusPending   ScrapeStatus = "pending"
	ScrapeStatusScraping  ScrapeStatus = "scraping"
	ScrapeStatusExtracted ScrapeStatus = "extracted"
	ScrapeStatusFailed    ScrapeStatus = "failed"
	ScrapeStatusSkipped   ScrapeStatus = "skipped"
)

// IsTerminal reports whether no further transition can occur from s.
func (s ScrapeStatus) IsTerminal() bool {
	return s == ScrapeStatusExtracted || s == ScrapeStatusFailed || s == ScrapeStatusSkipped
}

// SkipReason explains a skipped unit. Skips are normal terminal outcomes,
// not errors.
type SkipReason string

const (
	SkipDuplicateContent SkipReason = "duplicate_content"
	SkipBudgetExhausted  SkipReason = "budget_exhausted"
)

// ScrapeJob is one URL's end-to-end extraction attempt, owned by an
// IngestionJob. Candidate metadata reported by the article index is
// snapshot on the unit so the worker needs no upstream round trip.
type ScrapeJob struct {
	ID           string       `json:"id"`
	JobID        string       `json:"job_id"`
	ThemeID      string       `json:"theme_id"`
	URL          string       `json:"url"`
	CanonicalURL string       `json:"canonical_url,omitempty"`
	Status       ScrapeStatus `json:"status"`
	SkipReason   SkipReason   `json:"skip_reason,omitempty"`
	Error        string       `json:"error,omitempty"`
	DocumentID   string       `json:"document_id,omitempty"`

	// Candidate metadata from the article index.
	Title         string     `json:"title,omitempty"`
	SourceDomain  string     `json:"source_domain,omitempty"`
	Language      string     `json:"language,omitempty"`
	SourceCountry string     `json:"source_country,omitempty"`
	SeenAt        *time.Time `json:"seen_at,omitempty"` // discovery date reported upstream

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ExtractionAttempt records one extraction try for a scrape job. Attempts
// are kept even for successful runs so the trail of timings and errors
// survives the unit's terminal transition.
type ExtractionAttempt struct {
	ID          string        `json:"id"`
	ScrapeJobID string        `json:"scrape_job_id"`
	JobID       string        `json:"job_id"`
	Strategy    string        `json:"strategy"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}
