package models

import "time"

// ExtractedDocument is the persisted result of a successful extraction.
// Text is the whitespace-normalized plain text used for fingerprinting and
// length checks; ContentMarkdown is the markdown rendering of the article
// body kept for downstream consumers.
//
// Fingerprint is unique per theme: a second document with the same
// fingerprint is never created - the owning ScrapeJob is marked skipped
// instead. Uniqueness is enforced atomically by document storage.
type ExtractedDocument struct {
	ID               string     `json:"id"` // doc_{uuid}
	ThemeID          string     `json:"theme_id"`
	ScrapeJobID      string     `json:"scrape_job_id"`
	JobID            string     `json:"job_id"`
	URL              string     `json:"url"`
	CanonicalURL     string     `json:"canonical_url"` // scheme+host+path, trailing slash stripped
	SourceDomain     string     `json:"source_domain"` // bare host, leading www. stripped
	Title            string     `json:"title"`
	Text             string     `json:"text"`
	ContentMarkdown  string     `json:"content_markdown"`
	TextLength       int        `json:"text_length"`
	QualityScore     float64    `json:"quality_score"`
	Fingerprint      string     `json:"fingerprint"`
	ExtractionMethod string     `json:"extraction_method"`
	PublishedAt      *time.Time `json:"published_at,omitempty"` // page metadata, falling back to upstream seendate
	ScrapedAt        time.Time  `json:"scraped_at"`
}

// DocumentStats summarizes stored documents for the stats endpoint.
type DocumentStats struct {
	TotalDocuments    int            `json:"total_documents"`
	DocumentsByTheme  map[string]int `json:"documents_by_theme"`
	DocumentsByDomain map[string]int `json:"documents_by_domain"`
	AverageTextLength int            `json:"average_text_length"`
}
