package models

import "time"

// Candidate is a URL plus metadata returned by the article index, not yet
// scraped. Language and SourceCountry are reported as names (e.g.
// "Portuguese", "Brazil") and may be empty.
type Candidate struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Domain        string     `json:"domain"`
	Language      string     `json:"language"`
	SourceCountry string     `json:"source_country"`
	SeenAt        *time.Time `json:"seen_at,omitempty"`
}
