package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for coordinator-level faults. These abort an ingestion
// run before any job row is created.
var (
	// ErrThemeNotFound indicates the requested theme slug is unknown.
	ErrThemeNotFound = errors.New("theme not found")

	// ErrConfigMissing indicates a theme has no active config version.
	ErrConfigMissing = errors.New("theme has no active config")

	// ErrJobNotFound indicates an unknown ingestion job id.
	ErrJobNotFound = errors.New("ingestion job not found")

	// ErrBudgetExhausted indicates the daily budget admission check failed
	// before any units were created.
	ErrBudgetExhausted = errors.New("daily extraction budget exhausted")
)

// UpstreamError wraps a failure of the external article-index API: non-2xx
// status, wrong content type, or an undecodable body. Retried by the
// client; surfaced to the aggregator once retries are exhausted.
type UpstreamError struct {
	StatusCode int
	Message    string
	Query      string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// IsUpstreamError reports whether err is (or wraps) an UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
