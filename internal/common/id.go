package common

import (
	"github.com/google/uuid"
)

// NewThemeID generates a unique theme ID with the "theme_" prefix
func NewThemeID() string {
	return "theme_" + uuid.New().String()
}

// NewJobID generates a unique ingestion job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewUnitID generates a unique scrape job ID with the "unit_" prefix
func NewUnitID() string {
	return "unit_" + uuid.New().String()
}

// NewDocumentID generates a unique document ID with the "doc_" prefix
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewAttemptID generates a unique extraction attempt ID with the "att_" prefix
func NewAttemptID() string {
	return "att_" + uuid.New().String()
}
