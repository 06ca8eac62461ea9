package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/ingest"
)

// triggerResponse is the synchronous trigger contract. Field casing is part
// of the polling client's API and differs from internal storage tags.
type triggerResponse struct {
	IngestionJobID  string `json:"ingestionJobId"`
	Status          string `json:"status"`
	URLsFound       int    `json:"urlsFound"`
	URLsProcessed   int    `json:"urlsProcessed"`
	RemainingBudget int    `json:"remainingBudget"`
}

// statusResponse is the polling contract.
type statusResponse struct {
	JobID          string     `json:"jobId"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	TotalUnits     int        `json:"totalUnits"`
	CompletedUnits int        `json:"completedUnits"`
	FailedUnits    int        `json:"failedUnits"`
	SkippedUnits   int        `json:"skippedUnits"`
	ScrapingUnits  int        `json:"scrapingUnits"`
	PendingUnits   int        `json:"pendingUnits"`
	StatusMessage  string     `json:"statusMessage"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// IngestionHandler exposes the ingestion trigger and polling endpoints.
type IngestionHandler struct {
	coordinator *ingest.Coordinator
	logger      arbor.ILogger
}

// NewIngestionHandler creates an IngestionHandler.
func NewIngestionHandler(coordinator *ingest.Coordinator, logger arbor.ILogger) *IngestionHandler {
	return &IngestionHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// TriggerHandler handles POST /api/themes/{slug}/ingest. It returns as soon
// as the run's units are dispatched; progress is observed via polling.
func (h *IngestionHandler) TriggerHandler(w http.ResponseWriter, r *http.Request, slug string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	result, err := h.coordinator.Trigger(r.Context(), slug, models.TriggerManual)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrThemeNotFound):
			WriteError(w, http.StatusNotFound, "theme not found: "+slug)
		case errors.Is(err, models.ErrConfigMissing):
			WriteError(w, http.StatusConflict, "theme has no active config: "+slug)
		case errors.Is(err, models.ErrBudgetExhausted):
			WriteError(w, http.StatusTooManyRequests, "daily extraction budget exhausted")
		default:
			h.logger.Error().Err(err).Str("slug", slug).Msg("Ingestion trigger failed")
			WriteError(w, http.StatusInternalServerError, "ingestion trigger failed")
		}
		return
	}

	WriteJSON(w, http.StatusOK, triggerResponse{
		IngestionJobID:  result.JobID,
		Status:          string(result.Status),
		URLsFound:       result.URLsFound,
		URLsProcessed:   result.URLsProcessed,
		RemainingBudget: result.RemainingBudget,
	})
}

// StatusHandler handles GET /api/jobs/{id}/status.
func (h *IngestionHandler) StatusHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report, err := h.coordinator.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "job not found: "+jobID)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Status report failed")
		WriteError(w, http.StatusInternalServerError, "status report failed")
		return
	}

	WriteJSON(w, http.StatusOK, statusResponse{
		JobID:          report.JobID,
		Status:         string(report.Status),
		Progress:       report.Progress,
		TotalUnits:     report.TotalUnits,
		CompletedUnits: report.CompletedUnits,
		FailedUnits:    report.FailedUnits,
		SkippedUnits:   report.SkippedUnits,
		ScrapingUnits:  report.ScrapingUnits,
		PendingUnits:   report.PendingUnits,
		StatusMessage:  report.StatusMessage,
		CreatedAt:      report.CreatedAt,
		CompletedAt:    report.CompletedAt,
	})
}
