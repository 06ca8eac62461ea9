package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// JobHandler exposes ingestion job listing and inspection endpoints.
type JobHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(storage interfaces.StorageManager, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListHandler handles GET /api/jobs with theme, status, limit and offset
// query parameters.
func (h *JobHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit, offset := GetPagingParams(r)
	opts := &interfaces.JobListOptions{
		ThemeID: r.URL.Query().Get("theme"),
		Status:  r.URL.Query().Get("status"),
		Limit:   limit,
		Offset:  offset,
	}

	jobs, err := h.storage.Jobs().ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetHandler handles GET /api/jobs/{id}.
func (h *JobHandler) GetHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.storage.Jobs().GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "job not found: "+jobID)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// DeleteHandler handles DELETE /api/jobs/{id}. Deletion cascades to the
// job's scrape jobs and extraction attempts.
func (h *JobHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if err := h.storage.Jobs().DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "job not found: "+jobID)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to delete job")
		WriteError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"job_id": jobID,
	})
}

// UnitsHandler handles GET /api/jobs/{id}/units: the job's scrape jobs in
// creation order, including per-unit errors and skip reasons.
func (h *JobHandler) UnitsHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if _, err := h.storage.Jobs().GetJob(r.Context(), jobID); err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "job not found: "+jobID)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	units, err := h.storage.Jobs().GetScrapeJobs(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to list units")
		WriteError(w, http.StatusInternalServerError, "failed to list units")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"units":  units,
		"count":  len(units),
	})
}

// AttemptsHandler handles GET /api/units/{id}/attempts.
func (h *JobHandler) AttemptsHandler(w http.ResponseWriter, r *http.Request, unitID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	attempts, err := h.storage.Jobs().GetAttempts(r.Context(), unitID)
	if err != nil {
		h.logger.Error().Err(err).Str("unit_id", unitID).Msg("Failed to list attempts")
		WriteError(w, http.StatusInternalServerError, "failed to list attempts")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"unit_id":  unitID,
		"attempts": attempts,
		"count":    len(attempts),
	})
}
