package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/budget"
)

// ThemeHandler exposes read-only theme endpoints plus budget inspection and
// reset. Themes themselves are file-defined; there is no CRUD surface.
type ThemeHandler struct {
	storage interfaces.StorageManager
	gate    *budget.Gate
	logger  arbor.ILogger
}

// NewThemeHandler creates a ThemeHandler.
func NewThemeHandler(storage interfaces.StorageManager, gate *budget.Gate, logger arbor.ILogger) *ThemeHandler {
	return &ThemeHandler{
		storage: storage,
		gate:    gate,
		logger:  logger,
	}
}

// ListHandler handles GET /api/themes.
func (h *ThemeHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	themes, err := h.storage.Themes().ListThemes(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list themes")
		WriteError(w, http.StatusInternalServerError, "failed to list themes")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"themes": themes,
		"count":  len(themes),
	})
}

// GetHandler handles GET /api/themes/{slug}, returning the theme and its
// active config version.
func (h *ThemeHandler) GetHandler(w http.ResponseWriter, r *http.Request, slug string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	theme, err := h.storage.Themes().GetThemeBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, models.ErrThemeNotFound) {
			WriteError(w, http.StatusNotFound, "theme not found: "+slug)
			return
		}
		h.logger.Error().Err(err).Str("slug", slug).Msg("Failed to get theme")
		WriteError(w, http.StatusInternalServerError, "failed to get theme")
		return
	}

	response := map[string]interface{}{"theme": theme}
	if config, err := h.storage.Themes().GetActiveConfig(r.Context(), theme.ID); err == nil {
		response["config"] = config
	}

	WriteJSON(w, http.StatusOK, response)
}

// BudgetHandler handles GET /api/themes/{slug}/budget: today's counter.
func (h *ThemeHandler) BudgetHandler(w http.ResponseWriter, r *http.Request, slug string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	theme, config, ok := h.resolve(w, r, slug)
	if !ok {
		return
	}

	usage, err := h.gate.Usage(r.Context(), theme.ID, config.DailyBudget)
	if err != nil {
		h.logger.Error().Err(err).Str("slug", slug).Msg("Failed to read budget")
		WriteError(w, http.StatusInternalServerError, "failed to read budget")
		return
	}

	remaining := usage.Limit - usage.Used
	if remaining < 0 {
		remaining = 0
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"theme":     slug,
		"date":      usage.Date,
		"used":      usage.Used,
		"limit":     usage.Limit,
		"remaining": remaining,
	})
}

// BudgetResetHandler handles POST /api/themes/{slug}/budget/reset: zero
// today's counter without changing the ceiling.
func (h *ThemeHandler) BudgetResetHandler(w http.ResponseWriter, r *http.Request, slug string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	theme, _, ok := h.resolve(w, r, slug)
	if !ok {
		return
	}

	if err := h.gate.Reset(r.Context(), theme.ID); err != nil {
		h.logger.Error().Err(err).Str("slug", slug).Msg("Failed to reset budget")
		WriteError(w, http.StatusInternalServerError, "failed to reset budget")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"theme":  slug,
	})
}

func (h *ThemeHandler) resolve(w http.ResponseWriter, r *http.Request, slug string) (*models.Theme, *models.ThemeConfig, bool) {
	theme, err := h.storage.Themes().GetThemeBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, models.ErrThemeNotFound) {
			WriteError(w, http.StatusNotFound, "theme not found: "+slug)
		} else {
			h.logger.Error().Err(err).Str("slug", slug).Msg("Failed to get theme")
			WriteError(w, http.StatusInternalServerError, "failed to get theme")
		}
		return nil, nil, false
	}
	config, err := h.storage.Themes().GetActiveConfig(r.Context(), theme.ID)
	if err != nil {
		if errors.Is(err, models.ErrConfigMissing) {
			WriteError(w, http.StatusConflict, "theme has no active config: "+slug)
		} else {
			h.logger.Error().Err(err).Str("slug", slug).Msg("Failed to get theme config")
			WriteError(w, http.StatusInternalServerError, "failed to get theme config")
		}
		return nil, nil, false
	}
	return theme, config, true
}
