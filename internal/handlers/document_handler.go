package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
)

// DocumentHandler exposes extracted document endpoints.
type DocumentHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(storage interfaces.StorageManager, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListHandler handles GET /api/documents with theme, limit and offset
// query parameters.
func (h *DocumentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit, offset := GetPagingParams(r)
	opts := &interfaces.DocumentListOptions{
		ThemeID: r.URL.Query().Get("theme"),
		Limit:   limit,
		Offset:  offset,
	}

	docs, err := h.storage.Documents().ListDocuments(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list documents")
		WriteError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// GetHandler handles GET /api/documents/{id}.
func (h *DocumentHandler) GetHandler(w http.ResponseWriter, r *http.Request, docID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	doc, err := h.storage.Documents().GetDocument(r.Context(), docID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, "document not found: "+docID)
			return
		}
		h.logger.Error().Err(err).Str("doc_id", docID).Msg("Failed to get document")
		WriteError(w, http.StatusInternalServerError, "failed to get document")
		return
	}

	WriteJSON(w, http.StatusOK, doc)
}

// StatsHandler handles GET /api/documents/stats.
func (h *DocumentHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := h.storage.Documents().Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute document stats")
		WriteError(w, http.StatusInternalServerError, "failed to compute document stats")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
