package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Themes (file-defined, read-only) and ingestion triggers
	mux.HandleFunc("/api/themes", s.app.ThemeHandler.ListHandler)
	mux.HandleFunc("/api/themes/", s.handleThemeRoutes) // /{slug}, /{slug}/ingest, /{slug}/budget[/reset]

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListHandler)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // /{id}, /{id}/status, /{id}/units

	// API routes - Units
	mux.HandleFunc("/api/units/", s.handleUnitRoutes) // /{id}/attempts

	// API routes - Documents
	mux.HandleFunc("/api/documents/stats", s.app.DocumentHandler.StatsHandler)
	mux.HandleFunc("/api/documents", s.app.DocumentHandler.ListHandler)
	mux.HandleFunc("/api/documents/", s.handleDocumentRoutes) // /{id}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleThemeRoutes routes /api/themes/{slug}[/...] requests
func (s *Server) handleThemeRoutes(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/themes/")
	if len(parts) == 0 || parts[0] == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	slug := parts[0]

	switch {
	case len(parts) == 1:
		s.app.ThemeHandler.GetHandler(w, r, slug)
	case len(parts) == 2 && parts[1] == "ingest":
		s.app.IngestionHandler.TriggerHandler(w, r, slug)
	case len(parts) == 2 && parts[1] == "budget":
		s.app.ThemeHandler.BudgetHandler(w, r, slug)
	case len(parts) == 3 && parts[1] == "budget" && parts[2] == "reset":
		s.app.ThemeHandler.BudgetResetHandler(w, r, slug)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleJobRoutes routes /api/jobs/{id}[/...] requests
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/jobs/")
	if len(parts) == 0 || parts[0] == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	jobID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.app.JobHandler.DeleteHandler(w, r, jobID)
	case len(parts) == 1:
		s.app.JobHandler.GetHandler(w, r, jobID)
	case len(parts) == 2 && parts[1] == "status":
		s.app.IngestionHandler.StatusHandler(w, r, jobID)
	case len(parts) == 2 && parts[1] == "units":
		s.app.JobHandler.UnitsHandler(w, r, jobID)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleUnitRoutes routes /api/units/{id}/attempts requests
func (s *Server) handleUnitRoutes(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/units/")
	if len(parts) == 2 && parts[1] == "attempts" {
		s.app.JobHandler.AttemptsHandler(w, r, parts[0])
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}

// handleDocumentRoutes routes /api/documents/{id} requests
func (s *Server) handleDocumentRoutes(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/documents/")
	if len(parts) == 1 && parts[0] != "" {
		s.app.DocumentHandler.GetHandler(w, r, parts[0])
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}

// pathParts splits the path remainder after prefix into non-empty segments
func pathParts(path, prefix string) []string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
