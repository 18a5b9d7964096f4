package server

import (
	"net/http"

	"github.com/bobmcallan/dart-portal/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// MCP endpoint (streamable HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.Handle("/api/health", s.app.HealthHandler)
	mux.Handle("/api/version", s.app.VersionHandler)
	mux.Handle("/api/search", s.app.SearchHandler)
	mux.Handle("/api/financial-statement", s.app.StatementsHandler)
	mux.Handle("/api/explain-financial-statement", s.app.ExplainHandler)
	mux.Handle("/api/reload-data", s.app.ReloadHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)
	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusNotFound, handlers.ErrorBody{
		Error:  "Not Found",
		Detail: "The requested endpoint does not exist",
	})
}
