package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/dart-portal/internal/app"
	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/config"
	"github.com/bobmcallan/dart-portal/internal/generation"
)

// minWriteTimeout covers the five sequential OpenDART calls of a statement request.
const minWriteTimeout = 3 * time.Minute

// Server manages the HTTP server and routes.
type Server struct {
	app    *app.App
	router *http.ServeMux
	server *http.Server
	logger *common.Logger
}

// New creates a new HTTP server with the given app.
func New(application *app.App) *Server {
	s := &Server{
		app:    application,
		logger: application.Logger,
	}

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout(application.Config.Gemini),
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// writeTimeout is the worst case for an explanation request: every attempt
// runs to its timeout with the full backoff between them, plus a minute.
func writeTimeout(gc config.GeminiConfig) time.Duration {
	attempts := gc.MaxAttempts
	if attempts <= 0 {
		attempts = generation.DefaultMaxAttempts
	}
	perAttempt := gc.Timeout.Duration
	if perAttempt <= 0 {
		perAttempt = generation.DefaultAttemptTimeout
	}
	unit := gc.BackoffUnit.Duration
	if unit <= 0 {
		unit = generation.DefaultBackoffUnit
	}
	// waits before attempts 2..n are 2^1..2^(n-1) units
	backoff := time.Duration(1<<uint(attempts)-2) * unit
	return max(time.Duration(attempts)*perAttempt+backoff+time.Minute, minWriteTimeout)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Str("url", fmt.Sprintf("http://%s", s.server.Addr)).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
