// Package api exposes the insight pipeline over HTTP. It is a thin layer:
// all numeric semantics live in the pipeline and its engines.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/adpilot/internal/pipeline"
)

// Server represents the API server.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer creates an API server around the pipeline orchestrator.
func NewServer(orchestrator *pipeline.Orchestrator) *Server {
	handlers := NewHandlers(orchestrator)
	return &Server{handler: SetupRoutes(handlers)}
}

// ListenAndServe starts the HTTP server. Timeouts are tight: the pipeline is
// a low-hundreds-of-milliseconds computation and requests carry no payloads
// beyond a small JSON body.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
