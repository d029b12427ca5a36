package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cozy-blogs/carajillo/internal/config"
	"github.com/cozy-blogs/carajillo/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// Server wraps the HTTP server and its router.
type Server struct {
	config   *config.Config
	handlers *Handlers
	server   *http.Server
	router   *chi.Mux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg *config.Config, h *Handlers) *Server {
	router := SetupRoutes(cfg, h)
	return &Server{
		config:   cfg,
		handlers: h,
		router:   router,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.GetHost(), s.config.Server.Port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}
