package api

import (
	"github.com/cozy-blogs/carajillo/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router and all middleware.
func SetupRoutes(cfg *config.Config, h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// The sign-up form is embedded on the blogs, so cross-origin calls are
	// the normal case. Tokens travel in the Authorization header, never in
	// cookies, so credentials stay off.
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/lists", h.GetLists)

		r.With(h.rateLimited).Post("/subscription", h.Subscribe)
		r.With(h.requireToken).Get("/subscription", h.GetStatus)
		r.With(h.requireToken).Put("/subscription", h.UpdateSubscription)
	})

	return r
}
