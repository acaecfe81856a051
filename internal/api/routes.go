package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/feast-calendar/internal/config"
)

// SetupRoutes configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET  /health                           database health
//	GET  /metrics                          Prometheus exposition
//	GET  /api/v1/feasts?from=Y&to=Y        feasts for a range of years
//	GET  /api/v1/feasts/{year}             feasts for one year (archived on first request)
//	GET  /api/v1/feasts/{year}/{slug}      a single feast
//	POST /api/v1/feasts/{year}/refresh     recompute and re-archive (API key)
//	GET  /api/v1/archive                   archived years
func SetupRoutes(handlers *Handlers, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	// ==========================================================================
	// Operational routes
	// ==========================================================================
	r.Get("/health", handlers.HealthCheck)
	r.Method(http.MethodGet, "/metrics", handlers.metrics.Handler())

	// ==========================================================================
	// Feast routes
	// ==========================================================================
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/feasts", handlers.GetRange)
		r.Get("/feasts/{year}", handlers.GetYear)
		r.Get("/feasts/{year}/{slug}", handlers.GetFeast)
		r.Get("/archive", handlers.ListArchive)

		r.With(AuthMiddleware(cfg, logger)).Post("/feasts/{year}/refresh", handlers.RefreshYear)
	})

	return r
}
