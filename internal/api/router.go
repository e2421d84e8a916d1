// Package api provides the HTTP API of the admin dashboard.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/peternagy/consultadmin/internal/api/handler"
	"github.com/peternagy/consultadmin/internal/api/middleware"
	"github.com/peternagy/consultadmin/internal/api/response"
)

// DefaultRateLimitPerMinute applies when RouterConfig leaves the limit unset.
const DefaultRateLimitPerMinute = 60

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version            string
	Logger             zerolog.Logger
	Metrics            *middleware.Metrics
	Snapshots          handler.SnapshotSource
	Readiness          handler.Readiness
	RateLimitPerMinute int
}

// NewRouter creates the chi router with every route configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// order matters: IDs first so every later layer can log them
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	limit := cfg.RateLimitPerMinute
	if limit <= 0 {
		limit = DefaultRateLimitPerMinute
	}

	ops := handler.NewOpsHandler(cfg.Version, cfg.Readiness)
	analytics := handler.NewAnalyticsHandler(cfg.Snapshots)

	r.Get("/healthz", ops.Liveness)
	r.Get("/readyz", ops.Readiness)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(middleware.RateLimitConfig{
			RequestLimit: limit,
			WindowLength: time.Minute,
		}))
		r.Get("/analytics", analytics.GetSnapshot)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Fail(w, http.StatusNotFound, response.CodeNotFound, "no such route")
	})

	return r
}
