package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrb-labs/videograb/internal/api/handler"
	mw "github.com/mrb-labs/videograb/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured. The
// historyHandler may be nil when history is disabled; its routes are
// simply not registered.
func NewRouter(
	videoHandler *handler.VideoHandler,
	healthHandler *handler.HealthHandler,
	historyHandler *handler.HistoryHandler,
	corsOrigin string,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(middleware.Recoverer)

	// CORS for browser frontends
	r.Use(mw.CORS(corsOrigin))

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Legacy fetch endpoint kept for existing frontends. No router timeout:
	// large transfers run as long as the download config allows.
	r.Post("/get_video", videoHandler.Fetch)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/videos/fetch", videoHandler.Fetch)

		if historyHandler != nil {
			r.With(middleware.Timeout(10 * time.Second)).Get("/history", historyHandler.List)
		}
	})

	return r
}
