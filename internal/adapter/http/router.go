package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/cashbook/internal/adapter/http/handler"
	"github.com/iho/cashbook/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler    *handler.LedgerHandler
	QueueHandler     *handler.QueueHandler
	ReconcileHandler *handler.ReconcileHandler
	HealthHandler    *handler.HealthHandler
	Logger           zerolog.Logger
	RateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/companies/{companyId}/entities/{entityId}", func(r chi.Router) {
			r.Put("/entries/{date}", cfg.LedgerHandler.Save)
			r.Get("/entries/{date}", cfg.LedgerHandler.Get)
			r.Get("/entries", cfg.LedgerHandler.List)
			r.Get("/opening-balance", cfg.LedgerHandler.OpeningBalance)
			r.Get("/chain", cfg.LedgerHandler.VerifyChain)
			r.Post("/reconcile", cfg.ReconcileHandler.Reconcile)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", cfg.QueueHandler.Status)
			r.Post("/replay", cfg.QueueHandler.Replay)
			r.Get("/dead-letters", cfg.QueueHandler.DeadLetters)
		})
	})

	return r
}
