package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iho/hostledger/internal/adapter/http/handler"
	"github.com/iho/hostledger/internal/adapter/http/middleware"
	"github.com/iho/hostledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler     *handler.LedgerHandler
	BalanceHandler    *handler.BalanceHandler
	SettlementHandler *handler.SettlementHandler
	CheckpointHandler *handler.CheckpointHandler
	HealthHandler     *handler.HealthHandler
	RefreshStatus     *handler.RefreshStatusHandler
	IdempotencyStore  usecase.IdempotencyStore
	RateLimiter       *middleware.RateLimiter
	RequestLogger     *middleware.LoggingMiddleware
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if cfg.RequestLogger != nil {
		r.Use(cfg.RequestLogger.Wrap)
	} else {
		r.Use(chimiddleware.Logger)
	}
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Ledger writes
		r.Route("/ledger", func(r chi.Router) {
			r.Post("/events", cfg.LedgerHandler.RecordEvent)
			r.Post("/groups", cfg.LedgerHandler.RecordGroup)
			r.Get("/groups/{id}", cfg.LedgerHandler.GetGroup)
			r.Post("/groups/{id}/reverse", cfg.LedgerHandler.Reverse)
			r.Post("/entries/{id}/void", cfg.LedgerHandler.Void)
			r.Get("/consistency", cfg.LedgerHandler.CheckConsistency)
		})

		// Account reads
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/{id}/balance", cfg.BalanceHandler.Get)
			r.Get("/{id}/entries", cfg.LedgerHandler.ListByAccount)
			r.Get("/{id}/checkpoint", cfg.CheckpointHandler.Get)
			r.Post("/{id}/checkpoint/refresh", cfg.CheckpointHandler.Refresh)
		})

		// Debt settlement
		r.Get("/hosts/{id}/debts", cfg.SettlementHandler.ListDebts)
		r.Post("/settlements", cfg.SettlementHandler.Settle)

		if cfg.RefreshStatus != nil {
			r.Get("/checkpoints/refresh-status", cfg.RefreshStatus.Get)
		}
	})

	return r
}
