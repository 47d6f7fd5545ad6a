package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/bankrecon/internal/adapter/http/handler"
	"github.com/iho/bankrecon/internal/adapter/http/middleware"
	"github.com/iho/bankrecon/internal/infrastructure/metrics"
	"github.com/iho/bankrecon/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler     *handler.AccountHandler
	TransactionHandler *handler.TransactionHandler
	RuleHandler        *handler.RuleHandler
	SessionHandler     *handler.SessionHandler
	MatchingHandler    *handler.MatchingHandler
	DiscrepancyHandler *handler.DiscrepancyHandler
	ReportHandler      *handler.ReportHandler
	EventHandler       *handler.EventHandler
	HealthHandler      *handler.HealthHandler

	Logger           zerolog.Logger
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Post("/{id}/close", cfg.AccountHandler.Close)
			r.Put("/{id}/channel", cfg.AccountHandler.LinkChannel)
			r.Post("/{id}/transactions", cfg.TransactionHandler.Add)
			r.Get("/{id}/transactions", cfg.TransactionHandler.List)
			r.Get("/{id}/sessions", cfg.SessionHandler.List)
			r.Get("/{id}/sessions/active", cfg.SessionHandler.Active)
			r.Get("/{id}/outstanding", cfg.ReportHandler.OutstandingItems)
			r.Get("/{id}/balance-comparison", cfg.ReportHandler.BalanceComparison)
		})

		r.Route("/transactions/{id}", func(r chi.Router) {
			r.Get("/", cfg.TransactionHandler.Get)
			r.Delete("/", cfg.TransactionHandler.Delete)
			r.Post("/exclude", cfg.TransactionHandler.Exclude)
			r.Get("/suggestions", cfg.MatchingHandler.Suggestions)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Post("/", cfg.RuleHandler.Create)
			r.Get("/", cfg.RuleHandler.List)
			r.Get("/{id}", cfg.RuleHandler.Get)
			r.Put("/{id}", cfg.RuleHandler.Update)
			r.Delete("/{id}", cfg.RuleHandler.Delete)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", cfg.SessionHandler.Start)
			r.Get("/{id}", cfg.SessionHandler.Get)
			r.Post("/{id}/complete", cfg.SessionHandler.Complete)
			r.Post("/{id}/reject", cfg.SessionHandler.Reject)
			r.Post("/{id}/auto-match", cfg.MatchingHandler.AutoMatch)
			r.Post("/{id}/matches", cfg.MatchingHandler.CreateManual)
			r.Get("/{id}/matches", cfg.MatchingHandler.List)
			r.Post("/{id}/discrepancies", cfg.DiscrepancyHandler.Create)
			r.Get("/{id}/discrepancies", cfg.DiscrepancyHandler.List)
			r.Get("/{id}/summary", cfg.ReportHandler.SessionSummary)
		})

		r.Route("/matches/{id}", func(r chi.Router) {
			r.Get("/", cfg.MatchingHandler.Get)
			r.Delete("/", cfg.MatchingHandler.Unmatch)
		})

		r.Route("/discrepancies/{id}", func(r chi.Router) {
			r.Get("/", cfg.DiscrepancyHandler.Get)
			r.Post("/resolve", cfg.DiscrepancyHandler.Resolve)
			r.Post("/escalate", cfg.DiscrepancyHandler.Escalate)
		})

		r.Get("/reports/balances", cfg.ReportHandler.CompareAll)

		if cfg.EventHandler != nil {
			r.Get("/events/{type}/{id}", cfg.EventHandler.List)
		}
	})

	return r
}
