package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Account and transaction metrics
	AccountsCreated     prometheus.Counter
	AccountsClosed      prometheus.Counter
	TransactionsAdded   *prometheus.CounterVec
	TransactionsRemoved *prometheus.CounterVec

	// Matching metrics
	MatchesCreated    *prometheus.CounterVec
	MatchesReversed   prometheus.Counter
	MatchConfidence   prometheus.Histogram
	ClaimConflicts    prometheus.Counter
	AutoRunDuration   prometheus.Histogram
	SuggestionLookups prometheus.Counter

	// Session metrics
	SessionsStarted *prometheus.CounterVec
	SessionsClosed  *prometheus.CounterVec

	// Discrepancy metrics
	DiscrepanciesCreated  *prometheus.CounterVec
	DiscrepanciesResolved prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Database metrics
	DBErrors  *prometheus.CounterVec
	DBRetries prometheus.Counter

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		AccountsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bankrecon_accounts_created_total",
			Help: "Total number of bank accounts registered",
		}),
		AccountsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "bankrecon_accounts_closed_total",
			Help: "Total number of bank accounts closed",
		}),
		TransactionsAdded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankrecon_transactions_added_total",
				Help: "Total number of bank transactions added",
			},
			[]string{"source"},
		),
		TransactionsRemoved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankrecon_transactions_removed_total",
				Help: "Total number of bank transactions excluded or deleted",
			},
			[]string{"action"},
		),

		MatchesCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankrecon_matches_created_total",
				Help: "Total number of matches created",
			},
			[]string{"type"},
		),
		MatchesReversed: f.NewCounter(prometheus.CounterOpts{
			Name: "bankrecon_matches_reversed_total",
			Help: "Total number of matches reversed",
		}),
		MatchConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankrecon_match_confidence",
			Help:    "Confidence of created matches",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100},
		}),
		ClaimConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "bankrecon_claim_conflicts_total",
			Help: "Auto-run claims lost to a concurrent match",
		}),
		AutoRunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankrecon_autorun_duration_seconds",
			Help:    "Duration of session auto-runs",
			Buckets: prometheus.DefBuckets,
		}),
		SuggestionLookups: f.NewCounter(prometheus.CounterOpts{
			Name: "bankrecon_suggestion_lookups_total",
			Help: "Total number of suggestion requests",
		}),

		SessionsStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankrecon_sessions_started_total",
				Help: "Session start attempts by outcome",
			},
			[]string{"outcome"},
		),
		SessionsClosed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankrecon_sessions_closed_total",
				Help: "Sessions closed by terminal status",
			},
			[]string{"status"},
		),

		DiscrepanciesCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankrecon_discrepancies_created_total",
				Help: "Total number of discrepancies recorded",
			},
			[]string{"type"},
		),
		DiscrepanciesResolved: f.NewCounter(prometheus.CounterOpts{
			Name: "bankrecon_discrepancies_resolved_total",
			Help: "Total number of discrepancies resolved",
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankrecon_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankrecon_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "bankrecon_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		DBErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankrecon_db_errors_total",
				Help: "Database errors by kind",
			},
			[]string{"kind"},
		),
		DBRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "bankrecon_db_retries_total",
			Help: "Retried serialization failures and deadlocks",
		}),

		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankrecon_outbox_events_published_total",
				Help: "Outbox events relayed by event type",
			},
			[]string{"event_type"},
		),
	}
}
