package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Write path metrics
	EntriesSaved  prometheus.Counter
	SaveErrors    *prometheus.CounterVec
	EntriesQueued prometheus.Counter
	SaveDuration  prometheus.Histogram

	// Offline queue metrics
	QueueDepth          prometheus.Gauge
	ReplayPasses        prometheus.Counter
	ActionsReplayed     prometheus.Counter
	ActionsFailed       prometheus.Counter
	ActionsDeadLettered prometheus.Counter
	DeadLetterDepth     prometheus.Gauge

	// Presence metrics
	PresenceSignals *prometheus.CounterVec

	// Reconciliation metrics
	ReconcileRuns    prometheus.Counter
	ReconcileMatches prometheus.Histogram

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Database metrics
	DBConnections prometheus.Gauge
	DBErrors      *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Write path metrics
		EntriesSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashbook_entries_saved_total",
			Help: "Total number of ledger entries saved",
		}),
		SaveErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashbook_save_errors_total",
				Help: "Total number of save failures by reason",
			},
			[]string{"reason"},
		),
		EntriesQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashbook_entries_queued_total",
			Help: "Total number of saves degraded to the offline queue",
		}),
		SaveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cashbook_save_duration_seconds",
			Help:    "Duration of ledger entry saves",
			Buckets: prometheus.DefBuckets,
		}),

		// Offline queue metrics
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cashbook_queue_depth",
			Help: "Current number of pending offline actions",
		}),
		ReplayPasses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashbook_replay_passes_total",
			Help: "Total number of replay passes started",
		}),
		ActionsReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashbook_actions_replayed_total",
			Help: "Total number of offline actions replayed successfully",
		}),
		ActionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashbook_actions_failed_total",
			Help: "Total number of offline action replay failures",
		}),
		ActionsDeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashbook_actions_dead_lettered_total",
			Help: "Total number of offline actions moved to the dead-letter store",
		}),
		DeadLetterDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cashbook_dead_letter_depth",
			Help: "Current number of dead-lettered actions",
		}),

		// Presence metrics
		PresenceSignals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashbook_presence_signals_total",
				Help: "Total presence signals published by type",
			},
			[]string{"type"},
		),

		// Reconciliation metrics
		ReconcileRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashbook_reconcile_runs_total",
			Help: "Total number of reconciliation passes",
		}),
		ReconcileMatches: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cashbook_reconcile_matches",
			Help:    "Matched pairs per reconciliation pass",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),

		// Cache metrics
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashbook_cache_hits_total",
			Help: "Total ledger cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashbook_cache_misses_total",
			Help: "Total ledger cache misses",
		}),

		// Database metrics
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cashbook_db_connections",
			Help: "Current number of database connections",
		}),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashbook_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),
	}
}
