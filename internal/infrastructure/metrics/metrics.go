package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Write path metrics
	GroupsRecorded prometheus.Counter
	GroupsReversed prometheus.Counter
	LegsWritten    prometheus.Counter
	EntriesVoided  prometheus.Counter
	RecordDuration prometheus.Histogram
	RecordErrors   *prometheus.CounterVec
	GroupAmount    prometheus.Histogram

	// Balance resolution metrics
	BalanceReads       *prometheus.CounterVec
	BalanceDuration    *prometheus.HistogramVec
	FullScanLegs       prometheus.Histogram
	BalanceUnavailable prometheus.Counter

	// Checkpoint refresher metrics
	CheckpointsAdvanced  prometheus.Counter
	CheckpointConflicts  prometheus.Counter
	CheckpointLegsFolded prometheus.Counter
	RefreshDuration      prometheus.Histogram

	// Settlement metrics
	DebtsRecorded prometheus.Counter
	DebtsSettled  prometheus.Counter
	DebtsOverdue  prometheus.Gauge

	// Outbox metrics
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter

	// Database metrics
	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections prometheus.Gauge
	DBErrors      *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisDuration   *prometheus.HistogramVec
	RedisErrors     *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Write path metrics
		GroupsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_groups_recorded_total",
			Help: "Total number of transaction groups recorded",
		}),
		GroupsReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_groups_reversed_total",
			Help: "Total number of transaction groups reversed",
		}),
		LegsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_legs_written_total",
			Help: "Total number of ledger legs written",
		}),
		EntriesVoided: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_entries_voided_total",
			Help: "Total number of ledger legs voided",
		}),
		RecordDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostledger_record_duration_seconds",
			Help:    "Duration of group record operations",
			Buckets: prometheus.DefBuckets,
		}),
		RecordErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostledger_record_errors_total",
				Help: "Total number of record errors by type",
			},
			[]string{"error_type"},
		),
		GroupAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostledger_group_amount",
			Help:    "Host-currency principal amounts of recorded groups",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		// Balance resolution metrics
		BalanceReads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostledger_balance_reads_total",
				Help: "Total balance reads by resolution source",
			},
			[]string{"source"},
		),
		BalanceDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hostledger_balance_duration_seconds",
				Help:    "Duration of balance resolution by source",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		FullScanLegs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostledger_full_scan_legs",
			Help:    "Number of legs read by full-scan balance resolutions",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		}),
		BalanceUnavailable: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_balance_unavailable_total",
			Help: "Total balance reads rejected for exceeding the scan budget",
		}),

		// Checkpoint refresher metrics
		CheckpointsAdvanced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_checkpoints_advanced_total",
			Help: "Total number of checkpoint advances",
		}),
		CheckpointConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_checkpoint_conflicts_total",
			Help: "Total number of checkpoint refresh conflicts",
		}),
		CheckpointLegsFolded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_checkpoint_legs_folded_total",
			Help: "Total number of legs folded into checkpoints",
		}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostledger_refresh_duration_seconds",
			Help:    "Duration of checkpoint refresh operations",
			Buckets: prometheus.DefBuckets,
		}),

		// Settlement metrics
		DebtsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_debts_recorded_total",
			Help: "Total number of debt obligations recorded",
		}),
		DebtsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_debts_settled_total",
			Help: "Total number of debt obligations settled",
		}),
		DebtsOverdue: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hostledger_debts_overdue",
			Help: "Current number of debts past their grace period",
		}),

		// Outbox metrics
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_events_published_total",
			Help: "Total number of outbox events published",
		}),
		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hostledger_publish_errors_total",
			Help: "Total number of outbox publish errors",
		}),

		// Database metrics
		DBQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostledger_db_queries_total",
				Help: "Total database queries",
			},
			[]string{"operation", "table"},
		),
		DBDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hostledger_db_query_duration_seconds",
				Help:    "Database query duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hostledger_db_connections",
			Help: "Current number of database connections",
		}),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostledger_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),

		// Redis metrics
		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostledger_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hostledger_redis_duration_seconds",
				Help:    "Redis operation duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
