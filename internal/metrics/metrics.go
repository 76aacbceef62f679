package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal tracks executed watch cycles
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "x402_watcher_cycles_total",
			Help: "Total number of executed watch cycles",
		},
	)

	// CyclesSkipped tracks timer fires dropped by the re-entrancy gate
	CyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "x402_watcher_cycles_skipped_total",
			Help: "Timer fires dropped because a cycle was still in flight",
		},
	)

	// CycleDuration tracks full cycle duration (discovery + sampling)
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "x402_watcher_cycle_duration_seconds",
			Help:    "Duration of a full watch cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PaymentsDetected tracks detected balance increases
	PaymentsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "x402_watcher_payments_detected_total",
			Help: "Total number of detected balance increases",
		},
	)

	// DiscoveryFailures tracks failed directory lookups
	DiscoveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "x402_watcher_discovery_failures_total",
			Help: "Total number of failed router discovery calls",
		},
	)

	// BalanceCheckFailures tracks failed balance reads. Kept unlabeled:
	// the registry grows without bound, so a per-router label would grow
	// series cardinality forever. Per-router detail lives on /status.
	BalanceCheckFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "x402_watcher_balance_check_failures_total",
			Help: "Total number of failed balance reads",
		},
	)

	// NotifyFailures tracks failed gateway hook deliveries
	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "x402_watcher_notify_failures_total",
			Help: "Total number of failed payment notifications",
		},
	)

	// JournalFailures tracks failed payment journal writes
	JournalFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "x402_watcher_journal_failures_total",
			Help: "Total number of failed payment journal writes",
		},
	)

	// TrackedRouters tracks the current registry size
	TrackedRouters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "x402_watcher_tracked_routers",
			Help: "Number of routers currently being watched",
		},
	)

	// DBConnectionPoolUsage tracks journal database pool usage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "x402_watcher_db_pool_usage_percent",
			Help: "Journal database connection pool usage percentage",
		},
	)
)
