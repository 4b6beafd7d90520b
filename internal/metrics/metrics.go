package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerTransactions counts applied ledger transactions by kind
	LedgerTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Total number of transactions appended to the ledger log",
		},
		[]string{"kind"},
	)

	// LedgerRejections counts rejected ledger transactions by reason
	LedgerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rejections_total",
			Help: "Total number of rejected ledger transactions",
		},
		[]string{"reason"},
	)

	// LedgerLogLength tracks the current length of the transaction log
	LedgerLogLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_log_length",
			Help: "Current number of entries in the ledger transaction log",
		},
	)

	// RepositoryOps counts repository operations by entity and operation
	RepositoryOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_operations_total",
			Help: "Total number of repository operations",
		},
		[]string{"entity", "operation", "status"},
	)

	// StoriesPublished counts published stories by category
	StoriesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stories_published_total",
			Help: "Total number of stories published",
		},
		[]string{"category"},
	)

	// StorySupports counts story support events
	StorySupports = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "story_supports_total",
			Help: "Total number of story support events",
		},
	)

	// AssistantCalls counts assistant invocations by operation and status
	AssistantCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_calls_total",
			Help: "Total number of assistant invocations",
		},
		[]string{"operation", "status"},
	)

	// AssistantDuration tracks assistant call latency
	AssistantDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_call_duration_seconds",
			Help:    "Assistant call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// HTTPRequests counts handled API requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of handled HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
)
