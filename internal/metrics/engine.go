package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "strukt",
			Name:      "queries_total",
			Help:      "Total number of executed collection queries",
		},
		[]string{"collection", "status"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "strukt",
			Name:      "query_duration_seconds",
			Help:      "Collection query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"collection"},
	)

	EntryWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "strukt",
			Name:      "entry_writes_total",
			Help:      "Total number of entry write operations",
		},
		[]string{"collection", "op"},
	)

	IndexRebuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "strukt",
			Name:      "index_rebuilds_total",
			Help:      "Total number of search index rebuilds after schema changes",
		},
	)

	EventEmitFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "strukt",
			Name:      "event_emit_failures_total",
			Help:      "Total number of swallowed domain event emission failures",
		},
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers Prometheus engine metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(EntryWritesTotal)
	prometheus.MustRegister(IndexRebuildsTotal)
	prometheus.MustRegister(EventEmitFailuresTotal)
	engineMetricsRegistered = true
}
