package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cluster client metrics
	ClusterOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_cluster_ops_total",
			Help: "Total number of Redis cluster operations",
		},
		[]string{"op", "status"}, // status: success, miss, error
	)

	ClusterOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_cluster_op_duration_seconds",
			Help:    "Duration of Redis cluster operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
		},
		[]string{"op"},
	)

	ClusterScanBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cluster_scan_batches_total",
			Help: "Total number of SCAN pages fetched during keyspace scans",
		},
	)

	ClusterScanPacerWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cluster_scan_pacer_waits_total",
			Help: "Total number of times a keyspace scan waited for the pacer",
		},
	)

	// Keyed TTL store metrics
	StoreHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyed_store_hits_total",
			Help: "Total number of keyed store reads that found a live entry",
		},
		[]string{"namespace"},
	)

	StoreMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyed_store_misses_total",
			Help: "Total number of keyed store reads that found no entry",
		},
		[]string{"namespace"},
	)

	StoreTypeMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyed_store_type_mismatches_total",
			Help: "Total number of stored values that failed to decode into the caller's type",
		},
		[]string{"namespace"},
	)

	// Session store metrics
	SessionDeleteMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_delete_mismatches_total",
			Help: "Total number of session deletes skipped because a newer session holds the slot",
		},
	)

	// Rate-limit store metrics
	RateLimitLazyExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratelimit_lazy_expirations_total",
			Help: "Total number of rate-limit entries discarded at read time because their window had ended",
		},
	)
)
