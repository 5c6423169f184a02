package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chainStoreRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "chain_store",
		Name:      "operations_total",
		Help:      "Count of chain store operations.",
	}, []string{"operation", "status"})
	chainStoreRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "chain_store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of chain store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// ChainStore tracks metrics for local chain store operations.
type ChainStore struct{}

// NewChainStore creates a ChainStore metrics collector.
func NewChainStore() *ChainStore {
	return &ChainStore{}
}

// Observe records a single store operation outcome and duration.
func (m ChainStore) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	chainStoreRequestsTotal.WithLabelValues(operation, status).Inc()
	chainStoreRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
