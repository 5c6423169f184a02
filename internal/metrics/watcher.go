package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	watcherRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "watcher",
		Name:      "operations_total",
		Help:      "Count of address watcher operations.",
	}, []string{"operation", "status"})
	watcherRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "watcher",
		Name:      "operation_duration_seconds",
		Help:      "Duration of address watcher operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// Watcher tracks metrics for watched-address matching and delivery.
type Watcher struct{}

// NewWatcher creates a Watcher metrics collector.
func NewWatcher() *Watcher {
	return &Watcher{}
}

// Observe records a single watcher operation outcome and duration.
func (m Watcher) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	watcherRequestsTotal.WithLabelValues(operation, status).Inc()
	watcherRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
