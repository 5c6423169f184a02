package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

var (
	reconcilerStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "reconciler",
		Name:      "steps_total",
		Help:      "Count of reconciler loop steps.",
	}, []string{"coin", "network", "status"})
	reconcilerStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "reconciler",
		Name:      "step_duration_seconds",
		Help:      "Duration of reconciler loop steps.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"coin", "network", "status"})

	reconcilerReorgsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "reconciler",
		Name:      "reorgs_total",
		Help:      "Count of reorg resolution attempts.",
	}, []string{"coin", "network", "status"})
	reconcilerReorgDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "reconciler",
		Name:      "reorg_duration_seconds",
		Help:      "Duration of reorg resolution attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"coin", "network", "status"})
	reconcilerReorgDepth = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "reconciler",
		Name:      "reorg_depth",
		Help:      "Number of blocks replaced per resolved reorg.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8), // 1..128
	}, []string{"coin", "network"})

	reconcilerConfirmedHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "reconciler",
		Name:      "confirmed_height",
		Help:      "Highest confirmed block height.",
	}, []string{"coin", "network"})
	reconcilerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "reconciler",
		Name:      "state",
		Help:      "Current reconciler state (0 catching_up, 1 tracking, 2 reorg_resolution, 3 halted).",
	}, []string{"coin", "network"})
)

// Reconciler tracks metrics for the chain reconciliation loop.
type Reconciler struct {
	coin    model.Coin
	network model.Network
}

// NewReconciler constructs a Reconciler metrics collector.
func NewReconciler(coin model.Coin, network model.Network) *Reconciler {
	if coin == "" {
		coin = "unknown"
	}
	if network == "" {
		network = "unknown"
	}
	return &Reconciler{coin: coin, network: network}
}

// ObserveStep records a single loop step outcome and duration.
func (m Reconciler) ObserveStep(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	reconcilerStepsTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	reconcilerStepDuration.WithLabelValues(string(m.coin), string(m.network), status).Observe(time.Since(started).Seconds())
}

// ObserveReorg records a reorg resolution attempt and, on success, its depth.
func (m Reconciler) ObserveReorg(err error, depth int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	reconcilerReorgsTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	reconcilerReorgDuration.WithLabelValues(string(m.coin), string(m.network), status).Observe(time.Since(started).Seconds())
	if err == nil {
		reconcilerReorgDepth.WithLabelValues(string(m.coin), string(m.network)).Observe(float64(depth))
	}
}

// SetConfirmedHeight publishes the highest confirmed height.
func (m Reconciler) SetConfirmedHeight(height uint64) {
	reconcilerConfirmedHeight.WithLabelValues(string(m.coin), string(m.network)).Set(float64(height))
}

// SetState publishes the current loop state.
func (m Reconciler) SetState(state model.TrackerState) {
	value := float64(0)
	switch state {
	case model.StateTracking:
		value = 1
	case model.StateReorgResolution:
		value = 2
	case model.StateHalted:
		value = 3
	}
	reconcilerState.WithLabelValues(string(m.coin), string(m.network)).Set(value)
}
