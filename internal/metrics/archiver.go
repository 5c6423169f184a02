package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

var (
	archiverScanTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "archiver",
		Name:      "scan_total",
		Help:      "Count of attempts to find unarchived confirmed heights.",
	}, []string{"coin", "network", "status"})
	archiverScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "archiver",
		Name:      "scan_duration_seconds",
		Help:      "Duration of scanning for unarchived confirmed heights.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"coin", "network", "status"})

	archiverExportTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "archiver",
		Name:      "export_batch_total",
		Help:      "Count of exported batches.",
	}, []string{"coin", "network", "status"})
	archiverExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "archiver",
		Name:      "export_batch_duration_seconds",
		Help:      "Duration of exporting a batch of heights.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"coin", "network", "status"})
	archiverExportSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockchain_tracker",
		Subsystem: "archiver",
		Name:      "export_batch_size",
		Help:      "Number of heights exported per batch.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	}, []string{"coin", "network"})
)

// Archiver tracks metrics for the confirmed-history export pipeline.
type Archiver struct {
	coin    model.Coin
	network model.Network
}

// NewArchiver constructs an Archiver metrics collector.
func NewArchiver(coin model.Coin, network model.Network) *Archiver {
	if coin == "" {
		coin = "unknown"
	}
	if network == "" {
		network = "unknown"
	}
	return &Archiver{coin: coin, network: network}
}

// ObserveScan records a gap-scan attempt outcome and duration.
func (m Archiver) ObserveScan(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	archiverScanTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	archiverScanDuration.WithLabelValues(string(m.coin), string(m.network), status).
		Observe(time.Since(started).Seconds())
}

// ObserveExport records exporting a batch of confirmed heights.
func (m Archiver) ObserveExport(err error, blocks int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	archiverExportTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	archiverExportDuration.WithLabelValues(string(m.coin), string(m.network), status).
		Observe(time.Since(started).Seconds())
	archiverExportSize.WithLabelValues(string(m.coin), string(m.network)).Observe(float64(blocks))
}
