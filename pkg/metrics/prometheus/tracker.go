package prometheus

import (
	"github.com/marmos91/dittodrop/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegisterTracker exposes the tracker counters as metrics that are read
// at scrape time. It is a no-op when metrics are disabled.
func RegisterTracker(t *metrics.PerformanceTracker) {
	if !metrics.IsEnabled() {
		return
	}
	registerTracker(metrics.GetRegistry(), t)
}

func registerTracker(reg prometheus.Registerer, t *metrics.PerformanceTracker) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "dittodrop_active_connections",
		Help: "Connections currently being served",
	}, func() float64 {
		return float64(t.Snapshot().ActiveConnections)
	})
	promauto.With(reg).NewCounterFunc(prometheus.CounterOpts{
		Name: "dittodrop_connections_total",
		Help: "Connections accepted since start",
	}, func() float64 {
		return float64(t.Snapshot().TotalConnections)
	})
	promauto.With(reg).NewCounterFunc(prometheus.CounterOpts{
		Name: "dittodrop_file_transfers_total",
		Help: "Completed uploads and downloads since start",
	}, func() float64 {
		return float64(t.Snapshot().FileTransfers)
	})
}
