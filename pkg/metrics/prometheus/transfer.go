package prometheus

import (
	"time"

	"github.com/marmos91/dittodrop/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// transferMetrics is the Prometheus implementation of
// metrics.TransferMetrics.
type transferMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	authentications        *prometheus.CounterVec
	commands               *prometheus.CounterVec
	commandDuration        *prometheus.HistogramVec
	bytesTransferred       *prometheus.CounterVec
	transferSize           *prometheus.HistogramVec
	chunkEvents            *prometheus.CounterVec
}

// NewTransferMetrics creates a Prometheus-backed TransferMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewTransferMetrics() metrics.TransferMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newTransferMetrics(metrics.GetRegistry())
}

func newTransferMetrics(reg prometheus.Registerer) *transferMetrics {
	return &transferMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dittodrop_connections_accepted_total",
			Help: "Total number of accepted client connections",
		}),
		connectionsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dittodrop_connections_closed_total",
			Help: "Total number of closed client connections",
		}),
		connectionsForceClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dittodrop_connections_force_closed_total",
			Help: "Connections closed after the shutdown timeout expired",
		}),
		authentications: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrop_authentications_total",
				Help: "Authentication attempts by outcome",
			},
			[]string{"outcome"}, // success, failure, rejected
		),
		commands: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrop_commands_total",
				Help: "Commands handled by command and reply status",
			},
			[]string{"command", "status"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodrop_command_duration_milliseconds",
				Help: "Duration of command handling in milliseconds",
				Buckets: []float64{
					1,     // 1ms - delete, invalid
					5,     // 5ms
					10,    // 10ms - small transfers
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s
					5000,  // 5s
					30000, // 30s - large transfers
				},
			},
			[]string{"command"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrop_bytes_transferred_total",
				Help: "File bytes moved by direction",
			},
			[]string{"direction"}, // upload, download
		),
		transferSize: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodrop_transfer_size_bytes",
				Help: "Distribution of file sizes per transfer",
				Buckets: []float64{
					1024,      // 1KB - one chunk, previews
					16384,     // 16KB
					131072,    // 128KB
					1048576,   // 1MB
					10485760,  // 10MB
					104857600, // 100MB
				},
			},
			[]string{"direction"},
		),
		chunkEvents: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrop_chunk_events_total",
				Help: "Chunks rejected on checksum mismatch or sent a second time",
			},
			[]string{"event"}, // rejected, retransmitted
		),
	}
}

func (m *transferMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *transferMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *transferMetrics) RecordConnectionForceClosed() {
	m.connectionsForceClosed.Inc()
}

func (m *transferMetrics) RecordAuthentication(outcome string) {
	m.authentications.WithLabelValues(outcome).Inc()
}

func (m *transferMetrics) RecordCommand(command string, status string, duration time.Duration) {
	m.commands.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *transferMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
	m.transferSize.WithLabelValues(direction).Observe(float64(bytes))
}

func (m *transferMetrics) RecordChunkEvent(event string, count int) {
	if count > 0 {
		m.chunkEvents.WithLabelValues(event).Add(float64(count))
	}
}
