// Package metrics exposes the Prometheus instrumentation for the sync core,
// following the backend's NewMetrics()/promauto shape (internal/escrow in
// the teacher repo) scaled down to this engine's components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the sync core updates.
type Metrics struct {
	MessagesSent    prometheus.Counter
	MessagesDropped prometheus.Counter
	QueueDepth      prometheus.Gauge
	QueueDropped    prometheus.Counter

	MessagesReceived prometheus.Counter
	MessagesDeduped  prometheus.Counter
	MessagesStale    prometheus.Counter
	MessagesApplied  *prometheus.CounterVec

	ConnectionState  prometheus.Gauge
	Reconnects       prometheus.Counter
	HeartbeatMisses  prometheus.Counter
}

// New creates and registers all collectors against the default registry.
func New() *Metrics {
	return &Metrics{
		MessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopsync_messages_sent_total",
			Help: "Total EditorState messages successfully handed to the transport.",
		}),
		MessagesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopsync_messages_dropped_total",
			Help: "Total outbound messages dropped (not connected, or oversized).",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "loopsync_send_queue_depth",
			Help: "Current depth of the outbound send queue.",
		}),
		QueueDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopsync_send_queue_overflow_total",
			Help: "Total items dropped due to send queue overflow.",
		}),
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopsync_messages_received_total",
			Help: "Total sync messages received from the transport.",
		}),
		MessagesDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopsync_messages_deduped_total",
			Help: "Total inbound messages dropped as duplicates.",
		}),
		MessagesStale: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopsync_messages_stale_total",
			Help: "Total inbound messages dropped for being older than the staleness window.",
		}),
		MessagesApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loopsync_messages_applied_total",
			Help: "Total inbound messages applied, labeled by action.",
		}, []string{"action"}),
		ConnectionState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "loopsync_connection_state",
			Help: "Current transport connection state (0=disconnected, 1=connecting, 2=connected).",
		}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopsync_reconnects_total",
			Help: "Total number of reconnect attempts.",
		}),
		HeartbeatMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loopsync_heartbeat_misses_total",
			Help: "Total number of times the peer's heartbeat was missed past the timeout.",
		}),
	}
}

// NewForTest creates metrics backed by a private registry, so repeated test
// runs in the same process don't collide on promauto's default registry.
func NewForTest() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		MessagesSent:     factory.NewCounter(prometheus.CounterOpts{Name: "messages_sent_total"}),
		MessagesDropped:  factory.NewCounter(prometheus.CounterOpts{Name: "messages_dropped_total"}),
		QueueDepth:       factory.NewGauge(prometheus.GaugeOpts{Name: "send_queue_depth"}),
		QueueDropped:     factory.NewCounter(prometheus.CounterOpts{Name: "send_queue_overflow_total"}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{Name: "messages_received_total"}),
		MessagesDeduped:  factory.NewCounter(prometheus.CounterOpts{Name: "messages_deduped_total"}),
		MessagesStale:    factory.NewCounter(prometheus.CounterOpts{Name: "messages_stale_total"}),
		MessagesApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_applied_total",
		}, []string{"action"}),
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{Name: "connection_state"}),
		Reconnects:      factory.NewCounter(prometheus.CounterOpts{Name: "reconnects_total"}),
		HeartbeatMisses: factory.NewCounter(prometheus.CounterOpts{Name: "heartbeat_misses_total"}),
	}
}
