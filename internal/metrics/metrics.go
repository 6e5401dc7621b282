package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "feedstream"

// Metrics holds the collectors shared by the streamer components.
type Metrics struct {
	connectionState   prometheus.Gauge
	reconnectAttempts prometheus.Counter
	retriesExhausted  prometheus.Counter
	connects          prometheus.Counter
	messagesReceived  prometheus.Counter

	chunksSent       *prometheus.CounterVec
	chunksFailed     *prometheus.CounterVec
	tokensSubscribed prometheus.Gauge

	probesSent    *prometheus.CounterVec
	probeFailures *prometheus.CounterVec

	logWritten prometheus.Counter
	logDropped prometheus.Counter
	logFailed  prometheus.Counter
	logPending prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connection_state",
			Help: "Current connection state (0=disconnected 1=connecting 2=connected 3=reconnecting 4=closed).",
		}),
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reconnect_attempts_total",
			Help: "Reconnection attempts scheduled.",
		}),
		retriesExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "retries_exhausted_total",
			Help: "Times the reconnection budget was exhausted.",
		}),
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connects_total",
			Help: "Successful connection opens.",
		}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_received_total",
			Help: "Feed messages received.",
		}),
		chunksSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "subscribe_chunks_sent_total",
			Help: "Subscribe messages written to the feed.",
		}, []string{"kind"}),
		chunksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "subscribe_chunks_failed_total",
			Help: "Subscribe messages that failed to send.",
		}, []string{"kind"}),
		tokensSubscribed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tokens_subscribed",
			Help: "Tokens held in the subscription record.",
		}),
		probesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "heartbeat_probes_total",
			Help: "Heartbeat probes sent.",
		}, []string{"probe"}),
		probeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "heartbeat_failures_total",
			Help: "Heartbeat probe failures.",
		}, []string{"probe"}),
		logWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "eventlog_written_total",
			Help: "Event log entries appended to the destination.",
		}),
		logDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "eventlog_dropped_total",
			Help: "Event log entries rejected after shutdown.",
		}),
		logFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "eventlog_write_errors_total",
			Help: "Event log destination write failures.",
		}),
		logPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "eventlog_pending",
			Help: "Event log entries waiting in the queue.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.connectionState, m.reconnectAttempts, m.retriesExhausted, m.connects, m.messagesReceived,
			m.chunksSent, m.chunksFailed, m.tokensSubscribed,
			m.probesSent, m.probeFailures,
			m.logWritten, m.logDropped, m.logFailed, m.logPending,
		)
	}
	return m
}

// SetConnectionState records the numeric connection state.
func (m *Metrics) SetConnectionState(state int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

// ReconnectAttempt counts a scheduled reconnection attempt.
func (m *Metrics) ReconnectAttempt() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

// RetriesExhausted counts a terminal reconnection failure.
func (m *Metrics) RetriesExhausted() {
	if m == nil {
		return
	}
	m.retriesExhausted.Inc()
}

// Connected counts a successful open.
func (m *Metrics) Connected() {
	if m == nil {
		return
	}
	m.connects.Inc()
}

// MessageReceived counts a feed message.
func (m *Metrics) MessageReceived() {
	if m == nil {
		return
	}
	m.messagesReceived.Inc()
}

// ChunkSent counts a subscribe message; kind is "subscribe" or "resubscribe".
func (m *Metrics) ChunkSent(kind string) {
	if m == nil {
		return
	}
	m.chunksSent.WithLabelValues(kind).Inc()
}

// ChunkFailed counts a subscribe message that could not be sent.
func (m *Metrics) ChunkFailed(kind string) {
	if m == nil {
		return
	}
	m.chunksFailed.WithLabelValues(kind).Inc()
}

// SetTokensSubscribed records the size of the subscription record.
func (m *Metrics) SetTokensSubscribed(n int) {
	if m == nil {
		return
	}
	m.tokensSubscribed.Set(float64(n))
}

// ProbeSent counts a heartbeat probe; probe is "ping" or "keepalive".
func (m *Metrics) ProbeSent(probe string) {
	if m == nil {
		return
	}
	m.probesSent.WithLabelValues(probe).Inc()
}

// ProbeFailed counts a heartbeat failure.
func (m *Metrics) ProbeFailed(probe string) {
	if m == nil {
		return
	}
	m.probeFailures.WithLabelValues(probe).Inc()
}

// LogWritten counts an appended event log entry.
func (m *Metrics) LogWritten() {
	if m == nil {
		return
	}
	m.logWritten.Inc()
}

// LogDropped counts an entry rejected by a stopped sink.
func (m *Metrics) LogDropped() {
	if m == nil {
		return
	}
	m.logDropped.Inc()
}

// LogFailed counts a destination write error.
func (m *Metrics) LogFailed() {
	if m == nil {
		return
	}
	m.logFailed.Inc()
}

// SetLogPending records the queue depth.
func (m *Metrics) SetLogPending(n int) {
	if m == nil {
		return
	}
	m.logPending.Set(float64(n))
}
