package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the stream client
type Metrics struct {
	// Session lifecycle metrics
	SessionsOpened  prometheus.Counter
	SessionsEnded   *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	Connected       prometheus.Gauge

	// Batch metrics
	BatchesAccepted  prometheus.Counter
	BatchesRejected  prometheus.Counter
	BatchSize        prometheus.Histogram
	BatchInterval    prometheus.Histogram
	RestartsDeferred prometheus.Counter

	// Observer metrics
	WebsocketClients prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session lifecycle metrics
		SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_client_sessions_opened_total",
			Help: "Total number of subscription sessions opened",
		}),
		SessionsEnded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_client_sessions_ended_total",
			Help: "Total number of subscription sessions ended",
		}, []string{"outcome"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stream_client_session_duration_seconds",
			Help:    "Lifetime of subscription sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27 minutes
		}),
		Connected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "stream_client_connected",
			Help: "1 while a subscription session is active",
		}),

		// Batch metrics
		BatchesAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_client_batches_accepted_total",
			Help: "Total number of record batches applied to the view",
		}),
		BatchesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_client_batches_rejected_total",
			Help: "Total number of record batches rejected by response code",
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stream_client_batch_size_instruments",
			Help:    "Instruments per accepted batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		}),
		BatchInterval: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stream_client_batch_interval_seconds",
			Help:    "Time between consecutive accepted batches",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		RestartsDeferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_client_restarts_debounced_total",
			Help: "Total number of parameter changes coalesced by the debounce window",
		}),

		// Observer metrics
		WebsocketClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "stream_client_websocket_clients",
			Help: "Current number of connected websocket observers",
		}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_client_http_requests_total",
			Help: "Total number of HTTP API requests",
		}, []string{"method", "endpoint", "status_code"}),
	}
}

// RecordSessionOpened increments the session counter and marks the client connected
func (m *Metrics) RecordSessionOpened() {
	if m == nil {
		return
	}
	m.SessionsOpened.Inc()
	m.Connected.Set(1)
}

// RecordSessionEnded records the outcome and lifetime of a finished session
func (m *Metrics) RecordSessionEnded(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(outcome).Inc()
	m.SessionDuration.Observe(durationSeconds)
	m.Connected.Set(0)
}

// RecordBatchAccepted records an applied batch and its distance to the previous one
func (m *Metrics) RecordBatchAccepted(instruments int, intervalSeconds float64) {
	if m == nil {
		return
	}
	m.BatchesAccepted.Inc()
	m.BatchSize.Observe(float64(instruments))
	if intervalSeconds > 0 {
		m.BatchInterval.Observe(intervalSeconds)
	}
}

// RecordBatchRejected increments the rejected batch counter
func (m *Metrics) RecordBatchRejected() {
	if m == nil {
		return
	}
	m.BatchesRejected.Inc()
}

// RecordRestartDeferred counts a parameter change folded into the debounce window
func (m *Metrics) RecordRestartDeferred() {
	if m == nil {
		return
	}
	m.RestartsDeferred.Inc()
}

// SetWebsocketClients sets the current observer count
func (m *Metrics) SetWebsocketClients(count int) {
	if m == nil {
		return
	}
	m.WebsocketClients.Set(float64(count))
}

// RecordHTTPRequest records an HTTP API request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
}
