// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_speech_proxy"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Backend metrics
	TranscriptionsTotal *prometheus.CounterVec
	BackendLatency      *prometheus.HistogramVec
	FallbacksTotal      prometheus.Counter

	// Health monitor metrics
	LocalBackendAvailable prometheus.Gauge
	HealthChecksTotal     *prometheus.CounterVec

	// Usage ledger metrics
	UsageSecondsTotal      *prometheus.CounterVec
	LedgerWriteErrorsTotal prometheus.Counter

	// Auth metrics
	AuthFailuresTotal prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"endpoint", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"endpoint"}),

		TranscriptionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Total number of backend transcription attempts",
		}, []string{"backend", "outcome"}),
		BackendLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_latency_seconds",
			Help:      "Transcription backend call latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"backend"}),
		FallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of local-to-cloud fallbacks",
		}),

		LocalBackendAvailable: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "local_backend_available",
			Help:      "Whether the local transcription backend is believed reachable (1/0)",
		}),
		HealthChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_checks_total",
			Help:      "Total number of local backend health probes",
		}, []string{"result"}),

		UsageSecondsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_seconds_total",
			Help:      "Total audio seconds credited to the usage ledger",
		}, []string{"backend"}),
		LedgerWriteErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_write_errors_total",
			Help:      "Total number of usage ledger write failures",
		}),

		AuthFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total number of rejected bearer tokens",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(endpoint string, status string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordTranscription records a backend transcription attempt.
func (m *Metrics) RecordTranscription(backend, outcome string, latencySeconds float64) {
	m.TranscriptionsTotal.WithLabelValues(backend, outcome).Inc()
	m.BackendLatency.WithLabelValues(backend).Observe(latencySeconds)
}

// RecordFallback records a local-to-cloud fallback.
func (m *Metrics) RecordFallback() {
	m.FallbacksTotal.Inc()
}

// RecordHealthCheck records a health probe result and updates the gauge.
func (m *Metrics) RecordHealthCheck(available bool) {
	if available {
		m.LocalBackendAvailable.Set(1)
		m.HealthChecksTotal.WithLabelValues("up").Inc()
	} else {
		m.LocalBackendAvailable.Set(0)
		m.HealthChecksTotal.WithLabelValues("down").Inc()
	}
}

// RecordUsage records seconds credited to the ledger for a backend.
func (m *Metrics) RecordUsage(backend string, seconds float64) {
	m.UsageSecondsTotal.WithLabelValues(backend).Add(seconds)
}

// RecordLedgerWriteError records a usage ledger persistence failure.
func (m *Metrics) RecordLedgerWriteError() {
	m.LedgerWriteErrorsTotal.Inc()
}

// RecordAuthFailure records a rejected bearer token.
func (m *Metrics) RecordAuthFailure() {
	m.AuthFailuresTotal.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
