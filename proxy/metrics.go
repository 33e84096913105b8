package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics tracks proxy traffic and upstream failures.
//
// Exposed series:
//   - llmbridge_requests_total{mode,outcome}: completed chat requests
//   - llmbridge_request_duration_seconds{mode}: end-to-end request latency
//   - llmbridge_upstream_errors_total{code}: upstream failures by taxonomy code
//   - llmbridge_stream_lines_forwarded_total: SSE lines relayed to callers
type metrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	upstreamErrors *prometheus.CounterVec
	streamLines    prometheus.Counter
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "llmbridge",
				Name:      "requests_total",
				Help:      "Completed chat requests by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "llmbridge",
				Name:      "request_duration_seconds",
				Help:      "End-to-end chat request latency",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"mode"},
		),
		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "llmbridge",
				Name:      "upstream_errors_total",
				Help:      "Upstream failures by error code",
			},
			[]string{"code"},
		),
		streamLines: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "llmbridge",
				Name:      "stream_lines_forwarded_total",
				Help:      "SSE lines relayed to callers",
			},
		),
	}

	registry.MustRegister(m.requests, m.duration, m.upstreamErrors, m.streamLines)
	return m
}

func (m *metrics) observeRequest(mode, outcome string, seconds float64) {
	m.requests.WithLabelValues(mode, outcome).Inc()
	m.duration.WithLabelValues(mode).Observe(seconds)
}

func (m *metrics) observeUpstreamError(code string) {
	m.upstreamErrors.WithLabelValues(code).Inc()
}
