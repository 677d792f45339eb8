package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values shared by the upstream and directory metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
	OutcomeFailure      = "failure"
	OutcomeSuperseded   = "superseded"
)

// UpstreamMetrics contains Prometheus metrics for outbound calls to the user API.
type UpstreamMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewUpstreamMetrics creates and registers upstream metrics with the given registerer.
func NewUpstreamMetrics(registerer prometheus.Registerer) *UpstreamMetrics {
	metrics := &UpstreamMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userdir_upstream_requests_total",
				Help: "Total number of requests sent to the upstream user API",
			},
			[]string{"endpoint", "outcome"}, // outcome: success/http_error/network_error
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "userdir_upstream_request_duration_seconds",
				Help:    "Round-trip time of upstream requests",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),
	}

	registerer.MustRegister(
		metrics.RequestsTotal,
		metrics.RequestDuration,
	)

	return metrics
}
