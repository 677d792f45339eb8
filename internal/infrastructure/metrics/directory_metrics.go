package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DirectoryMetrics tracks the in-memory user collection.
type DirectoryMetrics struct {
	Users        prometheus.Gauge
	LoadsTotal   *prometheus.CounterVec
	LoadDuration prometheus.Histogram
}

// NewDirectoryMetrics creates and registers directory metrics with the given registerer.
func NewDirectoryMetrics(registerer prometheus.Registerer) *DirectoryMetrics {
	metrics := &DirectoryMetrics{
		Users: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "userdir_directory_users",
			Help: "Number of users in the currently loaded collection",
		}),
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userdir_directory_loads_total",
				Help: "Total number of completed directory loads",
			},
			[]string{"outcome"}, // success/failure/superseded
		),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "userdir_directory_load_duration_seconds",
			Help:    "Time taken by a directory load, including normalization",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registerer.MustRegister(
		metrics.Users,
		metrics.LoadsTotal,
		metrics.LoadDuration,
	)

	return metrics
}
