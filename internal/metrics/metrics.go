package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's Prometheus collectors.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Retention sweeps
	SweepRunsTotal     *prometheus.CounterVec
	SweepDeletedTotal  *prometheus.CounterVec
	SweepFailuresTotal *prometheus.CounterVec
	SweepDuration      *prometheus.HistogramVec

	// Stories
	StoryViewsRecorded prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all collectors. Safe to call more than
// once; registration happens a single time.
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			SweepRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "retention_sweep_runs_total",
					Help: "Number of times each retention sweep has run",
				},
				[]string{"job"},
			),
			SweepDeletedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "retention_sweep_deleted_total",
					Help: "Documents deleted (or accounts erased) per sweep job",
				},
				[]string{"job"},
			),
			SweepFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "retention_sweep_failures_total",
					Help: "Per-item failures recorded during sweeps",
				},
				[]string{"job"},
			),
			SweepDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "retention_sweep_duration_seconds",
					Help:    "Wall-clock duration of each sweep run",
					Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
				},
				[]string{"job"},
			),
			StoryViewsRecorded: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "story_views_recorded_total",
					Help: "Story views recorded (first views only, duplicates excluded)",
				},
			),
		}
	})
	return instance
}
