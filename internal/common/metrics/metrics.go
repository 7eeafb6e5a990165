// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsearch_requests_total",
			Help: "Total number of search requests by category",
		},
		[]string{"category"},
	)

	SearchFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsearch_fallbacks_total",
			Help: "Number of times a source answered with synthetic data",
		},
		[]string{"source", "reason"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medsearch_upstream_duration_seconds",
			Help:    "Duration of upstream source calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	HistoryWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medsearch_history_write_failures_total",
			Help: "History ledger writes that failed and were dropped",
		},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
