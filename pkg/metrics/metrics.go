package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// JobsInQueue is refreshed by the worker pools; state is waiting, delayed, active, completed or failed.
	JobsInQueue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "perfwatch_jobs_in_queue",
			Help: "Current number of jobs per queue and state.",
		},
		[]string{"queue", "state"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_jobs_processed_total",
			Help: "Total number of collection jobs processed.",
		},
		[]string{"queue", "status"}, // status: success, no_data, failure
	)

	AuditDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "perfwatch_audit_duration_seconds",
			Help:    "Duration of performance audits.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"queue"},
	)

	DispatchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_dispatch_outcomes_total",
			Help: "Per-page outcomes of collection dispatches.",
		},
		[]string{"queue", "outcome"}, // outcome: enqueued, skipped, failed
	)
)
