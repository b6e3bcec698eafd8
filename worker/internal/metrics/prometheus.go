package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksTotal counts processed tasks by function and outcome.
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_worker_tasks_total",
			Help: "Total number of tasks processed",
		},
		[]string{"function", "status"},
	)

	// TaskDuration tracks end-to-end handler duration in seconds.
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fabric_worker_task_duration_seconds",
			Help:    "Duration of task handling in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"function"},
	)

	// WorkersActive tracks the number of currently active worker goroutines.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fabric_worker_workers_active",
			Help: "Number of currently active worker goroutines",
		},
	)

	// HandlerFailures counts handler errors that are not themselves
	// terminal task failures (e.g. unknown function routing).
	HandlerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fabric_worker_handler_failures_total",
			Help: "Total number of handler dispatch failures",
		},
	)
)
