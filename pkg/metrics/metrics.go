package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// transition: submitted, approved, rejected
	MilestoneTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milestone_transitions_total",
			Help: "Milestone state transitions committed",
		},
		[]string{"transition"},
	)

	AssignmentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assignments_created_total",
			Help: "Assignments committed to projects",
		},
	)

	DocumentFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assignment_document_failures_total",
			Help: "Assignment-order documents that could not be generated",
		},
	)

	// result: sent, retry, failed
	OutboxDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_dispatch_total",
			Help: "Outbox publish attempts by result",
		},
		[]string{"type", "result"},
	)

	StatusSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "project_delay_sweep_updates_total",
			Help: "Projects moved to Delayed by the periodic sweep",
		},
	)
)

func RecordHTTPRequestDuration(method, path, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

func IncMilestoneTransition(transition string) {
	MilestoneTransitions.WithLabelValues(transition).Inc()
}

func IncOutboxDispatched(eventType, result string) {
	OutboxDispatched.WithLabelValues(eventType, result).Inc()
}
