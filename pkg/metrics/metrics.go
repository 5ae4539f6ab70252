// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// QueriesTotal tracks total query threads created.
	QueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queries_total",
			Help: "Total query threads created",
		},
	)

	// MessagesTotal tracks total messages appended, by sender role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
		[]string{"sender"},
	)

	// RegistrationsTotal tracks registration attempts by outcome.
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Total registration attempts",
		},
		[]string{"outcome"},
	)

	// EventsTotal tracks total events created.
	EventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_total",
			Help: "Total events created",
		},
	)
)

// Registration outcome label values.
const (
	OutcomeAdmitted  = "admitted"
	OutcomeFull      = "capacity_exceeded"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
