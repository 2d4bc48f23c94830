package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Inspection lifecycle metrics
	InspectionsCreatedCounter   prometheus.Counter
	InspectionsCompletedCounter prometheus.CounterVec
	DegradedCreationsCounter    prometheus.CounterVec
	TestResultsRecordedCounter  prometheus.Counter
	NonConformitiesCounter      prometheus.CounterVec
	ActionPlansCreatedCounter   prometheus.Counter
)

// InitMetrics registers Prometheus metrics under the configured prefix.
func InitMetrics(prefix string) {
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	InspectionsCreatedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_inspections_created_total",
			Help: "Total number of inspections created",
		},
	)

	InspectionsCompletedCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_inspections_completed_total",
			Help: "Total number of inspections completed, by disposition",
		},
		[]string{"disposition"},
	)

	DegradedCreationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_inspections_degraded_total",
			Help: "Inspections created with a failed best-effort step",
		},
		[]string{"step"},
	)

	TestResultsRecordedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_test_results_recorded_total",
			Help: "Total number of inspection test results recorded",
		},
	)

	NonConformitiesCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_nonconformities_total",
			Help: "Total number of non-conformities registered, by severity",
		},
		[]string{"severity"},
	)

	ActionPlansCreatedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_action_plans_created_total",
			Help: "Total number of action plans created",
		},
	)
}
