package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch cycle metrics
var (
	DispatchCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_cycles_total",
			Help: "Total number of dispatch cycles",
		},
		[]string{"outcome"}, // completed, storage_error
	)

	DispatchCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_cycle_duration_seconds",
			Help:    "Duration of dispatch cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	DispatchMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_messages_total",
			Help: "Total number of messages processed by dispatch cycles",
		},
		[]string{"outcome"}, // sent, failed
	)

	DispatchBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_batch_size",
			Help:    "Number of due messages selected per cycle",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	// DispatchConflictsTotal counts conditional status updates that found
	// the message no longer pending, i.e. another cycle got there first.
	DispatchConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_conflicts_total",
			Help: "Conditional status updates skipped because the message was no longer pending",
		},
	)

	// DispatchStatusWriteFailuresTotal counts outcome writes that errored.
	// These messages were attempted but their result was not confirmed.
	DispatchStatusWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_status_write_failures_total",
			Help: "Failures to persist a per-message dispatch outcome",
		},
	)
)

// Delivery metrics
var (
	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_duration_seconds",
			Help:    "Duration of provider send calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	DeliveryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_errors_total",
			Help: "Total number of provider send failures",
		},
		[]string{"provider", "permanent"},
	)
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIAuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_auth_failures_total",
			Help: "Total number of API authentication failures",
		},
	)
)
