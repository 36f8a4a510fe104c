package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RequestsCreated  prometheus.Counter
	RequestsApproved prometheus.Counter
	RequestsRejected prometheus.Counter
	RequestsIssued   prometheus.Counter

	IssuanceInsufficientStock prometheus.Counter
	IssuanceConflictRetries   prometheus.Counter

	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_requests_created_total",
			Help: "Total number of blood requests created",
		}),
		RequestsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_requests_approved_total",
			Help: "Total number of blood requests approved",
		}),
		RequestsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_requests_rejected_total",
			Help: "Total number of blood requests rejected",
		}),
		RequestsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_requests_issued_total",
			Help: "Total number of blood requests issued against inventory",
		}),
		IssuanceInsufficientStock: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_issuance_insufficient_stock_total",
			Help: "Issuance attempts rejected because inventory could not cover the request",
		}),
		IssuanceConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_issuance_conflict_retries_total",
			Help: "Issuance transactions retried after a concurrent conflict",
		}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodbank_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
