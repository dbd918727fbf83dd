// Package metrics defines Prometheus metrics for the audit log service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auditlog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_batches_total",
			Help: "Ingested batches by outcome",
		},
		[]string{"outcome"},
	)

	EntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_entries_total",
			Help: "Submitted audit entries split into newly written and duplicate",
		},
		[]string{"result"},
	)

	BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auditlog_batch_size",
			Help:    "Entries per submitted batch",
			Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000},
		},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auditlog_query_duration_seconds",
			Help:    "Log query duration by shape",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"shape"},
	)

	SessionAcquireDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auditlog_session_acquire_duration_seconds",
			Help:    "Time spent waiting for a pooled connection",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	SessionSetupFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_session_setup_failures_total",
			Help: "Failed tenant session setups by stage",
		},
		[]string{"stage"},
	)

	SessionsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "auditlog_sessions_in_use",
			Help: "Tenant-bound sessions currently checked out",
		},
	)

	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_auth_failures_total",
			Help: "Rejected authentication attempts by reason",
		},
		[]string{"reason"},
	)

	AuthLockouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auditlog_auth_lockouts_total",
			Help: "Clients locked out after repeated authentication failures",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		BatchesTotal, EntriesTotal, BatchSize, QueryDuration,
		SessionAcquireDuration, SessionSetupFailures, SessionsInUse,
		AuthFailures, AuthLockouts,
	)
}
