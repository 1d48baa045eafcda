// Package metrics exposes Prometheus collectors for the WHOOP client and the
// sync pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WHOOP API client

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whoop_api_requests_total",
			Help: "Total number of outbound WHOOP API requests by response status",
		},
		[]string{"status"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whoop_api_retries_total",
			Help: "Total number of retried WHOOP API requests by reason",
		},
		[]string{"reason"},
	)

	ThrottleWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "whoop_api_throttle_wait_seconds",
			Help:    "Time spent waiting on the request throttle before a WHOOP API call",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	DailyBudgetUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "whoop_daily_budget_used",
			Help: "Requests counted against the rolling daily WHOOP API budget",
		},
	)

	// Sync pipeline

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	SyncRecordsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_written_total",
			Help: "Total number of records written to the store by resource kind",
		},
		[]string{"kind"},
	)

	SyncErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of non-fatal sync errors by kind",
		},
		[]string{"kind"},
	)

	SyncDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Wall-clock duration of sync runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"mode"},
	)

	// Trigger surface

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency; sync routes include the whole run",
			Buckets: []float64{0.005, 0.05, 0.25, 1, 5, 30, 120, 600},
		},
		[]string{"method", "route"},
	)
)

// RouteUnmatched labels requests that matched no route, so scanners cannot
// grow the label set.
const RouteUnmatched = "unmatched"

func RecordHTTPRequest(method string, route string, status int, d time.Duration) {
	if status == 404 || status == 405 {
		route = RouteUnmatched
	}
	HTTPRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordAPIRequest(status int) {
	APIRequestsTotal.WithLabelValues(statusLabel(status)).Inc()
}

func RecordAPIRetry(reason string) {
	APIRetriesTotal.WithLabelValues(reason).Inc()
}

func RecordThrottleWait(d time.Duration) {
	ThrottleWaitSeconds.Observe(d.Seconds())
}

func RecordDailyBudget(used int) {
	DailyBudgetUsed.Set(float64(used))
}

// Sync run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

func RecordSyncRun(mode string, outcome string, d time.Duration) {
	SyncRunsTotal.WithLabelValues(mode, outcome).Inc()
	SyncDurationSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

func RecordRecordsWritten(kind string, n int) {
	if n <= 0 {
		return
	}
	SyncRecordsWrittenTotal.WithLabelValues(kind).Add(float64(n))
}

func RecordSyncError(kind string) {
	SyncErrorsTotal.WithLabelValues(kind).Inc()
}

// statusLabel keeps label cardinality bounded; 0 is a transport failure.
func statusLabel(status int) string {
	switch {
	case status == 0:
		return "transport_error"
	case status == 429:
		return "429"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 200 && status < 300:
		return "2xx"
	default:
		return strconv.Itoa(status)
	}
}
