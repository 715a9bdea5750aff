// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "expensy"

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LedgerRecords is the number of records currently held.
var LedgerRecords = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "records",
	Help:      "Number of expense records in the ledger.",
})

// LedgerBalanceCents is advance minus total spend, in cents. Negative means over limit.
var LedgerBalanceCents = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "balance_cents",
	Help:      "Monthly advance minus total spent, in cents.",
})

// LedgerOperations counts ledger mutations by operation and outcome.
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Ledger mutations by operation and outcome.",
}, []string{"operation", "outcome"})

// StorageReadFailures counts persisted blobs that could not be parsed on load.
var StorageReadFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "storage",
	Name:      "read_failures_total",
	Help:      "Persisted blobs that were present but unreadable.",
})

// ─── Extraction ─────────────────────────────────────────────────────────────

// ExtractionRequests counts extraction attempts by result:
// ok, empty, disabled, failed, cached.
var ExtractionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "extraction",
	Name:      "requests_total",
	Help:      "Receipt extraction attempts by result.",
}, []string{"result"})

// ExtractionLatency tracks remote extraction calls.
var ExtractionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "extraction",
	Name:      "latency_seconds",
	Help:      "Latency of remote receipt extraction calls.",
	Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
})

// ─── Imaging / reports ──────────────────────────────────────────────────────

// ImagesNormalized counts normalization attempts by profile and outcome.
var ImagesNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "imaging",
	Name:      "normalized_total",
	Help:      "Image normalizations by profile and outcome.",
}, []string{"profile", "outcome"})

// ExportsGenerated counts report exports by format.
var ExportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "report",
	Name:      "exports_total",
	Help:      "Report exports by format.",
}, []string{"format"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts served requests by route pattern and status class.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route and status class.",
}, []string{"method", "route", "status"})

// HTTPDuration tracks handler latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP handler latency by route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// RateLimited counts requests rejected by the rate limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the per-client rate limiter.",
})

// SuspiciousRequests counts requests matching a known probe pattern.
var SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "suspicious_requests_total",
	Help:      "Requests that look like scanner or injection probes.",
})

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
