// Package metrics holds the Prometheus collectors shared by the gateway,
// the view model aggregator and the mutation commands.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK         = "ok"
	OutcomeFailed     = "failed"
	OutcomeRejected   = "rejected"
	OutcomeSuperseded = "superseded"
)

// ─── Gateway ────────────────────────────────────────────────────────────────

// GatewayRequests counts API calls by operation and outcome.
var GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pfm",
	Subsystem: "gateway",
	Name:      "requests_total",
	Help:      "Finance API calls by operation and outcome.",
}, []string{"operation", "outcome"})

// GatewayFailures counts failed API calls by error type.
var GatewayFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pfm",
	Subsystem: "gateway",
	Name:      "failures_total",
	Help:      "Failed finance API calls by operation and error type.",
}, []string{"operation", "error_type"})

// GatewayLatency tracks API call latency.
var GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "pfm",
	Subsystem: "gateway",
	Name:      "request_duration_seconds",
	Help:      "Finance API call latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

// ─── View model ─────────────────────────────────────────────────────────────

// Reloads counts finished reloads.
var Reloads = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pfm",
	Subsystem: "viewmodel",
	Name:      "reloads_total",
	Help:      "Full view model reloads issued.",
})

// DiscardedResults counts resource results dropped because a newer reload started.
var DiscardedResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pfm",
	Subsystem: "viewmodel",
	Name:      "discarded_results_total",
	Help:      "Resource results discarded because their reload was superseded.",
}, []string{"resource"})

// ─── Commands ───────────────────────────────────────────────────────────────

// Commands counts mutation command invocations by outcome.
var Commands = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pfm",
	Subsystem: "commands",
	Name:      "invocations_total",
	Help:      "Mutation command invocations by command and outcome.",
}, []string{"command", "outcome"})

// ─── Web surface ────────────────────────────────────────────────────────────

// HTTPRequests counts served requests by method and status class.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pfm",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests served by method and status code.",
}, []string{"method", "code"})

// HTTPLatency tracks request handling time.
var HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "pfm",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request handling latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method"})

// RateLimited counts requests rejected by the rate limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pfm",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the rate limiter.",
})

// Sessions reports live web sessions.
var Sessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "pfm",
	Subsystem: "http",
	Name:      "sessions",
	Help:      "Live web sessions holding a view model.",
})

// MutationEvents counts mutation events by direction (published, received).
var MutationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pfm",
	Subsystem: "events",
	Name:      "mutations_total",
	Help:      "Mutation events by direction and action.",
}, []string{"direction", "action"})

// ObserveGateway records one gateway call.
func ObserveGateway(operation string, started time.Time, ok bool) {
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeFailed
	}
	GatewayRequests.WithLabelValues(operation, outcome).Inc()
	GatewayLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
