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

	// SessionsInitiatedTotal tracks coaching sessions started.
	SessionsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coaching_sessions_initiated_total",
			Help: "Total coaching sessions initiated",
		},
		[]string{"tenant_id", "topic"},
	)

	// SessionsCompletedTotal tracks coaching sessions completed.
	SessionsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coaching_sessions_completed_total",
			Help: "Total coaching sessions completed",
		},
		[]string{"tenant_id", "topic"},
	)

	// MessagesTotal tracks conversation turns processed.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coaching_messages_total",
			Help: "Total conversation messages processed",
		},
		[]string{"tenant_id", "role"},
	)

	// QuotaDeniedTotal tracks initiations denied by the session quota.
	QuotaDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coaching_quota_denied_total",
			Help: "Total initiations denied by the session quota",
		},
		[]string{"tenant_id", "topic"},
	)

	// OutcomeSyncTotal tracks outcome synchronization results by disposition
	// (applied, below_threshold, extraction_failed, ...).
	OutcomeSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coaching_outcome_sync_total",
			Help: "Outcome synchronization attempts by disposition",
		},
		[]string{"topic", "disposition"},
	)

	// LLMRequestDuration tracks LLM call duration.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM request duration in seconds",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"model", "operation"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// LLMCostTotal tracks accumulated LLM cost in USD.
	LLMCostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_cost_usd_total",
			Help: "Accumulated LLM cost in USD",
		},
		[]string{"model"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMUsage records token and cost metrics for one LLM call.
func RecordLLMUsage(model, operation string, durationSec float64, tokensIn, tokensOut int, cost float64) {
	LLMRequestDuration.WithLabelValues(model, operation).Observe(durationSec)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	LLMCostTotal.WithLabelValues(model).Add(cost)
}

// RecordOutcomeSync records one synchronization attempt.
func RecordOutcomeSync(topic, disposition string) {
	OutcomeSyncTotal.WithLabelValues(topic, disposition).Inc()
}
