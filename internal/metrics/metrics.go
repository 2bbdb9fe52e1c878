// Package metrics defines the Prometheus instrumentation for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors. Counters are registered
// on the default registry and exposed on /metrics.
type Metrics struct {
	MessagesReceived  prometheus.Counter
	RepliesSent       *prometheus.CounterVec
	SecurityBlocks    *prometheus.CounterVec
	CrisisAlerts      *prometheus.CounterVec
	RateLimited       prometheus.Counter
	LLMFailures       prometheus.Counter
	AnalyticsRuns     *prometheus.CounterVec
	TurnDuration      prometheus.Histogram
	SendFailures      prometheus.Counter
	ReindexInvocations *prometheus.CounterVec
}

// New creates and registers the gateway metrics.
func New() *Metrics {
	return &Metrics{
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leobot_messages_received_total",
			Help: "Total number of inbound messages accepted for processing",
		}),
		RepliesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leobot_replies_sent_total",
			Help: "Total number of outbound replies, by delivery status",
		}, []string{"status"}),
		SecurityBlocks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leobot_security_blocks_total",
			Help: "Total number of messages rejected by the security filter, by reason",
		}, []string{"reason"}),
		CrisisAlerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leobot_crisis_alerts_total",
			Help: "Total number of crisis alerts raised, by category",
		}, []string{"category"}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leobot_rate_limited_total",
			Help: "Total number of messages rejected by the rate limiter",
		}),
		LLMFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leobot_llm_failures_total",
			Help: "Total number of LLM invocations that fell back to the canned reply",
		}),
		AnalyticsRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leobot_analytics_runs_total",
			Help: "Total number of engagement analysis runs, by outcome",
		}, []string{"status"}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leobot_turn_duration_seconds",
			Help:    "Time taken to handle one inbound turn",
			Buckets: prometheus.DefBuckets,
		}),
		SendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leobot_send_failures_total",
			Help: "Total number of outbound send failures",
		}),
		ReindexInvocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leobot_reindex_invocations_total",
			Help: "Total number of reindex invocations, by outcome",
		}, []string{"status"}),
	}
}
