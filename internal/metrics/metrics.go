// Package metrics exposes Prometheus instrumentation for the quiz core.
// Collectors are registered once at init and are safe for concurrent use.
// Label cardinality is kept deliberately small: finalize reason, rate-limit
// policy, and answer outcome are the only label dimensions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// SessionsOpened counts quiz sessions opened.
	SessionsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_sessions_opened_total",
			Help: "Total number of quiz sessions opened.",
		},
	)

	// SessionsFinalized counts finalized sessions by reason
	// (completed, timeout, superseded, recovered).
	SessionsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sessions_finalized_total",
			Help: "Total number of quiz sessions finalized, by reason.",
		},
		[]string{"reason"},
	)

	// SessionsActive gauges the number of currently live sessions.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_sessions_active",
			Help: "Current number of live quiz sessions.",
		},
	)

	// AnswersRecorded counts processed answers by outcome
	// (correct, wrong, stale).
	AnswersRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answers_recorded_total",
			Help: "Total number of poll answers processed, by outcome.",
		},
		[]string{"outcome"},
	)

	// RateLimited counts admission rejections by policy (daily, hourly, count).
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_rate_limited_total",
			Help: "Total number of dispatch requests rejected by rate limiting, by policy.",
		},
		[]string{"policy"},
	)

	// ResetsRun counts scheduler reset cycles by kind
	// (daily_questions, daily_scores, monthly_scores).
	ResetsRun = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_resets_run_total",
			Help: "Total number of periodic reset cycles executed, by kind.",
		},
		[]string{"kind"},
	)

	// SendFailures counts best-effort outbound deliveries that failed.
	SendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_send_failures_total",
			Help: "Total number of outbound message deliveries that failed.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsOpened,
		SessionsFinalized,
		SessionsActive,
		AnswersRecorded,
		RateLimited,
		ResetsRun,
		SendFailures,
	)
}
