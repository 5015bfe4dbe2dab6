// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnswerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_answer_requests_total",
			Help: "Total number of answer requests handled",
		},
		[]string{"client_id", "mode_id"},
	)

	AnswerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_answer_failures_total",
			Help: "Total number of answer requests that returned an error",
		},
		[]string{"client_id", "mode_id", "error_code"},
	)

	AnswerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rag_answer_duration_seconds",
			Help: "End-to-end duration of answer requests in seconds",
		},
		[]string{"mode_id"},
	)

	GroundingScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_grounding_score",
			Help:    "Grounding score distribution of finalized answers",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"mode_id"},
	)

	DegradedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_degraded_responses_total",
			Help: "Total number of responses marked degraded",
		},
		[]string{"mode_id", "reason"},
	)

	PlaceholderMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_placeholder_misses_total",
			Help: "Unresolved placeholders substituted empty under the lenient policy",
		},
		[]string{"token"},
	)

	RetrievalCacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_retrieval_cache_events_total",
			Help: "Retrieval cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	ExternalRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_external_retries_total",
			Help: "Retry attempts against external backends",
		},
		[]string{"backend"},
	)
)
