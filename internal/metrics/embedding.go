package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding provider metrics. Request/duration/token counters are recorded
// at the transport; budget gauges are set by the instrumented wrapper.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photofind",
			Name:      "embedding_requests_total",
			Help:      "Embedding API requests, by provider, model and outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "photofind",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding API request latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photofind",
			Name:      "embedding_tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photofind",
			Name:      "embedding_errors_total",
			Help:      "Embedding API failures, by error class",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "photofind",
			Name:      "embedding_budget_tokens_remaining",
			Help:      "Tokens left in the configured budget window (-1 when unlimited)",
		},
		[]string{"provider", "period"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photofind",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups, by result (hit/miss)",
		},
		[]string{"result"},
	)
)

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers the embedding collectors. Called once
// from the composition root; repeated calls are no-ops so tests can share
// the default registry.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingBudgetTokensRemaining,
		EmbeddingCacheTotal,
	)
	embMetricsRegistered = true
}
