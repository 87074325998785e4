package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photofind",
			Name:      "searches_total",
			Help:      "Total number of folder searches",
		},
		[]string{"status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "photofind",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"classified"},
	)

	ImagesScannedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "photofind",
			Name:      "images_scanned_total",
			Help:      "Total image files enumerated across all searches",
		},
	)

	ImagesSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photofind",
			Name:      "images_skipped_total",
			Help:      "Images skipped during a search",
		},
		[]string{"reason"}, // "decode_error"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(ImagesScannedTotal)
	prometheus.MustRegister(ImagesSkippedTotal)
	searchMetricsRegistered = true
}
