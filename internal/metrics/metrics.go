// Package metrics exposes Prometheus collectors for the analysis pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statement"

var (
	// Documents counts analyzed documents by source and outcome.
	Documents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_total",
		Help:      "Statements analyzed, by source layout and outcome.",
	}, []string{"source", "outcome"})

	// Transactions counts extracted transactions by source.
	Transactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Transactions extracted, by source layout.",
	}, []string{"source"})

	// ExtractionAttempts counts backend attempts by method and whether they produced usable content.
	ExtractionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_attempts_total",
		Help:      "Extraction backend attempts, by method and result.",
	}, []string{"method", "result"})

	// Pages counts pages read by any backend.
	Pages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_processed_total",
		Help:      "PDF pages processed.",
	})

	// Duration observes end-to-end analysis latency.
	Duration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analyze_duration_seconds",
		Help:      "End-to-end analysis latency.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"source"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
