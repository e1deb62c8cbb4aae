package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SearchOutcomeAnswered = "answered"
	SearchOutcomeNoMatch  = "no_match"
	SearchOutcomeDegraded = "degraded"

	RebuildResultSuccess = "success"
	RebuildResultFailure = "failure"
)

// SearchMetrics records semantic search and vector index activity.
type SearchMetrics struct {
	requests          *prometheus.CounterVec
	duration          prometheus.Histogram
	rebuilds          *prometheus.CounterVec
	indexedProducts   prometheus.Gauge
	embeddingFailures prometheus.Counter
}

// NewSearchMetrics registers the search metrics on the provided registerer.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	if reg == nil {
		return &SearchMetrics{}
	}
	m := &SearchMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Semantic search requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "End to end semantic search latency, including provider calls.",
			Buckets: prometheus.DefBuckets,
		}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "index_rebuilds_total",
			Help: "Vector index rebuilds by result.",
		}, []string{"result"}),
		indexedProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "index_products",
			Help: "Product vectors currently held in the index.",
		}),
		embeddingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "index_embedding_failures_total",
			Help: "Products skipped during a rebuild because embedding failed.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.rebuilds, m.indexedProducts, m.embeddingFailures)
	return m
}

// ObserveSearch records one search with its outcome and latency.
func (m *SearchMetrics) ObserveSearch(outcome string, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(duration.Seconds())
}

// ObserveRebuild records a rebuild result and the resulting index size.
func (m *SearchMetrics) ObserveRebuild(result string, indexSize int) {
	if m == nil || m.rebuilds == nil {
		return
	}
	m.rebuilds.WithLabelValues(normalizeLabel(result)).Inc()
	m.indexedProducts.Set(float64(indexSize))
}

// IncEmbeddingFailure counts one product skipped during a rebuild.
func (m *SearchMetrics) IncEmbeddingFailure() {
	if m == nil || m.embeddingFailures == nil {
		return
	}
	m.embeddingFailures.Inc()
}
