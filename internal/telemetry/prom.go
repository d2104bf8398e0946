package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromMetrics exports the same counters QueryMetrics already tracks
// in-process, as Prometheus series, so an external scraper can alert on
// them without polling the MCP server's own stats tool.
type PromMetrics struct {
	queriesTotal      *prometheus.CounterVec
	zeroResultTotal   *prometheus.CounterVec
	searchLatency     *prometheus.HistogramVec
	fusionMethodTotal *prometheus.CounterVec
}

// NewPromMetrics registers the ricegrep metric family on reg. Pass
// prometheus.DefaultRegisterer for the process-wide default registry.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	factory := promauto.With(reg)

	return &PromMetrics{
		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ricegrep",
			Name:      "queries_total",
			Help:      "Total number of search queries executed, labeled by query type.",
		}, []string{"query_type"}),

		zeroResultTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ricegrep",
			Name:      "zero_result_queries_total",
			Help:      "Total number of search queries that returned zero results.",
		}, []string{"query_type"}),

		searchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ricegrep",
			Name:      "search_latency_seconds",
			Help:      "Search request latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"query_type"}),

		fusionMethodTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ricegrep",
			Name:      "fusion_method_total",
			Help:      "Total number of searches fused by each fusion method.",
		}, []string{"method"}),
	}
}

// ObserveQuery records one completed search's type, latency, and whether it
// returned zero results.
func (m *PromMetrics) ObserveQuery(queryType string, latency time.Duration, resultCount int) {
	m.queriesTotal.WithLabelValues(queryType).Inc()
	m.searchLatency.WithLabelValues(queryType).Observe(latency.Seconds())
	if resultCount == 0 {
		m.zeroResultTotal.WithLabelValues(queryType).Inc()
	}
}

// ObserveFusionMethod records which fusion method served a request.
func (m *PromMetrics) ObserveFusionMethod(method string) {
	m.fusionMethodTotal.WithLabelValues(method).Inc()
}
