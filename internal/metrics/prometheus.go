package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the prometheus collectors for the retrieval pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	resultsTotal       *prometheus.CounterVec
	fetchDuration      *prometheus.HistogramVec
	cacheFillFailures  prometheus.Counter
	cacheLookupFailure prometheus.Counter
}

// Default histogram buckets for origin fetch latency (in seconds)
var defaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// New builds a private registry with Go/process collectors plus the pipeline metrics.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		resultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "results_total",
				Help:      "Coordinator outcomes by operation and result status",
			},
			[]string{"operation", "status"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "origin_fetch_duration_seconds",
				Help:      "Latency of origin fetches",
				Buckets:   defaultBuckets,
			},
			[]string{"outcome"},
		),
		cacheFillFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fill_failures_total",
			Help:      "Cache writes that failed after a successful origin fetch",
		}),
		cacheLookupFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookup_failures_total",
			Help:      "Cache reads that failed with an I/O error and were treated as misses",
		}),
	}

	registry.MustRegister(m.resultsTotal, m.fetchDuration, m.cacheFillFailures, m.cacheLookupFailure)
	return m
}

// RecordResult counts one coordinator outcome.
func (m *Metrics) RecordResult(operation, status string) {
	if m == nil {
		return
	}
	m.resultsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveFetch records an origin fetch latency.
func (m *Metrics) ObserveFetch(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.fetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordFillFailure counts a cache write that failed after a successful origin fetch.
func (m *Metrics) RecordFillFailure() {
	if m == nil {
		return
	}
	m.cacheFillFailures.Inc()
}

// RecordLookupFailure counts a cache read I/O error that was treated as a miss.
func (m *Metrics) RecordLookupFailure() {
	if m == nil {
		return
	}
	m.cacheLookupFailure.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
