// Package metrics exposes the gateway's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marv_gateway"

// Metrics holds every collector, registered on a private registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpInFlight     prometheus.Gauge
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	bulkRuns         *prometheus.CounterVec
	bulkItems        *prometheus.CounterVec
	serialsExpanded  prometheus.Counter
	warrantyLookups  *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
}

// New creates and registers all collectors, including the Go and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the warranty backend. status is 0 on transport failure.",
		}, []string{"method", "endpoint", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Warranty backend round-trip latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "endpoint"}),
		bulkRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_runs_total",
			Help:      "Bulk runs finished, by kind and final status.",
		}, []string{"kind", "status"}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_items_total",
			Help:      "Serials processed by bulk runs, by kind and result.",
		}, []string{"kind", "result"}),
		serialsExpanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serials_expanded_total",
			Help:      "Serial numbers produced by range expansion.",
		}),
		warrantyLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warranty_lookups_total",
			Help:      "Warranty lookups, by coverage state or error.",
		}, []string{"result"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache reads, by cache and hit or miss.",
		}, []string{"cache", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
		m.upstreamRequests,
		m.upstreamDuration,
		m.bulkRuns,
		m.bulkItems,
		m.serialsExpanded,
		m.warrantyLookups,
		m.cacheRequests,
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RequestStarted and RequestFinished bracket one HTTP request
func (m *Metrics) RequestStarted() {
	m.httpInFlight.Inc()
}

func (m *Metrics) RequestFinished(method, route string, status int, elapsed time.Duration) {
	m.httpInFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveUpstream records one warranty backend round trip. Its signature
// matches marvapi.RequestObserver.
func (m *Metrics) ObserveUpstream(method, endpoint string, status int, elapsed time.Duration) {
	m.upstreamRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.upstreamDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// ObserveBulkRun records a finished bulk run
func (m *Metrics) ObserveBulkRun(kind, status string, succeeded, failed int) {
	m.bulkRuns.WithLabelValues(kind, status).Inc()
	m.bulkItems.WithLabelValues(kind, "succeeded").Add(float64(succeeded))
	m.bulkItems.WithLabelValues(kind, "failed").Add(float64(failed))
}

// ObserveSerialsExpanded counts serials produced by an expansion
func (m *Metrics) ObserveSerialsExpanded(n int) {
	m.serialsExpanded.Add(float64(n))
}

// ObserveWarrantyLookup counts a lookup by its outcome
func (m *Metrics) ObserveWarrantyLookup(result string) {
	m.warrantyLookups.WithLabelValues(result).Inc()
}

// ObserveCache counts a cache read
func (m *Metrics) ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(cache, result).Inc()
}
