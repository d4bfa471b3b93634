package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry              *prometheus.Registry
	httpRequests          *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	upstreamFetches       *prometheus.CounterVec
	upstreamFetchDuration prometheus.Histogram
	portsByCategory       *prometheus.GaugeVec
}

// New creates a fresh Metrics registry with HTTP, upstream and port metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portmonitor",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by portmonitor",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portmonitor",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by portmonitor",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	upstreamFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portmonitor",
		Name:      "upstream_fetch_total",
		Help:      "Provisioner device fetches by result",
	}, []string{"result"})

	upstreamFetchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "portmonitor",
		Name:      "upstream_fetch_duration_seconds",
		Help:      "Duration of provisioner device fetches",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	portsByCategory := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "portmonitor",
		Name:      "ports",
		Help:      "Ports in the most recent aggregation, by color category",
	}, []string{"category"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		upstreamFetches,
		upstreamFetchDuration,
		portsByCategory,
	)

	return &Metrics{
		registry:              registry,
		httpRequests:          httpRequests,
		httpRequestDuration:   httpRequestDuration,
		upstreamFetches:       upstreamFetches,
		upstreamFetchDuration: upstreamFetchDuration,
		portsByCategory:       portsByCategory,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveUpstreamFetch records one provisioner fetch and its outcome.
func (m *Metrics) ObserveUpstreamFetch(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamFetches.WithLabelValues(result).Inc()
	m.upstreamFetchDuration.Observe(duration.Seconds())
}

// SetPortCounts replaces the per-category port gauge. Categories missing
// from counts are reset to zero.
func (m *Metrics) SetPortCounts(categories []string, counts map[string]int) {
	if m == nil {
		return
	}
	for _, c := range categories {
		m.portsByCategory.WithLabelValues(c).Set(float64(counts[c]))
	}
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
