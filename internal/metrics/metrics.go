package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service registry and every collector the service exports.
type Metrics struct {
	reg *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestInflight prometheus.Gauge
	requests        *prometheus.CounterVec
	cache           *prometheus.CounterVec
}

// New registers the HTTP and cache collectors under the given namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latencies by method & route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		requestInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_inflight",
				Help:      "Current number of inbound in-flight HTTP requests.",
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "total_requests",
				Help:      "Total number of HTTP requests by method & route.",
			},
			[]string{"method", "route", "status"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "total",
				Help:      "Cache lookups by result.",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.requestInflight,
		m.requests,
		m.cache,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records latency and totals per matched route template, so
// "/api/poetry/:id" is one series no matter how many ids are requested.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.requestInflight.Inc()
		defer m.requestInflight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}

func (m *Metrics) CacheHit() {
	m.cache.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	m.cache.WithLabelValues("miss").Inc()
}

func (m *Metrics) CacheHits() float64 {
	return counterValue(m.cache.WithLabelValues("hit"))
}

func (m *Metrics) CacheMisses() float64 {
	return counterValue(m.cache.WithLabelValues("miss"))
}
