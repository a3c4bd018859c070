// Package metrics exposes Prometheus metrics for the storehouse server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics owns a private registry so tests and multiple servers in one
// process do not collide on the global one.
type ServerMetrics struct {
	reg      *prometheus.Registry
	handler  http.Handler
	inflight prometheus.Gauge
	reqTotal *prometheus.CounterVec
	reqDur   *prometheus.HistogramVec

	commitsTotal         *prometheus.CounterVec
	committedBytes       *prometheus.CounterVec
	pipelineFailures     *prometheus.CounterVec
	eventsDropped        prometheus.Counter
	ratelimitDeniedTotal prometheus.Counter
	httpPanicTotal       prometheus.Counter
}

// New returns a fresh registry with the standard collectors. Labels are
// limited to method, route pattern and status to keep cardinality bounded.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		commitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storehouse_commits_total",
			Help: "Total committed files by source (upload, fetch)",
		}, []string{"source"}),
		committedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storehouse_committed_bytes_total",
			Help: "Total bytes committed by source (upload, fetch)",
		}, []string{"source"}),
		pipelineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storehouse_pipeline_failures_total",
			Help: "Failed commit pipelines by stage and error kind",
		}, []string{"stage", "kind"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storehouse_events_dropped_total",
			Help: "Lifecycle events dropped because the async queue was full",
		}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered handler panics",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.commitsTotal,
		m.committedBytes,
		m.pipelineFailures,
		m.eventsDropped,
		m.ratelimitDeniedTotal,
		m.httpPanicTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// Registry is exposed for tests.
func (m *ServerMetrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveCommit counts a committed file. Negative sizes (stat failed) are
// counted as a commit without bytes.
func (m *ServerMetrics) ObserveCommit(source string, size int64) {
	m.commitsTotal.WithLabelValues(source).Inc()
	if size > 0 {
		m.committedBytes.WithLabelValues(source).Add(float64(size))
	}
}

func (m *ServerMetrics) IncPipelineFailure(stage, kind string) {
	m.pipelineFailures.WithLabelValues(stage, kind).Inc()
}

func (m *ServerMetrics) IncEventsDropped() {
	m.eventsDropped.Inc()
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

func (m *ServerMetrics) IncHTTPPanic() {
	m.httpPanicTotal.Inc()
}
