// Package metrics exports pipeline, cache, and HTTP events as Prometheus
// metrics by implementing the observability hooks.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/lanemap/pkg/observability"
)

const namespace = "lanemap"

// Metrics holds the collectors. It implements observability.PipelineHooks,
// observability.CacheHooks, and observability.HTTPHooks.
type Metrics struct {
	registry *prometheus.Registry

	loads          *prometheus.CounterVec
	layoutDuration prometheus.Histogram
	layoutElements *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	commits        *prometheus.CounterVec
	cacheOps       *prometheus.CounterVec
	cacheBytes     prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)

// New creates the collectors and registers them in a fresh registry that
// also carries the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_loads_total",
			Help:      "Snapshot loads by result.",
		}, []string{"result"}),
		layoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Time spent laying out a snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		layoutElements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_elements_total",
			Help:      "Elements produced by layouts: nodes, edges, unplaced steps, dropped connections.",
		}, []string{"kind"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render runs by format and result.",
		}, []string{"format", "result"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering artifacts.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Placement commits by gesture and outcome.",
		}, []string{"gesture", "outcome"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes by key type.",
		}, []string{"key_type", "op"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.loads, m.layoutDuration, m.layoutElements,
		m.renders, m.renderDuration, m.commits,
		m.cacheOps, m.cacheBytes,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Install registers m as the global pipeline, cache, and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnLoadStart(context.Context, int64) {}

func (m *Metrics) OnLoadComplete(_ context.Context, _ int64, _, _ int, _ time.Duration, err error) {
	m.loads.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) OnLayoutStart(context.Context, int64, int) {}

func (m *Metrics) OnLayoutComplete(_ context.Context, _ int64, stats observability.LayoutStats, d time.Duration, err error) {
	m.layoutDuration.Observe(d.Seconds())
	if err != nil {
		return
	}
	m.layoutElements.WithLabelValues("node").Add(float64(stats.Nodes))
	m.layoutElements.WithLabelValues("edge").Add(float64(stats.Edges))
	m.layoutElements.WithLabelValues("unplaced").Add(float64(stats.Unplaced))
	m.layoutElements.WithLabelValues("dropped").Add(float64(stats.Dropped))
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	m.renderDuration.Observe(d.Seconds())
	for _, f := range formats {
		m.renders.WithLabelValues(f, result(err)).Inc()
	}
}

func (m *Metrics) OnCommit(_ context.Context, gesture, outcome string) {
	m.commits.WithLabelValues(gesture, outcome).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
