// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/constellation/pkg/observability"
)

const namespace = "constellation"

// Hooks records pipeline, cache, HTTP client and server events. It
// implements every hook interface of the observability package.
type Hooks struct {
	fetchTotal     *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	bubbles        prometheus.Histogram
	layoutDuration prometheus.Histogram
	exhausted      prometheus.Counter
	renderTotal    *prometheus.CounterVec
	renderDuration prometheus.Histogram
	cacheTotal     *prometheus.CounterVec
	cacheBytes     *prometheus.CounterVec
	clientTotal    *prometheus.CounterVec
	clientDuration *prometheus.HistogramVec
	serveTotal     *prometheus.CounterVec
	serveDuration  *prometheus.HistogramVec
	clicks         prometheus.Counter
}

var (
	_ observability.PipelineHooks = (*Hooks)(nil)
	_ observability.CacheHooks    = (*Hooks)(nil)
	_ observability.HTTPHooks     = (*Hooks)(nil)
	_ observability.ServerHooks   = (*Hooks)(nil)
)

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Hooks {
	f := promauto.With(reg)
	return &Hooks{
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "matrix_fetch_total",
			Help: "Co-occurrence matrix fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "matrix_fetch_duration_seconds",
			Help:    "Time to load a co-occurrence matrix.",
			Buckets: prometheus.DefBuckets,
		}),
		bubbles: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "layout_bubbles",
			Help:    "Bubbles per computed layout.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		layoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "layout_duration_seconds",
			Help:    "Time to place the bubbles of a matrix.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		exhausted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "layout_exhausted_total",
			Help: "Bubbles placed at the spiral iteration ceiling.",
		}),
		renderTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "render_total",
			Help: "Render runs by format and outcome.",
		}, []string{"format", "outcome"}),
		renderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "render_duration_seconds",
			Help:    "Time to render artifacts.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_operations_total",
			Help: "Cache lookups and writes by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_written_bytes_total",
			Help: "Bytes written to the cache by key type.",
		}, []string{"key_type"}),
		clientTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_client_requests_total",
			Help: "Outgoing HTTP requests by host and status.",
		}, []string{"host", "status"}),
		clientDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_client_request_duration_seconds",
			Help:    "Outgoing HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
		serveTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Served HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		serveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "Served HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		clicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bubble_clicks_total",
			Help: "Bubble clicks forwarded through the API.",
		}),
	}
}

// Register installs h as the process-wide pipeline, cache, HTTP and server
// hooks.
func (h *Hooks) Register() {
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
	observability.SetServerHooks(h)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *Hooks) OnFetchStart(context.Context, string, string) {}

func (h *Hooks) OnFetchComplete(_ context.Context, _, _ string, _ int, d time.Duration, err error) {
	h.fetchTotal.WithLabelValues(outcome(err)).Inc()
	h.fetchDuration.Observe(d.Seconds())
}

func (h *Hooks) OnLayoutStart(_ context.Context, bubbles int) {
	h.bubbles.Observe(float64(bubbles))
}

func (h *Hooks) OnLayoutComplete(_ context.Context, _, exhausted int, d time.Duration) {
	h.layoutDuration.Observe(d.Seconds())
	h.exhausted.Add(float64(exhausted))
}

func (h *Hooks) OnRenderStart(context.Context, []string) {}

func (h *Hooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	h.renderTotal.WithLabelValues(strings.Join(formats, ","), outcome(err)).Inc()
	h.renderDuration.Observe(d.Seconds())
}

func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheTotal.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *Hooks) OnRequest(context.Context, string, string, string) {}

func (h *Hooks) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	h.clientTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()
	h.clientDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (h *Hooks) OnError(_ context.Context, _, host, _ string, _ error) {
	h.clientTotal.WithLabelValues(host, "error").Inc()
}

func (h *Hooks) OnServe(_ context.Context, method, route string, status int, d time.Duration) {
	h.serveTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.serveDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (h *Hooks) OnClick(context.Context, string, string) {
	h.clicks.Inc()
}
