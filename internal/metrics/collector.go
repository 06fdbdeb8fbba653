// Package metrics exposes SkynixIQ's Prometheus metrics. Each Collector owns
// its registry so tests and multiple bots in one process never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skynix"

// Stage names used for upstream latency.
const (
	StageWeather    = "weather"
	StageTranscribe = "transcribe"
	StageRewrite    = "rewrite"
)

// Collector aggregates message counters and upstream latency histograms.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	messages      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	rateLimited   prometheus.Counter
	panics        prometheus.Counter
}

// New creates a collector registered on a fresh registry that also carries
// the Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Inbound messages handled, by message kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of upstream calls in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage", "outcome"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "messages_in_flight",
			Help:      "Messages currently being handled",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Messages refused by the per-sender rate limit",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Panics recovered while handling a message",
		}),
	}
	reg.MustRegister(
		c.messages,
		c.stageDuration,
		c.inFlight,
		c.rateLimited,
		c.panics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Message records one handled message.
func (c *Collector) Message(kind, outcome string) {
	if c == nil {
		return
	}
	c.messages.WithLabelValues(kind, outcome).Inc()
}

// Stage records the latency of one upstream call.
func (c *Collector) Stage(stage, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

// Begin marks a message as in flight and returns the func that ends it.
func (c *Collector) Begin() func() {
	if c == nil {
		return func() {}
	}
	c.inFlight.Inc()
	return c.inFlight.Dec
}

func (c *Collector) RateLimited() {
	if c == nil {
		return
	}
	c.rateLimited.Inc()
}

func (c *Collector) Panic() {
	if c == nil {
		return
	}
	c.panics.Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// NewMux returns a router serving /metrics and /healthz.
func NewMux(c *Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", c.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}
