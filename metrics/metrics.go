// Package metrics defines the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docassist"

// Metrics groups every collector on its own registry, so independent
// instances can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	CompletionRequests *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
	CompletionTokens   *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	Uploads            *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
	HTTPRequests       *prometheus.CounterVec
	RateLimited        prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CompletionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Chat-completion calls by provider, model and outcome.",
		}, []string{"provider", "model", "status"}),
		CompletionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Latency of chat-completion calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"provider"}),
		CompletionTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_tokens_total",
			Help:      "Tokens reported by the provider, by kind.",
		}, []string{"provider", "kind"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "User submissions by profile and outcome.",
		}, []string{"profile", "outcome"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads by declared type and outcome.",
		}, []string{"type", "outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "HTTP requests rejected by the per-client limiter.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CompletionRequests,
		m.CompletionDuration,
		m.CompletionTokens,
		m.Submissions,
		m.Uploads,
		m.ActiveSessions,
		m.HTTPRequests,
		m.RateLimited,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
