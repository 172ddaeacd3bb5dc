// Package metrics provides Prometheus metrics for the company backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the backend.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	SearchesTotal   *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "company_runs_total",
				Help: "Total number of full workflow runs by trigger and decision.",
			},
			[]string{"trigger", "decision"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "company_stage_duration_seconds",
				Help:    "Workflow stage duration by stage.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "company_searches_total",
				Help: "Total search adapter calls by outcome (cached, mock, live, degraded).",
			},
			[]string{"outcome"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "company_provider_errors_total",
				Help: "Total upstream provider failures by provider and stage.",
			},
			[]string{"provider", "stage"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "company_http_requests_total",
				Help: "Total HTTP requests by path and status.",
			},
			[]string{"path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "company_http_request_duration_seconds",
				Help:    "HTTP request duration by path.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		registry: reg,
	}

	reg.MustRegister(m.RunsTotal)
	reg.MustRegister(m.StageDuration)
	reg.MustRegister(m.SearchesTotal)
	reg.MustRegister(m.ProviderErrors)
	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun increments the run counter.
func (m *Metrics) RecordRun(trigger, decision string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(trigger, decision).Inc()
}

// ObserveStage records a stage duration.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordSearch increments the search counter.
func (m *Metrics) RecordSearch(outcome string) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
}

// RecordProviderError increments the provider error counter.
func (m *Metrics) RecordProviderError(provider, stage string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, stage).Inc()
}

// RecordRequest increments the HTTP request counter.
func (m *Metrics) RecordRequest(path, status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(path, status).Inc()
}

// ObserveRequest records an HTTP request duration.
func (m *Metrics) ObserveRequest(path string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(path).Observe(seconds)
}
