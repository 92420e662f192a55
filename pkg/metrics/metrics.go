// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ChunksTotal          *prometheus.CounterVec
	ChunkDuration        *prometheus.HistogramVec
	DocumentsScored      *prometheus.CounterVec
	SuggestionsTotal     *prometheus.CounterVec
	BudgetBreaks         *prometheus.CounterVec
	RunsCompleted        *prometheus.CounterVec
	RunCacheHits         prometheus.Counter
	RunCacheMisses       prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksuggest_chunks_total",
				Help: "Chunk calls by run mode and resulting status.",
			},
			[]string{"mode", "status"},
		),
		ChunkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linksuggest_chunk_duration_seconds",
				Help:    "Wall-clock time of one chunk call.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30, 45},
			},
			[]string{"mode"},
		),
		DocumentsScored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksuggest_documents_scored_total",
				Help: "Documents scored by run mode.",
			},
			[]string{"mode"},
		),
		SuggestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksuggest_phrases_suggested_total",
				Help: "Phrases with at least one suggestion, by run mode.",
			},
			[]string{"mode"},
		),
		BudgetBreaks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksuggest_budget_breaks_total",
				Help: "Chunks cut short by a budget, by run mode and budget (time, memory).",
			},
			[]string{"mode", "budget"},
		),
		RunsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksuggest_runs_completed_total",
				Help: "Runs that reached completion, by mode.",
			},
			[]string{"mode"},
		),
		RunCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "linksuggest_formatted_cache_hits_total",
				Help: "Formatted views served from an existing snapshot.",
			},
		),
		RunCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "linksuggest_formatted_cache_misses_total",
				Help: "Formatted view requests that found no snapshot.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ChunksTotal,
		m.ChunkDuration,
		m.DocumentsScored,
		m.SuggestionsTotal,
		m.BudgetBreaks,
		m.RunsCompleted,
		m.RunCacheHits,
		m.RunCacheMisses,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
