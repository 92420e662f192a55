// Package api exposes suggestion runs over HTTP. Every chunk endpoint runs
// one budgeted chunk call; clients repeat the call with the returned cursor
// until the run reports completion and then fetch the formatted suggestions.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/middleware"
)

// Runner is the run API served over HTTP. *batch.Orchestrator implements it.
type Runner interface {
	ProcessOutboundChunk(ctx context.Context, req batch.OutboundRequest) (*batch.ChunkResponse, error)
	ProcessExternalChunk(ctx context.Context, req batch.OutboundRequest) (*batch.ChunkResponse, error)
	ProcessInboundChunk(ctx context.Context, req batch.InboundRequest) (*batch.InboundResponse, error)
	GetFormattedSuggestions(ctx context.Context, req batch.FormatRequest) (*batch.Formatted, error)
	ClearRunCache(ctx context.Context, processKey string, document doc.Ref) error
}

// RunPublisher queues asynchronous run requests. *kafka.Producer
// implements it.
type RunPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Deps holds the router dependencies. Publisher, Health, Metrics and Limiter
// are optional.
type Deps struct {
	Runner         Runner
	Publisher      RunPublisher
	Health         *health.Checker
	Metrics        *metrics.Metrics
	Limiter        *Limiter
	APIKeys        []string
	CORS           CORSConfig
	RequestTimeout time.Duration
	// Tracing logs a span tree per API request.
	Tracing bool
}

// NewRouter builds the HTTP handler.
//
//	POST   /api/v1/outbound/chunks
//	POST   /api/v1/external/chunks
//	POST   /api/v1/inbound/chunks
//	POST   /api/v1/runs                          queue a run for the worker
//	GET    /api/v1/runs/{processKey}/suggestions
//	DELETE /api/v1/runs/{processKey}
//	GET    /health/live, /health/ready
func NewRouter(deps *Deps) http.Handler {
	h := NewHandler(deps.Runner, deps.Publisher)

	r := chi.NewRouter()
	r.Use(pkgmw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if deps.Metrics != nil {
		r.Use(pkgmw.Metrics(deps.Metrics))
	}
	r.Use(CORS(deps.CORS))

	checker := deps.Health
	if checker == nil {
		checker = health.NewChecker()
	}
	r.Get("/health/live", checker.LiveHandler())
	r.Get("/health/ready", checker.ReadyHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Auth(deps.APIKeys))
		if deps.Limiter != nil {
			r.Use(RateLimit(deps.Limiter))
		}
		r.Use(pkgmw.Timeout(deps.RequestTimeout))
		if deps.Tracing {
			r.Use(pkgmw.Tracing)
		}

		r.Post("/outbound/chunks", h.OutboundChunk)
		r.Post("/external/chunks", h.ExternalChunk)
		r.Post("/inbound/chunks", h.InboundChunk)
		r.Post("/runs", h.RequestRun)
		r.Get("/runs/{processKey}/suggestions", h.Suggestions)
		r.Delete("/runs/{processKey}", h.ClearRun)
	})
	return r
}
