package store

import (
	"context"
	"errors"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/resilience"
)

// GuardOptions configure Guarded. Zero values take the resilience defaults.
type GuardOptions struct {
	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
	// Timeout bounds each attempt.
	Timeout time.Duration
}

// Guarded retries transient read failures and stops calling a store that
// keeps failing. Missing documents and invalid input are answers, not
// failures: they are neither retried nor counted by the breaker.
type Guarded struct {
	next    DocumentStore
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	timeout time.Duration
}

func NewGuarded(next DocumentStore, opts GuardOptions) *Guarded {
	opts.Retry.Retryable = transient
	opts.Breaker.IsFailure = transient
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Guarded{
		next:    next,
		breaker: resilience.NewCircuitBreaker("document-store", opts.Breaker),
		retry:   opts.Retry,
		timeout: opts.Timeout,
	}
}

func transient(err error) bool {
	switch {
	case errors.Is(err, apperrors.ErrDocumentNotFound),
		errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// Breaker exposes the circuit state for health checks.
func (g *Guarded) Breaker() *resilience.CircuitBreaker { return g.breaker }

func guard[T any](ctx context.Context, g *Guarded, name string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := resilience.Retry(ctx, "store."+name, g.retry, func() error {
		return g.breaker.Execute(func() error {
			v, err := resilience.CallWithTimeout(ctx, g.timeout, "store."+name, fn)
			if err != nil {
				return err
			}
			out = v
			return nil
		})
	})
	return out, err
}

func (g *Guarded) GetDocument(ctx context.Context, ref doc.Ref) (*doc.Item, error) {
	return guard(ctx, g, "get_document", func(ctx context.Context) (*doc.Item, error) {
		return g.next.GetDocument(ctx, ref)
	})
}

func (g *Guarded) GetDocuments(ctx context.Context, refs []doc.Ref) ([]*doc.Item, error) {
	return guard(ctx, g, "get_documents", func(ctx context.Context) ([]*doc.Item, error) {
		return g.next.GetDocuments(ctx, refs)
	})
}

func (g *Guarded) GetContent(ctx context.Context, ref doc.Ref) (string, error) {
	return guard(ctx, g, "get_content", func(ctx context.Context) (string, error) {
		return g.next.GetContent(ctx, ref)
	})
}

func (g *Guarded) QueryCandidateIDs(ctx context.Context, q CandidateQuery) ([]int64, error) {
	return guard(ctx, g, "query_candidate_ids", func(ctx context.Context) ([]int64, error) {
		return g.next.QueryCandidateIDs(ctx, q)
	})
}

func (g *Guarded) Terms(ctx context.Context, taxonomies []string) ([]*doc.Item, error) {
	return guard(ctx, g, "terms", func(ctx context.Context) ([]*doc.Item, error) {
		return g.next.Terms(ctx, taxonomies)
	})
}

func (g *Guarded) GetActiveKeywords(ctx context.Context, ref doc.Ref) ([]keywords.Keyword, error) {
	return guard(ctx, g, "get_active_keywords", func(ctx context.Context) ([]keywords.Keyword, error) {
		return g.next.GetActiveKeywords(ctx, ref)
	})
}

func (g *Guarded) ActiveKeywordsFor(ctx context.Context, refs []doc.Ref) (map[doc.Ref][]keywords.Keyword, error) {
	return guard(ctx, g, "active_keywords_for", func(ctx context.Context) (map[doc.Ref][]keywords.Keyword, error) {
		return g.next.ActiveKeywordsFor(ctx, refs)
	})
}

func (g *Guarded) GetLinkedDocumentIDs(ctx context.Context, ref doc.Ref, dir Direction) ([]doc.Ref, error) {
	return guard(ctx, g, "get_linked_document_ids", func(ctx context.Context) ([]doc.Ref, error) {
		return g.next.GetLinkedDocumentIDs(ctx, ref, dir)
	})
}

func (g *Guarded) GetLinks(ctx context.Context, ref doc.Ref, dir Direction) ([]Link, error) {
	return guard(ctx, g, "get_links", func(ctx context.Context) ([]Link, error) {
		return g.next.GetLinks(ctx, ref, dir)
	})
}

func (g *Guarded) ExternalItems(ctx context.Context, offset, limit int) ([]*doc.ExternalItem, error) {
	return guard(ctx, g, "external_items", func(ctx context.Context) ([]*doc.ExternalItem, error) {
		return g.next.ExternalItems(ctx, offset, limit)
	})
}

func (g *Guarded) CountExternalItems(ctx context.Context) (int, error) {
	return guard(ctx, g, "count_external_items", func(ctx context.Context) (int, error) {
		return g.next.CountExternalItems(ctx)
	})
}
