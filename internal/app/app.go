// Package app assembles the suggestion engine from configuration: the
// document store, run state, scoring engine and chunk orchestrator shared by
// the server, the worker and the command-line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/aggregate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/runstate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/store"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/resilience"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config       *config.Config
	Store        store.Store
	Docs         store.DocumentStore
	Runs         *runstate.Manager
	Normalizer   *text.Normalizer
	Engine       *suggest.Engine
	Orchestrator *batch.Orchestrator
	Health       *health.Checker

	closers []func() error
}

// Options carries the process-specific parts of the wiring.
type Options struct {
	Metrics *metrics.Metrics
	Batch   []batch.Option
}

// New opens the configured backends and builds the orchestrator.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Health: health.NewChecker()}

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)

	breaker := resilience.CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: 30 * time.Second, HalfOpenMaxRequests: 1}
	if m := opts.Metrics; m != nil {
		breaker.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	guarded := store.NewGuarded(st, store.GuardOptions{
		Retry:   resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, JitterFraction: 0.1},
		Breaker: breaker,
		Timeout: 10 * time.Second,
	})
	a.Docs = guarded
	a.Health.Register("document_store", func(ctx context.Context) health.ComponentHealth {
		if state := guarded.Breaker().GetState(); state != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	runStore, err := a.openRunState(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Runs = runstate.NewManager(runStore, runstate.Options{
		SnapshotTTL: cfg.RunState.SnapshotTTL,
		CacheTTL:    cfg.RunState.KeywordTTL,
	})

	a.Normalizer = Normalizer(cfg)
	a.Engine = suggest.NewEngine(a.Normalizer, Segmenter(cfg), ScoringConfig(cfg))
	batchOpts := opts.Batch
	if opts.Metrics != nil {
		batchOpts = append([]batch.Option{batch.WithMetrics(opts.Metrics)}, batchOpts...)
	}
	a.Orchestrator = batch.New(
		a.Docs,
		a.Runs,
		a.Engine,
		aggregate.NewFormatter(a.Engine, cfg.Display.MaxSuggestions),
		BatchConfig(cfg),
		batchOpts...,
	)

	slog.Info("engine ready",
		"store", cfg.Store.Driver,
		"run_state", cfg.RunState.Backend,
		"language", cfg.Text.Language,
		"batch_size", cfg.Batch.Size,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.Store, error) {
	cfg := a.Config
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		s := store.NewSQLStore(db.DB, store.DialectPostgres)
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.Health.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		return s, nil
	case "sqlite":
		return store.OpenSQLite(ctx, cfg.Store.SQLitePath)
	case "bolt":
		return store.NewBoltStore(cfg.Store.BoltPath)
	case "memory":
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func (a *App) openRunState(ctx context.Context) (runstate.Store, error) {
	cfg := a.Config
	if cfg.RunState.Backend != "redis" {
		return runstate.NewMemoryStore(cfg.RunState.MemoryCapacity), nil
	}
	client, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.Health.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if err := client.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	return runstate.NewRedisStore(client), nil
}

// OnClose registers fn to run when the App is closed.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases every backend, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Normalizer builds the tokeniser and stemmer for the configured language.
func Normalizer(cfg *config.Config) *text.Normalizer {
	return text.NewNormalizer(text.Options{
		Language:      cfg.Text.Language,
		IgnoreWords:   cfg.Text.IgnoreWords,
		IgnoreNumbers: cfg.Text.IgnoreNumbers,
	})
}

func Segmenter(cfg *config.Config) *segment.Segmenter {
	return segment.New(segment.Config{
		SkipType:         segment.SkipType(cfg.Segment.SkipType),
		SkipCount:        cfg.Segment.SkipCount,
		IgnoreShortcodes: cfg.Segment.IgnoreShortcodes,
		IgnoreClasses:    cfg.Segment.IgnoreClasses,
	})
}

// ScoringConfig overlays the configured scoring settings on the defaults.
func ScoringConfig(cfg *config.Config) suggest.ScoringConfig {
	sc := suggest.DefaultScoringConfig()
	if cfg.Scoring.MaxAnchorLength > 0 {
		sc.MaxAnchorLength = cfg.Scoring.MaxAnchorLength
	}
	if cfg.Scoring.MaxSuggestionsPerPhrase > 0 {
		sc.MaxSuggestionsPerPhrase = cfg.Scoring.MaxSuggestionsPerPhrase
	}
	if cfg.Scoring.MaxDedupePasses > 0 {
		sc.MaxDedupePasses = cfg.Scoring.MaxDedupePasses
	}
	sc.Undeletable = cfg.Scoring.Undeletable
	sc.All = cfg.Scoring.All
	sc.OnlyMatchTargetKeywords = cfg.Scoring.OnlyMatchTargetKeywords
	return sc
}

func BatchConfig(cfg *config.Config) batch.Config {
	b := cfg.Batch
	f := cfg.Filters
	return batch.Config{
		Size:              b.Size,
		SoftBudget:        b.SoftBudget,
		HardBudget:        b.HardBudget,
		ExternalSoft:      b.ExternalSoft,
		ExternalHard:      b.ExternalHard,
		MemoryBreakPoint:  b.MemoryBreakPoint,
		MaxLinksPerPost:   b.MaxLinksPerPost,
		ExternalLinking:   b.ExternalLinking,
		InboundMultiplier: b.InboundMultiplier,
		Partial: keywords.PartialTitle{
			Basis:     keywords.Basis(cfg.Titles.Basis),
			Words:     cfg.Titles.Words,
			SplitChar: cfg.Titles.SplitChar,
		},
		Filters: batch.Filters{
			PostTypes:         f.PostTypes,
			Statuses:          f.Statuses,
			Taxonomies:        f.Taxonomies,
			IgnoredCategories: f.IgnoredCategories,
			IgnoredPosts:      f.IgnoredPosts,
			MaxAge:            time.Duration(f.MaxAgeDays) * 24 * time.Hour,
		},
	}
}
