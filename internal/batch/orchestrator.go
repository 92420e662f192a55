// Package batch drives suggestion runs in resumable chunks. Each chunk call
// indexes and scores as many candidate documents as its wall-clock and
// memory budgets allow, merges the output into the run state and returns the
// progress so the caller can come back for the next chunk.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/aggregate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/events"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/runstate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/store"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/wordindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/metrics"
)

// Status values reported to the driver.
const (
	StatusHasSuggestions = "has_suggestions"
	StatusNoSuggestions  = "no_suggestions"
)

const (
	messageOutbound = "Processing Link Suggestions: %d of %d processed"
	messageExternal = "Processing External Site Link Suggestions: %d of %d processed"
	messageComplete = "Processing Complete"
)

// Filters restrict the candidate universe of every run.
type Filters struct {
	PostTypes         []string
	Statuses          []string
	Taxonomies        []string
	IgnoredCategories []int64
	// IgnoredPosts holds URLs or "kind:id" refs of documents never suggested.
	IgnoredPosts []string
	// MaxAge limits candidates to documents published within the window.
	MaxAge time.Duration
}

type Config struct {
	Size              int
	SoftBudget        time.Duration
	HardBudget        time.Duration
	ExternalSoft      time.Duration
	ExternalHard      time.Duration
	MemoryBreakPoint  uint64
	MaxLinksPerPost   int
	ExternalLinking   bool
	InboundMultiplier int
	Partial           keywords.PartialTitle
	Filters           Filters
}

func (c Config) withDefaults() Config {
	if c.Size <= 0 {
		c.Size = 300
	}
	if c.SoftBudget <= 0 {
		c.SoftBudget = 15 * time.Second
	}
	if c.HardBudget < c.SoftBudget {
		c.HardBudget = 3 * c.SoftBudget
	}
	if c.ExternalSoft <= 0 {
		c.ExternalSoft = 15 * time.Second
	}
	if c.ExternalHard < c.ExternalSoft {
		c.ExternalHard = 2 * c.ExternalSoft
	}
	if c.InboundMultiplier <= 0 {
		c.InboundMultiplier = 10
	}
	return c
}

// Orchestrator is safe for concurrent use across process keys. Calls for the
// same process key are serialised by the run lock.
type Orchestrator struct {
	docs      store.DocumentStore
	runs      *runstate.Manager
	engine    *suggest.Engine
	formatter *aggregate.Formatter
	cfg       Config
	metrics   *metrics.Metrics
	events    events.Sink
	now       func() time.Time
	memUsage  func() uint64
	logger    *slog.Logger
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records chunk metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithEvents publishes run lifecycle events to sink.
func WithEvents(sink events.Sink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.events = sink
		}
	}
}

// WithClock replaces the wall clock used for budgets.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithMemoryUsage replaces the heap usage probe checked against the memory
// break point.
func WithMemoryUsage(fn func() uint64) Option {
	return func(o *Orchestrator) { o.memUsage = fn }
}

func New(docs store.DocumentStore, runs *runstate.Manager, engine *suggest.Engine, formatter *aggregate.Formatter, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		docs:      docs,
		runs:      runs,
		engine:    engine,
		formatter: formatter,
		cfg:       cfg.withDefaults(),
		events:    events.Discard{},
		now:       time.Now,
		memUsage:  heapInUse,
		logger:    slog.Default().With("component", "batch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func heapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// ChunkResponse reports the progress of an outbound or external run.
type ChunkResponse struct {
	Status         string `json:"status"`
	ProcessedCount int    `json:"processed_count"`
	TotalCount     int    `json:"total_count"`
	BatchSize      int    `json:"batch_size"`
	Count          int    `json:"count"`
	Message        string `json:"message"`
	Completed      bool   `json:"completed"`
}

func validate(ref doc.Ref, processKey string) error {
	if strings.TrimSpace(processKey) == "" {
		return apperrors.DataError(apperrors.ErrMissingProcessKey)
	}
	if ref.ID <= 0 {
		return apperrors.DataError(apperrors.ErrInvalidInput)
	}
	switch ref.Kind {
	case doc.KindPost, doc.KindTerm:
	default:
		return apperrors.DataError(apperrors.ErrInvalidInput)
	}
	return nil
}

// loadItem fetches a document with its content transcoded for segmentation.
func (o *Orchestrator) loadItem(ctx context.Context, ref doc.Ref) (*doc.Item, error) {
	item, err := o.docs.GetDocument(ctx, ref)
	if err != nil {
		return nil, err
	}
	content, err := o.docs.GetContent(ctx, ref)
	if err != nil {
		return nil, err
	}
	item.Content = toUTF8(content)
	return item, nil
}

// loadSubject fetches the document a run is about. A missing document is a
// validation failure.
func (o *Orchestrator) loadSubject(ctx context.Context, ref doc.Ref) (*doc.Item, error) {
	item, err := o.loadItem(ctx, ref)
	if errors.Is(err, apperrors.ErrDocumentNotFound) {
		return nil, apperrors.DataError(apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", ref, err)
	}
	return item, nil
}

// checkMode rejects a process key already used by a run of another mode.
func checkMode(state runstate.State, exists bool, mode runstate.Mode) error {
	if exists && state.Mode != "" && state.Mode != mode {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"process key belongs to a %s run", state.Mode)
	}
	return nil
}

// ignored reports whether d is on the ignored documents list.
func (o *Orchestrator) ignored(d doc.Document) bool {
	if len(o.cfg.Filters.IgnoredPosts) == 0 {
		return false
	}
	ref := d.Ref().String()
	for _, entry := range o.cfg.Filters.IgnoredPosts {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if entry == ref || entry == d.Link() {
			return true
		}
	}
	return false
}

func (o *Orchestrator) publishedAfter() time.Time {
	if o.cfg.Filters.MaxAge <= 0 {
		return time.Time{}
	}
	return o.now().Add(-o.cfg.Filters.MaxAge)
}

func (o *Orchestrator) builder(literal string) wordindex.Builder {
	return wordindex.Builder{
		Normalizer: o.engine.Normalizer(),
		Partial:    o.cfg.Partial,
		Literal:    literal,
	}
}

// ownKeywords returns the keywords the document ranks for, cached on the run.
func (o *Orchestrator) ownKeywords(ctx context.Context, run *runstate.Run, item *doc.Item) ([]keywords.Keyword, error) {
	return runstate.Remember(ctx, run, "own_keywords", func(ctx context.Context) ([]keywords.Keyword, error) {
		explicit, err := o.docs.GetActiveKeywords(ctx, item.Ref())
		if err != nil {
			return nil, fmt.Errorf("loading keywords of %s: %w", item.Ref(), err)
		}
		return keywords.ForPost(o.engine.Normalizer(), item, explicit), nil
	})
}

// FormatRequest selects the run whose suggestions are rendered.
type FormatRequest struct {
	ProcessKey string
	Mode       runstate.Mode
	// Document is the source (outbound) or target (inbound) of the run.
	Document doc.Ref
}

// Formatted is the display view of a run. Exactly one of Outbound and
// Inbound is set.
type Formatted struct {
	Mode      runstate.Mode          `json:"mode"`
	Completed bool                   `json:"completed"`
	Outbound  *aggregate.OutboundView `json:"outbound,omitempty"`
	Inbound   *aggregate.InboundView  `json:"inbound,omitempty"`
}

// GetFormattedSuggestions merges, ranks and renders the suggestions a run
// accumulated. Rendering a completed run consumes it.
func (o *Orchestrator) GetFormattedSuggestions(ctx context.Context, req FormatRequest) (*Formatted, error) {
	if err := validate(req.Document, req.ProcessKey); err != nil {
		return nil, err
	}
	ctx = logger.WithProcessKey(ctx, req.ProcessKey)
	log := logger.FromContext(ctx)
	run := o.runs.Run(req.ProcessKey)

	state, ok, err := run.State(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		o.cacheMiss()
		return nil, fmt.Errorf("run %s: %w", req.ProcessKey, apperrors.ErrRunNotFound)
	}
	if req.Mode == "" {
		req.Mode = state.Mode
	}
	if err := checkMode(state, ok, req.Mode); err != nil {
		return nil, err
	}
	o.cacheHit()

	out := &Formatted{Mode: req.Mode, Completed: state.Completed}
	var sourceKeywords []keywords.Keyword
	if item, err := o.docs.GetDocument(ctx, req.Document); err == nil {
		explicit, err := o.docs.GetActiveKeywords(ctx, req.Document)
		if err != nil {
			log.Warn("loading keywords for display failed", "error", err)
		}
		sourceKeywords = keywords.ForPost(o.engine.Normalizer(), item, explicit)
	} else if !errors.Is(err, apperrors.ErrDocumentNotFound) {
		return nil, fmt.Errorf("loading %s: %w", req.Document, err)
	}
	opts := aggregate.AnchorOptions{SourceKeywords: keywordText(sourceKeywords)}

	switch req.Mode {
	case runstate.ModeInbound:
		phrases, err := run.Phrases(ctx)
		if err != nil {
			return nil, err
		}
		view := o.formatter.FormatInbound(phrases, opts)
		out.Inbound = &view
	default:
		batches, err := run.Batches(ctx)
		if err != nil {
			return nil, err
		}
		external, err := o.externalRun(req.ProcessKey).Batches(ctx)
		if err != nil {
			return nil, err
		}
		links, err := o.docs.GetLinks(ctx, req.Document, store.Outbound)
		if err != nil {
			log.Warn("loading used anchors failed", "error", err)
		}
		for _, l := range links {
			opts.UsedAnchors = append(opts.UsedAnchors, l.Anchor)
		}
		view := o.formatter.FormatOutbound(append(batches, external...), req.Document, opts)
		out.Outbound = &view
	}

	if state.Completed {
		if err := o.purge(ctx, req.ProcessKey); err != nil {
			log.Warn("purging consumed run failed", "error", err)
		}
	}
	return out, nil
}

// ClearRunCache removes everything stored for a run.
func (o *Orchestrator) ClearRunCache(ctx context.Context, processKey string, document doc.Ref) error {
	if strings.TrimSpace(processKey) == "" {
		return apperrors.DataError(apperrors.ErrMissingProcessKey)
	}
	if err := o.purge(ctx, processKey); err != nil {
		return err
	}
	o.events.Track(events.RunEvent{
		Type:       events.TypeRunCleared,
		ProcessKey: processKey,
		Document:   document.String(),
	})
	logger.FromContext(logger.WithProcessKey(ctx, processKey)).Info("run cache cleared", "document", document.String())
	return nil
}

func (o *Orchestrator) purge(ctx context.Context, processKey string) error {
	if err := o.runs.Run(processKey).Purge(ctx); err != nil {
		return err
	}
	return o.externalRun(processKey).Purge(ctx)
}

func keywordText(kws []keywords.Keyword) string {
	parts := make([]string, 0, len(kws))
	for _, k := range kws {
		if k.Text != "" {
			parts = append(parts, k.Text)
		}
	}
	return strings.Join(parts, " ")
}

func (o *Orchestrator) cacheHit() {
	if o.metrics != nil {
		o.metrics.RunCacheHits.Inc()
	}
}

func (o *Orchestrator) cacheMiss() {
	if o.metrics != nil {
		o.metrics.RunCacheMisses.Inc()
	}
}

func (o *Orchestrator) observeChunk(mode runstate.Mode, status string, elapsed time.Duration, scored, suggested int) {
	if o.metrics == nil {
		return
	}
	o.metrics.ChunksTotal.WithLabelValues(string(mode), status).Inc()
	o.metrics.ChunkDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	o.metrics.DocumentsScored.WithLabelValues(string(mode)).Add(float64(scored))
	o.metrics.SuggestionsTotal.WithLabelValues(string(mode)).Add(float64(suggested))
}

func (o *Orchestrator) observeBreak(mode runstate.Mode, reason string) {
	if o.metrics != nil {
		o.metrics.BudgetBreaks.WithLabelValues(string(mode), reason).Inc()
	}
}

func (o *Orchestrator) observeCompleted(mode runstate.Mode) {
	if o.metrics != nil {
		o.metrics.RunsCompleted.WithLabelValues(string(mode)).Inc()
	}
}
