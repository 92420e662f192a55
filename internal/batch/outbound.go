package batch

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/events"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/runstate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/store"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/wordindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/tracing"
)

// OutboundRequest asks for the next chunk of an outbound or external run.
type OutboundRequest struct {
	Source     doc.Ref
	ProcessKey string
	// Count is the chunk count returned by the previous call. Zero starts a
	// new run under the process key.
	Count int
}

// workList is the ordered candidate universe of an outbound run. Terms come
// first and are all scored with the first chunk.
type workList struct {
	Refs  []doc.Ref `msgpack:"refs"`
	Terms int       `msgpack:"terms"`
}

// outboundInputs are computed once per run and reused by every chunk.
type outboundInputs struct {
	used    map[string]struct{}
	own     []keywords.Keyword
	same    map[int64]struct{}
	phrases []*suggest.Phrase
}

// ProcessOutboundChunk scores the source's phrases against the next chunks
// of candidate documents until the run completes or the budget runs out.
func (o *Orchestrator) ProcessOutboundChunk(ctx context.Context, req OutboundRequest) (*ChunkResponse, error) {
	if err := validate(req.Source, req.ProcessKey); err != nil {
		return nil, err
	}
	ctx = logger.WithProcessKey(ctx, req.ProcessKey)
	ctx, span := tracing.StartChildSpan(ctx, "batch.outbound_chunk")
	defer span.End()
	span.SetAttr("source", req.Source.String())
	span.SetAttr("count", req.Count)

	b := o.newBudget(o.cfg.SoftBudget, o.cfg.HardBudget, 0)
	run := o.runs.Run(req.ProcessKey)
	unlock, err := run.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	source, err := o.loadSubject(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	state, err := o.resume(ctx, run, runstate.ModeOutbound, req.Count == 0, func(s runstate.State) bool {
		return req.Count < s.Count
	})
	if err != nil {
		return nil, err
	}
	if state.Epoch == 0 {
		o.events.Track(events.RunEvent{Type: events.TypeRunStarted, Mode: string(runstate.ModeOutbound), ProcessKey: req.ProcessKey, Document: req.Source.String()})
	}

	if state.Completed {
		return o.chunkResponse(state, messageOutbound), nil
	}

	work, err := o.outboundWork(ctx, run, source)
	if err != nil {
		return nil, err
	}
	state.Total = len(work.Refs)

	var in outboundInputs
	if state.Processed < state.Total {
		if in, err = o.outboundInputs(ctx, run, source); err != nil {
			return nil, err
		}
	}

	hardCtx, cancel := context.WithTimeout(ctx, b.remaining())
	defer cancel()

	scored, suggested := 0, 0
	for state.Processed < state.Total && !b.exceeded() {
		n := o.cfg.Size
		if state.Count == 0 {
			n += work.Terms
		}
		end := min(state.Processed+n, state.Total)

		phrases, docs, err := o.scoreOutbound(hardCtx, work.Refs[state.Processed:end], in)
		if err != nil {
			if hardLimitHit(ctx, hardCtx) {
				b.reason = "time"
				break
			}
			return nil, err
		}
		if len(phrases) > 0 {
			if err := run.AppendBatches(ctx, phrases); err != nil {
				return nil, err
			}
		}
		scored += docs
		suggested += len(phrases)

		state.Count++
		state.Processed = end
		state.Suggested += len(phrases)
		state.Completed = state.Processed >= state.Total
		if state, err = run.Commit(ctx, state); err != nil {
			return nil, err
		}
	}

	if state.Processed >= state.Total && !state.Completed {
		state.Completed = true
		if state, err = run.Commit(ctx, state); err != nil {
			return nil, err
		}
	}
	if !state.Completed && b.reason != "" {
		o.observeBreak(runstate.ModeOutbound, b.reason)
	}

	resp := o.chunkResponse(state, messageOutbound)
	o.finishChunk(ctx, run, runstate.ModeOutbound, req.Source, state, b, scored, suggested)
	span.SetAttr("processed", state.Processed)
	return resp, nil
}

// resume returns the cursor a chunk call continues from. A fresh call drops
// whatever the key held before. A missing cursor, usually an expired run,
// restarts the run.
func (o *Orchestrator) resume(ctx context.Context, run *runstate.Run, mode runstate.Mode, fresh bool, stale func(runstate.State) bool) (runstate.State, error) {
	if fresh {
		if err := run.Reset(ctx); err != nil {
			return runstate.State{}, err
		}
		return runstate.State{Mode: mode}, nil
	}
	state, ok, err := run.State(ctx)
	if err != nil {
		return runstate.State{}, err
	}
	if !ok {
		logger.FromContext(ctx).Warn("run state missing, starting over", "mode", mode)
		return runstate.State{Mode: mode}, nil
	}
	if err := checkMode(state, ok, mode); err != nil {
		return runstate.State{}, err
	}
	if stale(state) {
		return runstate.State{}, apperrors.ErrStaleChunk
	}
	return state, nil
}

func (o *Orchestrator) chunkResponse(state runstate.State, message string) *ChunkResponse {
	return &ChunkResponse{
		Status:         status(state),
		ProcessedCount: state.Processed,
		TotalCount:     state.Total,
		BatchSize:      o.cfg.Size,
		Count:          state.Count,
		Message:        fmt.Sprintf(message, state.Processed, state.Total),
		Completed:      state.Completed,
	}
}

func status(state runstate.State) string {
	if state.Suggested > 0 {
		return StatusHasSuggestions
	}
	return StatusNoSuggestions
}

// finishChunk records the chunk and, once the run completes, drops its
// working caches. The accumulated suggestions stay for display.
func (o *Orchestrator) finishChunk(ctx context.Context, run *runstate.Run, mode runstate.Mode, ref doc.Ref, state runstate.State, b *budget, scored, suggested int) {
	log := logger.FromContext(ctx)
	o.observeChunk(mode, status(state), b.elapsed(), scored, suggested)
	ev := events.RunEvent{
		Type:        events.TypeChunkProcessed,
		Mode:        string(mode),
		ProcessKey:  run.Key(),
		Document:    ref.String(),
		Processed:   state.Processed,
		Total:       state.Total,
		Suggestions: state.Suggested,
		LatencyMs:   b.elapsed().Milliseconds(),
	}
	o.events.Track(ev)
	log.Debug("chunk processed",
		"mode", mode,
		"processed", state.Processed,
		"total", state.Total,
		"scored", scored,
		"suggested", suggested,
		"budget_break", b.reason,
	)
	if !state.Completed {
		return
	}
	if err := run.PurgeCaches(ctx); err != nil {
		log.Warn("purging run caches failed", "error", err)
	}
	o.observeCompleted(mode)
	ev.Type = events.TypeRunCompleted
	o.events.Track(ev)
	log.Info("run completed", "mode", mode, "total", state.Total, "suggestions", state.Suggested)
}

func (o *Orchestrator) candidateQuery(source *doc.Item) store.CandidateQuery {
	q := store.CandidateQuery{
		PostTypes:         o.cfg.Filters.PostTypes,
		Statuses:          o.cfg.Filters.Statuses,
		IgnoredCategories: o.cfg.Filters.IgnoredCategories,
		PublishedAfter:    o.publishedAfter(),
		Language:          source.Language,
	}
	if source.Kind == doc.KindPost {
		q.ExcludeIDs = []int64{source.ID}
	}
	return q
}

func (o *Orchestrator) outboundWork(ctx context.Context, run *runstate.Run, source *doc.Item) (workList, error) {
	return runstate.Remember(ctx, run, "work", func(ctx context.Context) (workList, error) {
		var w workList
		if len(o.cfg.Filters.Taxonomies) > 0 {
			terms, err := o.docs.Terms(ctx, o.cfg.Filters.Taxonomies)
			if err != nil {
				return w, fmt.Errorf("listing terms: %w", err)
			}
			for _, t := range terms {
				if t.Ref() == source.Ref() {
					continue
				}
				w.Refs = append(w.Refs, t.Ref())
			}
			w.Terms = len(w.Refs)
		}
		ids, err := o.docs.QueryCandidateIDs(ctx, o.candidateQuery(source))
		if err != nil {
			return w, fmt.Errorf("querying candidates: %w", err)
		}
		for _, id := range ids {
			w.Refs = append(w.Refs, doc.Ref{ID: id, Kind: doc.KindPost})
		}
		return w, nil
	})
}

func (o *Orchestrator) outboundInputs(ctx context.Context, run *runstate.Run, source *doc.Item) (outboundInputs, error) {
	var in outboundInputs

	used, err := runstate.Remember(ctx, run, "used", func(ctx context.Context) ([]string, error) {
		refs, err := o.docs.GetLinkedDocumentIDs(ctx, source.Ref(), store.Outbound)
		if err != nil {
			return nil, fmt.Errorf("loading outbound links: %w", err)
		}
		keys := []string{source.Ref().Key()}
		for _, r := range refs {
			keys = append(keys, r.Key())
		}
		return keys, nil
	})
	if err != nil {
		return in, err
	}
	in.used = make(map[string]struct{}, len(used))
	for _, k := range used {
		in.used[k] = struct{}{}
	}

	if in.own, err = o.ownKeywords(ctx, run, source); err != nil {
		return in, err
	}

	same, err := runstate.Remember(ctx, run, "same_category", func(ctx context.Context) ([]int64, error) {
		if source.Kind != doc.KindPost || len(source.Categories) == 0 {
			return nil, nil
		}
		q := o.candidateQuery(source)
		q.Categories = source.Categories
		return o.docs.QueryCandidateIDs(ctx, q)
	})
	if err != nil {
		return in, fmt.Errorf("loading same category documents: %w", err)
	}
	in.same = make(map[int64]struct{}, len(same))
	for _, id := range same {
		in.same[id] = struct{}{}
	}

	in.phrases, err = runstate.Remember(ctx, run, "phrases", func(context.Context) ([]*suggest.Phrase, error) {
		return o.engine.PrepareOutbound(source, suggest.SearchMode{}), nil
	})
	return in, err
}

// scoreOutbound indexes one chunk of candidates and scores the source
// phrases against it. It returns the suggested phrases and the number of
// documents indexed.
func (o *Orchestrator) scoreOutbound(ctx context.Context, refs []doc.Ref, in outboundInputs) ([]*suggest.Phrase, int, error) {
	if len(in.phrases) == 0 {
		return nil, 0, nil
	}
	items, err := o.docs.GetDocuments(ctx, refs)
	if err != nil {
		return nil, 0, fmt.Errorf("loading candidates: %w", err)
	}
	kwByRef, err := o.docs.ActiveKeywordsFor(ctx, refs)
	if err != nil {
		return nil, 0, fmt.Errorf("loading candidate keywords: %w", err)
	}

	norm := o.engine.Normalizer()
	ix := wordindex.New()
	builder := o.builder("")
	var candidate []keywords.Keyword
	for _, item := range items {
		if item.Redirected || o.ignored(item) {
			continue
		}
		item.SetStemmedTitle(norm.StemmedSentence(item.Title()))
		kws := kwByRef[item.Ref()]
		builder.AddDocument(ix, item, keywords.ActiveString(kws))
		candidate = append(candidate, kws...)
	}
	if ix.Empty() {
		return nil, len(items), nil
	}

	candidateKeywords := keywords.Outbound(keywords.PrepareAll(norm, candidate), in.own)
	phrases := o.engine.Outbound(suggest.OutboundInput{
		Phrases:           in.phrases,
		Index:             ix,
		OwnKeywords:       in.own,
		CandidateKeywords: candidateKeywords,
		MoreSpecific:      keywords.MoreSpecific(candidateKeywords, in.own),
		SameCategory:      in.same,
		Used:              in.used,
	})
	return phrases, len(items), nil
}

func (o *Orchestrator) externalRun(processKey string) *runstate.Run {
	return o.runs.Run(processKey + ":external")
}

// ProcessExternalChunk scores the source's phrases against the next pages
// of items mirrored from linked sites.
func (o *Orchestrator) ProcessExternalChunk(ctx context.Context, req OutboundRequest) (*ChunkResponse, error) {
	if err := validate(req.Source, req.ProcessKey); err != nil {
		return nil, err
	}
	ctx = logger.WithProcessKey(ctx, req.ProcessKey)
	ctx, span := tracing.StartChildSpan(ctx, "batch.external_chunk")
	defer span.End()
	span.SetAttr("source", req.Source.String())

	done := &ChunkResponse{
		Status:    StatusNoSuggestions,
		BatchSize: o.cfg.Size,
		Count:     req.Count,
		Message:   messageComplete,
		Completed: true,
	}
	if !o.cfg.ExternalLinking {
		return done, nil
	}

	b := o.newBudget(o.cfg.ExternalSoft, o.cfg.ExternalHard, 0)
	run := o.externalRun(req.ProcessKey)
	unlock, err := run.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	source, err := o.loadSubject(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	state, err := o.resume(ctx, run, runstate.ModeExternal, req.Count == 0, func(s runstate.State) bool {
		return req.Count < s.Count
	})
	if err != nil {
		return nil, err
	}
	if state.Epoch == 0 {
		if state.Total, err = o.docs.CountExternalItems(ctx); err != nil {
			return nil, fmt.Errorf("counting external items: %w", err)
		}
		if state.Total == 0 {
			return done, nil
		}
	}

	if state.Completed {
		return o.chunkResponse(state, messageExternal), nil
	}

	linked, err := runstate.Remember(ctx, run, "linked_urls", func(ctx context.Context) ([]string, error) {
		links, err := o.docs.GetLinks(ctx, source.Ref(), store.Outbound)
		if err != nil {
			return nil, fmt.Errorf("loading outbound links: %w", err)
		}
		var urls []string
		for _, l := range links {
			if l.External && l.URL != "" {
				urls = append(urls, l.URL)
			}
		}
		return urls, nil
	})
	if err != nil {
		return nil, err
	}
	skip := make(map[string]struct{}, len(linked))
	for _, u := range linked {
		skip[u] = struct{}{}
	}
	phrases, err := runstate.Remember(ctx, run, "phrases", func(context.Context) ([]*suggest.Phrase, error) {
		return o.engine.PrepareOutbound(source, suggest.SearchMode{}), nil
	})
	if err != nil {
		return nil, err
	}

	hardCtx, cancel := context.WithTimeout(ctx, b.remaining())
	defer cancel()

	scored, suggested := 0, 0
	for state.Processed < state.Total && !b.exceeded() {
		items, err := o.docs.ExternalItems(hardCtx, state.Processed, o.cfg.Size)
		if err != nil {
			if hardLimitHit(ctx, hardCtx) {
				b.reason = "time"
				break
			}
			return nil, fmt.Errorf("loading external items: %w", err)
		}

		ix := wordindex.New()
		builder := o.builder("")
		for _, item := range items {
			if _, ok := skip[item.URL]; ok || o.ignored(item) {
				continue
			}
			builder.AddExternal(ix, item)
		}
		var out []*suggest.Phrase
		if !ix.Empty() {
			out = o.engine.External(suggest.ExternalInput{Phrases: phrases, Index: ix})
		}
		if len(out) > 0 {
			if err := run.AppendBatches(ctx, out); err != nil {
				return nil, err
			}
		}
		scored += len(items)
		suggested += len(out)

		state.Count++
		if len(items) == 0 {
			state.Processed = state.Total
		} else {
			state.Processed = min(state.Processed+len(items), state.Total)
		}
		state.Suggested += len(out)
		state.Completed = state.Processed >= state.Total
		if state, err = run.Commit(ctx, state); err != nil {
			return nil, err
		}
	}
	if !state.Completed && b.reason != "" {
		o.observeBreak(runstate.ModeExternal, b.reason)
	}

	resp := o.chunkResponse(state, messageExternal)
	o.finishChunk(ctx, run, runstate.ModeExternal, req.Source, state, b, scored, suggested)
	return resp, nil
}

// hardLimitHit reports whether a failed call was cut off by the hard limit
// rather than by the caller or the store.
func hardLimitHit(parent, hard context.Context) bool {
	return hard.Err() != nil && parent.Err() == nil
}
