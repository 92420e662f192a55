package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/runstate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/store"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/wordindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/tracing"
)

// InboundRequest asks for the next chunk of an inbound run.
type InboundRequest struct {
	Target     doc.Ref
	ProcessKey string
	// LastProcessedID and ProcessedCount echo the previous response. Both
	// zero start a new run under the process key.
	LastProcessedID int64
	ProcessedCount  int
	// Keywords switches to literal search for each ';' separated keyword.
	Keywords string
}

// InboundResponse reports the progress of an inbound run.
type InboundResponse struct {
	Status          string `json:"status"`
	Keywords        string `json:"keywords"`
	LastProcessedID int64  `json:"last_processed_id"`
	ProcessedCount  int    `json:"processed_count"`
	TotalCount      int    `json:"total_count"`
	RemainingCount  int    `json:"remaining_count"`
	Completed       bool   `json:"completed"`
	BatchSize       int    `json:"batch_size"`
	PostsProcessed  int    `json:"posts_processed"`
}

// searchKeyword is one pass over every candidate source.
type searchKeyword struct {
	Text string
	Mode suggest.SearchMode
}

type inboundInputs struct {
	target         *doc.Item
	targetKeywords []keywords.Keyword
	used           map[string]struct{}
	searches       []searchKeyword
	indexes        []*wordindex.Index
}

// SplitKeywords parses a ';' separated keyword override, dropping empty
// entries.
func SplitKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ";") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// ProcessInboundChunk scans the next candidate documents for phrases that
// could link to the target. The cursor only moves past a document once all
// its keyword passes are done.
func (o *Orchestrator) ProcessInboundChunk(ctx context.Context, req InboundRequest) (*InboundResponse, error) {
	if err := validate(req.Target, req.ProcessKey); err != nil {
		return nil, err
	}
	ctx = logger.WithProcessKey(ctx, req.ProcessKey)
	ctx, span := tracing.StartChildSpan(ctx, "batch.inbound_chunk")
	defer span.End()
	span.SetAttr("target", req.Target.String())
	span.SetAttr("last_processed_id", req.LastProcessedID)

	b := o.newBudget(o.cfg.SoftBudget, o.cfg.HardBudget, o.cfg.MemoryBreakPoint)
	run := o.runs.Run(req.ProcessKey)
	unlock, err := run.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	target, err := o.docs.GetDocument(ctx, req.Target)
	if errors.Is(err, apperrors.ErrDocumentNotFound) {
		return nil, apperrors.DataError(apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", req.Target, err)
	}

	fresh := req.LastProcessedID == 0 && req.ProcessedCount == 0
	state, err := o.resume(ctx, run, runstate.ModeInbound, fresh, func(s runstate.State) bool {
		return s.Stale(req.ProcessedCount)
	})
	if err != nil {
		return nil, err
	}
	if state.Epoch == 0 {
		state.LastID = req.LastProcessedID
		state.Processed = req.ProcessedCount
	}
	batchSize := o.cfg.Size * o.cfg.InboundMultiplier
	if state.Completed {
		return inboundResponse(state, req.Keywords, 0, batchSize, 0), nil
	}

	in, err := o.inboundInputs(ctx, run, target, req.Keywords)
	if err != nil {
		return nil, err
	}
	ids, err := o.inboundCandidates(ctx, run, in)
	if err != nil {
		return nil, err
	}
	state.Total = len(ids)
	remaining := idsAfter(ids, state.LastID)

	hardCtx, cancel := context.WithTimeout(ctx, b.remaining())
	defer cancel()

	var collected []*suggest.Phrase
	processed := 0
	for _, id := range remaining {
		if processed >= batchSize || b.exceeded() {
			break
		}
		phrases, done, err := o.scoreInbound(hardCtx, doc.Ref{ID: id, Kind: doc.KindPost}, in, b)
		if err != nil {
			if hardLimitHit(ctx, hardCtx) {
				b.reason = "time"
				break
			}
			if !errors.Is(err, apperrors.ErrDocumentNotFound) {
				return nil, err
			}
			done = true
		}
		if !done {
			break
		}
		collected = append(collected, phrases...)
		state.LastID = id
		state.Processed++
		processed++
	}

	if err := run.AppendPhrases(ctx, collected); err != nil {
		return nil, err
	}
	left := len(remaining) - processed
	state.Suggested += len(collected)
	state.Completed = left == 0
	if state, err = run.Commit(ctx, state); err != nil {
		return nil, err
	}
	if !state.Completed && b.reason != "" {
		o.observeBreak(runstate.ModeInbound, b.reason)
	}

	resp := inboundResponse(state, req.Keywords, left, batchSize, processed)
	o.finishChunk(ctx, run, runstate.ModeInbound, req.Target, state, b, processed, len(collected))
	span.SetAttr("posts_processed", processed)
	return resp, nil
}

func inboundResponse(state runstate.State, override string, left, batchSize, processed int) *InboundResponse {
	return &InboundResponse{
		Status:          status(state),
		Keywords:        strings.Join(SplitKeywords(override), ";"),
		LastProcessedID: state.LastID,
		ProcessedCount:  state.Processed,
		TotalCount:      state.Total,
		RemainingCount:  left,
		Completed:       state.Completed,
		BatchSize:       batchSize,
		PostsProcessed:  processed,
	}
}

// idsAfter returns the ids following cursor. ids are ordered highest first.
func idsAfter(ids []int64, cursor int64) []int64 {
	if cursor <= 0 {
		return ids
	}
	for i, id := range ids {
		if id < cursor {
			return ids[i:]
		}
	}
	return nil
}

func (o *Orchestrator) inboundInputs(ctx context.Context, run *runstate.Run, target *doc.Item, override string) (inboundInputs, error) {
	in := inboundInputs{target: target}
	norm := o.engine.Normalizer()

	explicit, err := runstate.Remember(ctx, run, "explicit_keywords", func(ctx context.Context) ([]keywords.Keyword, error) {
		return o.docs.GetActiveKeywords(ctx, target.Ref())
	})
	if err != nil {
		return in, fmt.Errorf("loading keywords of %s: %w", target.Ref(), err)
	}
	in.targetKeywords = keywords.ForPost(norm, target, explicit)
	target.SetStemmedTitle(norm.StemmedSentence(target.Title()))
	keywordString := keywords.ActiveString(explicit)

	used, err := runstate.Remember(ctx, run, "used", func(ctx context.Context) ([]string, error) {
		keys := []string{target.Ref().Key()}
		for _, dir := range []store.Direction{store.Inbound, store.Outbound} {
			refs, err := o.docs.GetLinkedDocumentIDs(ctx, target.Ref(), dir)
			if err != nil {
				return nil, fmt.Errorf("loading %s links: %w", dir, err)
			}
			for _, r := range refs {
				keys = append(keys, r.Key())
			}
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

	if literal := SplitKeywords(override); len(literal) > 0 {
		for _, k := range literal {
			in.searches = append(in.searches, searchKeyword{Text: k, Mode: suggest.SearchMode{Literal: true, Keyword: k}})
		}
	} else {
		title := o.builder("").Title(target, keywordString)
		var words []string
		for _, w := range text.Unique(norm.Words(title)) {
			if !norm.IsIgnored(w) {
				words = append(words, w)
			}
		}
		if len(words) > 0 {
			in.searches = []searchKeyword{{Text: strings.Join(words, " ")}}
		}
	}

	for _, s := range in.searches {
		ix := wordindex.New()
		o.builder(s.Mode.Keyword).AddDocument(ix, target, keywordString)
		in.indexes = append(in.indexes, ix)
	}
	return in, nil
}

// inboundCandidates lists the documents whose content mentions any search
// word, excluding documents already linked with the target. The list is
// fixed for the life of the run.
func (o *Orchestrator) inboundCandidates(ctx context.Context, run *runstate.Run, in inboundInputs) ([]int64, error) {
	return runstate.Remember(ctx, run, "inbound_ids", func(ctx context.Context) ([]int64, error) {
		var words []string
		for _, s := range in.searches {
			words = append(words, strings.Fields(strings.ToLower(s.Text))...)
		}
		words = text.Unique(words)
		if len(words) == 0 {
			return nil, nil
		}
		q := o.candidateQuery(in.target)
		q.ContentWords = words
		for key := range in.used {
			if ref, ok := postRefFromKey(key); ok {
				q.ExcludeIDs = append(q.ExcludeIDs, ref)
			}
		}
		ids, err := o.docs.QueryCandidateIDs(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("querying inbound candidates: %w", err)
		}
		return ids, nil
	})
}

// postRefFromKey parses the key of a local post. Term and external keys
// carry a prefix and are rejected.
func postRefFromKey(key string) (int64, bool) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// scoreInbound runs every keyword pass over one candidate source. done is
// false when the budget ran out before the last pass; the partial output is
// then discarded so the document is scanned again by the next chunk.
func (o *Orchestrator) scoreInbound(ctx context.Context, ref doc.Ref, in inboundInputs, b *budget) ([]*suggest.Phrase, bool, error) {
	item, err := o.loadItem(ctx, ref)
	if err != nil {
		return nil, false, err
	}
	defer item.ReleaseContent()
	if item.Redirected || o.ignored(item) {
		return nil, true, nil
	}

	atLimit := false
	if o.cfg.MaxLinksPerPost > 0 {
		links, err := o.docs.GetLinks(ctx, ref, store.Outbound)
		if err != nil {
			return nil, false, fmt.Errorf("loading links of %s: %w", ref, err)
		}
		atLimit = len(links) >= o.cfg.MaxLinksPerPost
	}

	same := map[int64]struct{}{}
	if sharesCategory(item, in.target) {
		same[item.ID] = struct{}{}
		same[in.target.ID] = struct{}{}
	}

	var out []*suggest.Phrase
	for i, s := range in.searches {
		if i > 0 && b.exceeded() {
			return nil, false, nil
		}
		if i == 0 && atLimit {
			continue
		}
		out = append(out, o.engine.Inbound(suggest.InboundInput{
			Source:         item,
			Target:         in.target,
			Index:          in.indexes[i],
			TargetKeywords: in.targetKeywords,
			SameCategory:   same,
			Used:           in.used,
			Mode:           s.Mode,
		})...)
	}
	return out, true, nil
}

func sharesCategory(a, b *doc.Item) bool {
	for _, x := range a.Categories {
		for _, y := range b.Categories {
			if x == y {
				return true
			}
		}
	}
	return false
}
