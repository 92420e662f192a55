// Package aggregate merges the per-chunk suggestion snapshots of a run and
// prepares them for display: final top-level dedupe, truncation, anchor
// rendering and inbound grouping.
package aggregate

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
)

// Pools splits merged phrases by where their suggestions point.
type Pools struct {
	Internal []*suggest.Phrase
	External []*suggest.Phrase
}

// Merge folds chunk snapshots into one phrase per phrase key and pool, in
// first-seen order. Inputs are not modified.
func Merge(batches [][]*suggest.Phrase) Pools {
	var pools Pools
	internal := make(map[int]*suggest.Phrase)
	external := make(map[int]*suggest.Phrase)
	for _, batch := range batches {
		for _, p := range batch {
			if p == nil {
				continue
			}
			for _, s := range p.Suggestions {
				if s.Target.Ref.Kind.External() {
					pools.External = place(external, pools.External, p, s)
				} else {
					pools.Internal = place(internal, pools.Internal, p, s)
				}
			}
		}
	}
	return pools
}

func place(index map[int]*suggest.Phrase, list []*suggest.Phrase, p *suggest.Phrase, s *suggest.Suggestion) []*suggest.Phrase {
	m, ok := index[p.Key]
	if !ok {
		c := *p
		c.Suggestions = nil
		m = &c
		index[p.Key] = m
		list = append(list, m)
	}
	m.Suggestions = append(m.Suggestions, s)
	return list
}

// MergeSourceText folds phrases cut from the same sentence into the first of
// them so a reviewer picks among their suggestions in one place. A merged
// list keeps one suggestion per target, the best scoring, sorted by score.
func MergeSourceText(phrases []*suggest.Phrase) []*suggest.Phrase {
	bySentence := make(map[string]*suggest.Phrase, len(phrases))
	merged := make(map[*suggest.Phrase]bool)
	out := make([]*suggest.Phrase, 0, len(phrases))
	for _, p := range phrases {
		if m, ok := bySentence[p.SentenceText]; ok {
			m.Suggestions = append(m.Suggestions, p.Suggestions...)
			merged[m] = true
			continue
		}
		bySentence[p.SentenceText] = p
		out = append(out, p)
	}
	for m := range merged {
		m.Suggestions = bestPerTarget(m.Suggestions)
		suggest.SortSuggestions(m.Suggestions)
	}
	return out
}

func bestPerTarget(list []*suggest.Suggestion) []*suggest.Suggestion {
	index := make(map[string]int, len(list))
	out := list[:0]
	for _, s := range list {
		key := s.Target.Key()
		if i, ok := index[key]; ok {
			if s.TotalScore > out[i].TotalScore {
				out[i] = s
			}
			continue
		}
		index[key] = len(out)
		out = append(out, s)
	}
	return out
}

// Group collects the inbound phrases found in one linking document.
type Group struct {
	Target  doc.Target        `json:"target"`
	Phrases []*suggest.Phrase `json:"phrases"`
}

// InboundGroups groups phrases by the document of their top suggestion in
// first-seen order.
func InboundGroups(phrases []*suggest.Phrase) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, p := range phrases {
		top := p.Top()
		if top == nil {
			continue
		}
		key := top.Target.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Target: top.Target})
		}
		groups[i].Phrases = append(groups[i].Phrases, p)
	}
	return groups
}

// OutboundView is the display form of an outbound or external run.
type OutboundView struct {
	Internal []*suggest.Phrase `json:"internal_site"`
	External []*suggest.Phrase `json:"external_site"`
}

// Empty reports whether neither pool has suggestions.
func (v OutboundView) Empty() bool {
	return len(v.Internal) == 0 && len(v.External) == 0
}

// InboundView is the display form of an inbound run.
type InboundView struct {
	Groups []Group `json:"groups"`
}

// Formatter turns accumulated run output into display views.
type Formatter struct {
	engine       *suggest.Engine
	maxDisplayed int
	logger       *slog.Logger
}

// NewFormatter returns a formatter. maxDisplayed limits the number of
// phrases (outbound) or groups (inbound) shown; zero means no limit.
func NewFormatter(engine *suggest.Engine, maxDisplayed int) *Formatter {
	return &Formatter{
		engine:       engine,
		maxDisplayed: maxDisplayed,
		logger:       slog.Default().With("component", "aggregate"),
	}
}

// FormatOutbound merges the chunk snapshots of an outbound run and applies
// the final ranking against source, the document being edited.
func (f *Formatter) FormatOutbound(batches [][]*suggest.Phrase, source doc.Ref, opts AnchorOptions) OutboundView {
	pools := Merge(batches)
	opts.Outbound = true
	used := map[string]struct{}{source.Key(): {}}
	view := OutboundView{
		Internal: f.formatPool(pools.Internal, used, opts),
		External: f.formatPool(pools.External, used, opts),
	}
	f.logger.Debug("formatted outbound suggestions",
		"source", source.String(), "internal", len(view.Internal), "external", len(view.External))
	return view
}

func (f *Formatter) formatPool(phrases []*suggest.Phrase, used map[string]struct{}, opts AnchorOptions) []*suggest.Phrase {
	if len(phrases) == 0 {
		return nil
	}
	for _, p := range phrases {
		suggest.SortSuggestions(p.Suggestions)
	}
	phrases = f.engine.ApplyTopLevel(phrases, used, false)
	phrases = f.engine.PruneWeak(phrases)
	phrases = f.AddAnchors(phrases, opts)
	if f.maxDisplayed > 0 && len(phrases) > f.maxDisplayed {
		phrases = phrases[:f.maxDisplayed]
	}
	return phrases
}

// FormatInbound ranks the accumulated phrases of an inbound run and groups
// them by linking document.
func (f *Formatter) FormatInbound(phrases []*suggest.Phrase, opts AnchorOptions) InboundView {
	opts.Outbound = false
	sorted := make([]*suggest.Phrase, 0, len(phrases))
	for _, p := range phrases {
		if p != nil && len(p.Suggestions) > 0 {
			sorted = append(sorted, p)
		}
	}
	suggest.SortByTopScore(sorted)
	groups := InboundGroups(f.AddAnchors(sorted, opts))
	if f.maxDisplayed > 0 && len(groups) > f.maxDisplayed {
		groups = groups[:f.maxDisplayed]
	}
	return InboundView{Groups: groups}
}
