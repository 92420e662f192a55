package suggest

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/wordindex"
)

// Engine holds no per-run state and is safe for concurrent use.
type Engine struct {
	norm   *text.Normalizer
	seg    *segment.Segmenter
	cfg    ScoringConfig
	logger *slog.Logger
}

func NewEngine(norm *text.Normalizer, seg *segment.Segmenter, cfg ScoringConfig) *Engine {
	return &Engine{
		norm:   norm,
		seg:    seg,
		cfg:    cfg,
		logger: slog.Default().With("component", "suggest"),
	}
}

// Config returns the scoring configuration the engine was built with.
func (e *Engine) Config() ScoringConfig { return e.cfg }

// Normalizer exposes the engine's normalizer to callers building indexes.
func (e *Engine) Normalizer() *text.Normalizer { return e.norm }

// Segment renders item's content when needed and splits it into phrases.
func (e *Engine) Segment(item *doc.Item, opts segment.Options) []segment.Phrase {
	content := item.Content
	if item.IsMarkdown() {
		html, err := e.seg.FromMarkdown(content)
		if err != nil {
			e.logger.Warn("markdown render failed, segmenting raw content", "doc", item.Ref().String(), "error", err)
		} else {
			content = html
		}
	}
	return e.seg.Phrases(content, opts)
}

// PrepareOutbound segments the source document and computes each phrase's
// stemmed word set once, so the result can be cached for a whole run.
func (e *Engine) PrepareOutbound(item *doc.Item, mode SearchMode) []*Phrase {
	phrases := FromSegments(e.Segment(item, segment.Options{}))
	for _, p := range phrases {
		lower := strings.ToLower(text.StripEndings(p.Text, text.PhraseEndings))
		var words []string
		if mode.Literal {
			words = e.norm.Words(text.CollapseSpace(lower))
		} else {
			words = e.norm.CleanIgnorePhrases(lower)
		}
		stems := make([]string, 0, len(words))
		for _, w := range words {
			if utf8.RuneCountInString(w) < 3 {
				continue
			}
			stems = append(stems, e.norm.Stem(w))
		}
		p.Words = text.Unique(stems)
	}
	return phrases
}

func (e *Engine) literalWords(phraseText string) []string {
	return e.norm.StemAll(text.Unique(e.norm.Words(text.CollapseSpace(phraseText))))
}

func (e *Engine) inboundWords(phraseText string) []string {
	lower := strings.ToLower(text.StripEndings(phraseText, text.PhraseEndings))
	return text.Unique(e.norm.StemAll(text.Unique(e.norm.CleanIgnorePhrases(lower))))
}

// OutboundInput carries everything one outbound batch is scored against.
type OutboundInput struct {
	// Phrases are the prepared source phrases; they are not mutated.
	Phrases           []*Phrase
	Index             *wordindex.Index
	OwnKeywords       []keywords.Keyword
	CandidateKeywords []keywords.Keyword
	MoreSpecific      map[string][]keywords.Keyword
	SameCategory      map[int64]struct{}
	// Used holds keys of documents the source already links to.
	Used map[string]struct{}
	Mode SearchMode
}

// Outbound suggests links from the source's phrases to the indexed
// candidate documents.
func (e *Engine) Outbound(in OutboundInput) []*Phrase {
	used := copySet(in.Used)
	owners := make(map[string]doc.Document)
	if in.Index != nil {
		for _, d := range in.Index.Documents() {
			owners[d.Ref().Key()] = d
		}
	}

	var out []*Phrase
	for _, src := range in.Phrases {
		if e.hasOwnKeyword(src.Text, in.OwnKeywords, in.MoreSpecific) {
			continue
		}
		p := src.blank()
		words := src.Words
		if in.Mode.Literal {
			words = e.literalWords(src.Text)
		}

		acc := newAccumulator()
		if !e.cfg.OnlyMatchTargetKeywords || in.Mode.Literal {
			e.matchWords(acc, words, in.Index, used, in.Mode, func(cand doc.Document) (doc.Document, float64) {
				return cand, e.categoryBonus(cand, in.SameCategory)
			})
		}
		e.matchKeywords(acc, p.Text, in.CandidateKeywords, used, in.Mode, func(kw keywords.Keyword) (doc.Document, float64) {
			owner, ok := owners[kw.Owner.Key()]
			if !ok {
				return nil, 0
			}
			return owner, e.categoryBonus(owner, in.SameCategory)
		})

		p.Suggestions = e.finalize(p, acc, in.Mode, true)
		if len(p.Suggestions) == 0 {
			continue
		}
		out = append(out, p)
	}

	out = e.DedupeTopLevel(out)
	out = e.ApplyTopLevel(out, used, false)
	return e.PruneWeak(out)
}

// InboundInput scores one candidate source document against the target.
type InboundInput struct {
	// Source is the document whose content may receive a link.
	Source *doc.Item
	// Target is the document the run finds inbound links for.
	Target         doc.Document
	Index          *wordindex.Index
	TargetKeywords []keywords.Keyword
	SameCategory   map[int64]struct{}
	// Used holds keys of documents already linked with the target.
	Used         map[string]struct{}
	Mode         SearchMode
	WordSegments []string
}

// Inbound suggests phrases in Source that could link to Target.
func (e *Engine) Inbound(in InboundInput) []*Phrase {
	used := copySet(in.Used)
	phrases := FromSegments(e.Segment(in.Source, segment.Options{WordSegments: in.WordSegments}))
	source := in.Source

	var out []*Phrase
	for _, p := range phrases {
		var words []string
		if in.Mode.Literal {
			words = e.literalWords(p.Text)
		} else {
			words = e.inboundWords(p.Text)
		}

		acc := newAccumulator()
		if !e.cfg.OnlyMatchTargetKeywords || in.Mode.Literal {
			e.matchWords(acc, words, in.Index, used, in.Mode, func(cand doc.Document) (doc.Document, float64) {
				return source, e.categoryBonus(cand, in.SameCategory)
			})
		}
		e.matchKeywords(acc, p.Text, in.TargetKeywords, used, in.Mode, func(keywords.Keyword) (doc.Document, float64) {
			return source, e.categoryBonus(source, in.SameCategory)
		})

		p.Suggestions = e.finalize(p, acc, in.Mode, true)
		if len(p.Suggestions) == 0 {
			continue
		}
		out = append(out, p)
	}

	out = e.ApplyTopLevel(out, used, true)
	return e.PruneWeak(out)
}

// ExternalInput scores the source's phrases against external-site items.
type ExternalInput struct {
	Phrases []*Phrase
	Index   *wordindex.Index
	Mode    SearchMode
}

// External suggests links to items on linked external sites. Only title
// words count; there is no keyword or category scoring.
func (e *Engine) External(in ExternalInput) []*Phrase {
	var out []*Phrase
	for _, src := range in.Phrases {
		p := src.blank()
		acc := newAccumulator()
		if in.Index != nil {
			for _, w := range src.Words {
				if !in.Mode.Literal && e.norm.IsIgnored(w) {
					continue
				}
				for _, cand := range in.Index.Lookup(w) {
					s := acc.get(cand.Ref().Key(), cand, 0)
					if !s.hasWord(w) {
						s.Words = append(s.Words, w)
						s.PostScore++
					}
				}
			}
		}
		p.Suggestions = e.finalize(p, acc, in.Mode, false)
		if len(p.Suggestions) == 0 {
			continue
		}
		out = append(out, p)
	}
	out = e.ApplyTopLevel(out, map[string]struct{}{}, false)
	return e.PruneWeak(out)
}

func (e *Engine) categoryBonus(d doc.Document, same map[int64]struct{}) float64 {
	if d == nil || d.Ref().Kind != doc.KindPost {
		return 0
	}
	if _, ok := same[d.Ref().ID]; ok {
		return e.cfg.SameCategoryBonus
	}
	return 0
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
