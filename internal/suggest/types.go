// Package suggest scores candidate link targets against the phrases of a
// source document. It implements the outbound, inbound and external-site
// scorers, anchor-length normalisation and the cross-phrase ranking passes.
package suggest

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/segment"
)

// SearchMode selects literal keyword search. In literal mode the phrase and
// title words bypass length and ignore-list filtering, and a suggestion must
// match exactly the unique words of Keyword.
type SearchMode struct {
	Literal bool
	Keyword string
}

// ScoringConfig is passed by value into every scoring call.
type ScoringConfig struct {
	MaxAnchorLength         int
	Undeletable             bool
	All                     bool
	MaxSuggestionsPerPhrase int
	WeakPostScore           float64
	WeakPhraseFloor         int
	MaxDedupePasses         int
	OnlyMatchTargetKeywords bool
	SameCategoryBonus       float64
	KeywordFirstWeight      float64
	KeywordRepeatWeight     float64
	MinKeywordLength        int
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		MaxAnchorLength:         10,
		MaxSuggestionsPerPhrase: 10,
		WeakPostScore:           3,
		WeakPhraseFloor:         10,
		MaxDedupePasses:         100,
		SameCategoryBonus:       0.5,
		KeywordFirstWeight:      30,
		KeywordRepeatWeight:     20,
		MinKeywordLength:        keywords.MinLength,
	}
}

// Suggestion is one candidate link for a phrase. Target is the document the
// suggestion is about: the link destination for outbound and external runs,
// and the document that would carry the link for inbound runs.
type Suggestion struct {
	Target                doc.Target         `json:"target" msgpack:"target"`
	Words                 []string           `json:"words" msgpack:"words"`
	MatchedKeywords       []keywords.Keyword `json:"matched_keywords,omitempty" msgpack:"matched_keywords"`
	PassedKeywords        bool               `json:"passed_keywords,omitempty" msgpack:"passed_keywords"`
	Length                int                `json:"length" msgpack:"length"`
	PostScore             float64            `json:"post_score" msgpack:"post_score"`
	AnchorScore           float64            `json:"anchor_score" msgpack:"anchor_score"`
	TotalScore            float64            `json:"total_score" msgpack:"total_score"`
	Opacity               float64            `json:"opacity" msgpack:"opacity"`
	Anchor                string             `json:"anchor,omitempty" msgpack:"anchor"`
	SentenceWithAnchor    string             `json:"sentence_with_anchor,omitempty" msgpack:"sentence_with_anchor"`
	SentenceSrcWithAnchor string             `json:"sentence_src_with_anchor,omitempty" msgpack:"sentence_src_with_anchor"`
}

func (s *Suggestion) hasWord(w string) bool {
	for _, x := range s.Words {
		if x == w {
			return true
		}
	}
	return false
}

// Phrase is a scored clause of the source document.
type Phrase struct {
	Key          int           `json:"key" msgpack:"key"`
	Text         string        `json:"text" msgpack:"text"`
	Src          string        `json:"src" msgpack:"src"`
	SentenceText string        `json:"sentence_text" msgpack:"sentence_text"`
	SentenceSrc  string        `json:"sentence_src" msgpack:"sentence_src"`
	Words        []string      `json:"words,omitempty" msgpack:"words"`
	Suggestions  []*Suggestion `json:"suggestions" msgpack:"suggestions"`
}

// FromSegments numbers segmented phrases in order.
func FromSegments(segs []segment.Phrase) []*Phrase {
	out := make([]*Phrase, len(segs))
	for i, s := range segs {
		out[i] = &Phrase{
			Key:          i,
			Text:         s.Text,
			Src:          s.Src,
			SentenceText: s.SentenceText,
			SentenceSrc:  s.SentenceSrc,
		}
	}
	return out
}

// Top returns the best suggestion, or nil.
func (p *Phrase) Top() *Suggestion {
	if len(p.Suggestions) == 0 {
		return nil
	}
	return p.Suggestions[0]
}

// TopKey is the dedupe key of the best suggestion.
func (p *Phrase) TopKey() string {
	if top := p.Top(); top != nil {
		return top.Target.Key()
	}
	return ""
}

// blank copies the phrase without suggestions so cached phrases can be
// scored again.
func (p *Phrase) blank() *Phrase {
	c := *p
	c.Suggestions = nil
	return &c
}

// SortSuggestions orders suggestions by total score, highest first, keeping
// the discovery order for ties.
func SortSuggestions(s []*Suggestion) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].TotalScore > s[j].TotalScore })
}

// SortByTopScore orders phrases by the total score of their best suggestion.
func SortByTopScore(phrases []*Phrase) {
	sort.SliceStable(phrases, func(i, j int) bool {
		return topScore(phrases[i]) > topScore(phrases[j])
	})
}

func topScore(p *Phrase) float64 {
	if top := p.Top(); top != nil {
		return top.TotalScore
	}
	return 0
}

func dropEmpty(phrases []*Phrase) []*Phrase {
	out := phrases[:0]
	for _, p := range phrases {
		if len(p.Suggestions) > 0 {
			out = append(out, p)
		}
	}
	return out
}
