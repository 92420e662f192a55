package suggest

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/wordindex"
)

// accumulator collects the per-candidate suggestions of one phrase in
// discovery order.
type accumulator struct {
	order []string
	byKey map[string]*Suggestion
}

func newAccumulator() *accumulator {
	return &accumulator{byKey: make(map[string]*Suggestion)}
}

func (a *accumulator) get(key string, d doc.Document, bonus float64) *Suggestion {
	if s, ok := a.byKey[key]; ok {
		return s
	}
	s := &Suggestion{Target: doc.Snapshot(d), PostScore: bonus, Opacity: 1}
	a.byKey[key] = s
	a.order = append(a.order, key)
	return s
}

type candidateResolver func(cand doc.Document) (doc.Document, float64)

// matchWords adds a point per distinct phrase word found in a candidate's
// title words.
func (e *Engine) matchWords(acc *accumulator, words []string, ix *wordindex.Index, used map[string]struct{}, mode SearchMode, resolve candidateResolver) {
	if ix == nil {
		return
	}
	for _, w := range words {
		if !mode.Literal && e.norm.IsIgnoredStem(w) {
			continue
		}
		for _, cand := range ix.Lookup(w) {
			d, bonus := resolve(cand)
			key := d.Ref().Key()
			if _, ok := used[key]; ok {
				continue
			}
			s := acc.get(key, d, bonus)
			if !s.hasWord(w) {
				s.Words = append(s.Words, w)
				s.PostScore++
			}
		}
	}
}

type keywordResolver func(kw keywords.Keyword) (doc.Document, float64)

// matchKeywords awards target keyword matches. A keyword matches when the
// phrase contains its raw text, or its stemmed text as whole words. A keyword
// is skipped when a longer candidate keyword containing it is also in the
// phrase.
func (e *Engine) matchKeywords(acc *accumulator, phraseText string, kws []keywords.Keyword, used map[string]struct{}, mode SearchMode, resolve keywordResolver) {
	if len(kws) == 0 {
		return
	}
	lower := strings.ToLower(phraseText)
	stemmed := e.norm.StemmedSentence(phraseText)
	specific := keywords.MoreSpecific(kws, kws)

	for _, kw := range kws {
		if len(kw.Text) < e.cfg.MinKeywordLength {
			continue
		}
		if coveredBySpecific(stemmed, kw, specific) {
			continue
		}
		rawHit := strings.Contains(lower, strings.ToLower(kw.Text))
		stemContained := kw.Stemmed != "" && strings.Contains(stemmed, kw.Stemmed)
		if !rawHit && !(stemContained && !e.norm.IsIgnored(kw.Stemmed)) {
			continue
		}
		// "shoe" must not match inside "shoestr".
		if stemContained && !text.ContainsWhole(stemmed, kw.Stemmed) {
			continue
		}

		d, bonus := resolve(kw)
		if d == nil {
			continue
		}
		key := d.Ref().Key()
		if _, ok := used[key]; ok {
			break
		}

		s := acc.get(key, d, bonus)
		s.MatchedKeywords = append(s.MatchedKeywords, kw)
		for _, w := range kw.StemmedWords() {
			switch {
			case !s.hasWord(w) && !mode.Literal:
				s.Words = append(s.Words, w)
				s.PostScore += e.cfg.KeywordFirstWeight
				s.PassedKeywords = true
			case !s.PassedKeywords:
				s.PostScore += e.cfg.KeywordRepeatWeight
				s.PassedKeywords = true
			}
		}
	}
}

// coveredBySpecific reports whether a more specific keyword containing kw as
// whole words is present in the stemmed phrase.
func coveredBySpecific(stemmed string, kw keywords.Keyword, specific map[string][]keywords.Keyword) bool {
	if kw.Stemmed == "" {
		return false
	}
	for _, sk := range specific[kw.Stemmed] {
		if text.ContainsWhole(sk.Stemmed, kw.Stemmed) && text.ContainsWhole(stemmed, sk.Stemmed) {
			return true
		}
	}
	return false
}

// finalize filters, measures, trims and scores the accumulated suggestions
// and returns them best first.
func (e *Engine) finalize(p *Phrase, acc *accumulator, mode SearchMode, allowKeywordPass bool) []*Suggestion {
	need := 0
	if mode.Literal {
		need = len(text.Unique(strings.Split(mode.Keyword, " ")))
	}

	var out []*Suggestion
	for _, key := range acc.order {
		s := acc.byKey[key]
		if mode.Literal {
			if len(s.Words) != need {
				continue
			}
		} else if len(s.Words) < 2 && !(allowKeywordPass && s.PassedKeywords) {
			continue
		}

		s.Length = e.AnchorLength(p.Text, s.Words)
		if s.Length > e.cfg.MaxAnchorLength {
			trimmed, ok := e.TrimOverlong(p.Text, s)
			if !ok {
				continue
			}
			s = trimmed
		}
		e.score(p.Text, s)
		out = append(out, s)
	}
	SortSuggestions(out)
	return out
}

func (e *Engine) score(phraseText string, s *Suggestion) {
	sort.Strings(s.Words)
	if n := e.MaxCloseWords(s.Words, s.Target.Title); n > 1 {
		s.PostScore += float64(n)
	}
	s.AnchorScore = float64(len(s.Words))
	if n := e.MaxCloseWords(s.Words, phraseText); n > 1 {
		s.AnchorScore += float64(2 * n)
	}
	s.TotalScore = s.AnchorScore + s.PostScore
}

// hasOwnKeyword reports whether an outbound phrase already carries one of
// the source document's own keywords.
func (e *Engine) hasOwnKeyword(phraseText string, own []keywords.Keyword, specific map[string][]keywords.Keyword) bool {
	if len(own) == 0 {
		return false
	}
	stemmed := e.norm.StemmedSentence(phraseText)
	sentenceWords := strings.Split(stemmed, " ")

next:
	for _, kw := range own {
		if len(kw.Text) < e.cfg.MinKeywordLength {
			continue
		}
		if kw.Stemmed != "" && text.ContainsWhole(stemmed, kw.Stemmed) {
			for _, more := range specific[kw.Stemmed] {
				if more.Stemmed != "" && strings.Contains(stemmed, more.Stemmed) {
					continue next
				}
			}
			return true
		}
		if !kw.Derived() {
			continue
		}
		kwWords := kw.StemmedWords()
		for i := 0; i+1 < len(kwWords); i++ {
			for pos, w := range sentenceWords {
				if w != kwWords[i] {
					continue
				}
				if pos+1 < len(sentenceWords) && sentenceWords[pos+1] == kwWords[i+1] {
					return true
				}
				break
			}
		}
	}
	return false
}
