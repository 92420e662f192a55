package suggest

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
)

// MaxCloseWords returns the longest run of consecutive words of s (stemmed)
// that are all members of words.
func (e *Engine) MaxCloseWords(words []string, s string) int {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	best, run := 0, 0
	for _, w := range e.norm.StemAll(e.norm.Words(s)) {
		if _, ok := set[w]; ok {
			run++
			if run > best {
				best = run
			}
			continue
		}
		run = 0
	}
	return best
}

// anchorSpan finds the first and last positions, by first occurrence, of
// words within stems.
func anchorSpan(stems, words []string) (lo, hi int, ok bool) {
	first := make(map[string]int, len(stems))
	for i, s := range stems {
		if _, seen := first[s]; !seen {
			first[s] = i
		}
	}
	lo, hi = len(stems), -1
	for _, w := range words {
		pos, found := first[w]
		if !found {
			continue
		}
		if pos < lo {
			lo = pos
		}
		if pos > hi {
			hi = pos
		}
	}
	return lo, hi, hi >= 0
}

// AnchorLength is the number of phrase words from the first to the last
// matched word, inclusive. It is zero when no matched word occurs.
func (e *Engine) AnchorLength(phraseText string, words []string) int {
	lo, hi, ok := anchorSpan(e.norm.StemAll(e.norm.Words(phraseText)), words)
	if !ok {
		return 0
	}
	return hi - lo + 1
}

type significance uint8

const (
	sigKeyword significance = 1 << iota
	sigTitleWord
	sigFirstTitleWord
	sigLastTitleWord
	sigTitlePosition
)

type wordSlot struct {
	word    string
	value   int
	sig     significance
	classes []int
}

func (w wordSlot) is(s significance) bool { return w.sig&s != 0 }
func (w wordSlot) filler() bool            { return w.sig == 0 }

func sharesClass(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// TrimOverlong shortens an anchor that exceeds the maximum length by
// dropping its least significant edge words. It returns a trimmed copy, or
// false when no trim fits the limit with at least two matched words left.
func (e *Engine) TrimOverlong(phraseText string, s *Suggestion) (*Suggestion, bool) {
	stems := e.norm.StemAll(e.norm.Words(phraseText))
	lo, hi, ok := anchorSpan(stems, s.Words)
	if !ok {
		return nil, false
	}
	limit := e.cfg.MaxAnchorLength
	if hi-lo+1 <= limit {
		return s, true
	}
	anchor := stems[lo : hi+1]
	slots := make([]wordSlot, len(anchor))
	for i, w := range anchor {
		slots[i].word = w
	}

	joined := strings.Join(anchor, " ")
	for ki, kw := range s.MatchedKeywords {
		if kw.Stemmed == "" {
			continue
		}
		pos := strings.Index(joined, kw.Stemmed)
		if pos < 0 {
			continue
		}
		offset := len(strings.Split(joined[:pos], " ")) - 1
		for j := range kw.StemmedWords() {
			i := offset + j
			if i >= len(slots) {
				break
			}
			slots[i].value += 20
			slots[i].sig |= sigKeyword
			slots[i].classes = append(slots[i].classes, ki)
		}
	}

	title := e.norm.StemAll(e.norm.Words(s.Target.Title))
	for ti, tw := range title {
		for i := range slots {
			if slots[i].word != tw {
				continue
			}
			slots[i].value++
			slots[i].sig |= sigTitleWord
			switch {
			case ti == 0 && i == 0:
				slots[i].sig |= sigFirstTitleWord | sigTitlePosition
				slots[i].value++
			case ti == len(title)-1 && i == len(slots)-1:
				slots[i].sig |= sigLastTitleWord | sigTitlePosition
				slots[i].value++
			}
		}
	}

	if last := slots[len(slots)-1]; last.is(sigTitleWord) && !last.is(sigLastTitleWord) && !last.is(sigKeyword) {
		slots = trimTrailingFiller(slots[:len(slots)-1])
		if len(slots) <= limit {
			return withSlots(s, slots)
		}
	}
	if len(slots) > 0 {
		if first := slots[0]; first.is(sigTitleWord) && !first.is(sigFirstTitleWord) && !first.is(sigKeyword) {
			slots = trimLeadingFiller(slots[1:])
			if len(slots) <= limit {
				return withSlots(s, slots)
			}
		}
	}

	for run := 0; run < 5 && len(slots) > 0; run++ {
		first, last := slots[0], slots[len(slots)-1]
		var next []wordSlot
		switch {
		case first.is(sigKeyword) && last.is(sigKeyword):
			firstScore, lastScore := 0, 0
			for _, w := range slots {
				if sharesClass(w.classes, first.classes) {
					firstScore += w.value
				}
				if sharesClass(w.classes, last.classes) {
					lastScore += w.value
				}
			}
			if firstScore < lastScore {
				next = removeStartingWords(slots)
			} else {
				next = removeEndingWords(slots)
			}
		case last.value < first.value:
			next = removeEndingWords(slots)
		case last.value > first.value:
			next = removeStartingWords(slots)
		default:
			next = removeEndingWords(slots)
		}
		if len(next) == 0 {
			break
		}
		slots = next
		if len(slots) <= limit {
			return withSlots(s, slots)
		}
	}
	return nil, false
}

func withSlots(s *Suggestion, slots []wordSlot) (*Suggestion, bool) {
	var words []string
	for _, w := range slots {
		if !w.filler() {
			words = append(words, w.word)
		}
	}
	words = text.Unique(words)
	if len(slots) == 0 || len(words) < 2 {
		return nil, false
	}
	c := *s
	c.Words = words
	c.Length = len(slots)
	return &c, true
}

func trimTrailingFiller(slots []wordSlot) []wordSlot {
	for len(slots) > 0 && slots[len(slots)-1].filler() {
		slots = slots[:len(slots)-1]
	}
	return slots
}

func trimLeadingFiller(slots []wordSlot) []wordSlot {
	for len(slots) > 0 && slots[0].filler() {
		slots = slots[1:]
	}
	return slots
}

// removeStartingWords drops the leading keyword group, or the first word,
// together with the filler words after it.
func removeStartingWords(slots []wordSlot) []wordSlot {
	if len(slots) > 1 && slots[0].is(sigKeyword) && slots[1].is(sigKeyword) {
		group := slots[0].classes
		for len(slots) > 0 && (slots[0].is(sigKeyword) || slots[0].filler()) {
			if !sharesClass(slots[0].classes, group) && !slots[0].filler() {
				break
			}
			slots = slots[1:]
		}
		return slots
	}
	return trimLeadingFiller(slots[1:])
}

// removeEndingWords drops the trailing keyword group, or the last word,
// together with the filler words before it.
func removeEndingWords(slots []wordSlot) []wordSlot {
	last := len(slots) - 1
	if slots[last].is(sigKeyword) {
		group := slots[last].classes
		for len(slots) > 0 {
			w := slots[len(slots)-1]
			if !w.is(sigKeyword) && !w.filler() {
				break
			}
			if !sharesClass(w.classes, group) && !w.filler() {
				break
			}
			slots = slots[:len(slots)-1]
		}
		return slots
	}
	return trimTrailingFiller(slots[:last])
}
