package aggregate

import (
	"encoding/base64"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
)

// LinkPlaceholder marks where the renderer substitutes the target URL.
const LinkPlaceholder = "%view_link%"

const (
	wordOpen  = `<span class="wpil_word">`
	spanClose = `</span>`
	linkOpen  = `<a href="` + LinkPlaceholder + `">`
	linkClose = `</a>`

	suggestionTag = "wpil_suggestion_tag"
	tokenOpen     = `<span class="wpil_word ` + suggestionTag + ` open-tag`
	tokenClose    = `<span class="wpil_word ` + suggestionTag + ` close-tag`

	anchorWordEndings = "[](){}.,!?':\""
)

var inlineTags = []struct{ name, class string }{
	{"b", "bold"},
	{"i", "ital"},
	{"u", "under"},
	{"strong", "strong"},
	{"em", "em"},
}

func nonWord(side, mark string) string {
	return `<span class="wpil_word no-space-` + side + ` wpil-non-word">` + mark + spanClose
}

var punctuationSpans = strings.NewReplacer(
	wordOpen+"(", nonWord("right", "(")+wordOpen,
	")"+spanClose, spanClose+nonWord("left", ")"),
	":"+spanClose, spanClose+nonWord("left", ":"),
	wordOpen+"'", nonWord("right", "'")+wordOpen,
	"'"+spanClose, spanClose+nonWord("left", "'"),
)

var commaSpans = strings.NewReplacer(","+spanClose, spanClose+nonWord("left", ","))

// tagToken renders an inline formatting tag as a word-level token whose body
// is the base64 of the tag, so the UI can restore it after editing.
func tagToken(tag, class, kind string) string {
	return `<span class="wpil_word ` + suggestionTag + ` ` + kind + `-tag wpil-` + class + `-` + kind +
		` wpil-` + class + `">` + base64.StdEncoding.EncodeToString([]byte(tag)) + spanClose
}

var formatTags = func() *strings.Replacer {
	var pairs []string
	for _, t := range inlineTags {
		open, close := "<"+t.name+">", "</"+t.name+">"
		pairs = append(pairs,
			wordOpen+open, tagToken(open, t.class, "open")+wordOpen,
			wordOpen+close, tagToken(close, t.class, "close")+wordOpen,
			open+spanClose, spanClose+tagToken(open, t.class, "open"),
			close+spanClose, spanClose+tagToken(close, t.class, "close"),
		)
	}
	return strings.NewReplacer(pairs...)
}()

// sentenceMarkup wraps every word of the source sentence in a word span.
func sentenceMarkup(sentenceSrc string) string {
	plain := text.StripTagsExcept(sentenceSrc, "b", "i", "u", "strong", "em")
	plain = strings.ReplaceAll(plain, "\u00a0", " ")
	s := wordOpen + strings.Join(strings.Split(plain, " "), spanClose+" "+wordOpen) + spanClose
	s = punctuationSpans.Replace(s)
	s = commaSpans.Replace(s)
	return formatTags.Replace(s)
}

// spanWord is the word span a phrase word ends up in once punctuation has
// been split into its own spans.
func spanWord(w string) string {
	w = strings.TrimLeft(w, "('")
	w = strings.TrimRight(w, "):',")
	return wordOpen + w + spanClose
}

// linkSentence wraps the words real[lo..hi] of the marked-up sentence in the
// link placeholder and returns the anchor markup and the linked sentence.
func linkSentence(markup string, real []string, lo, hi int) (anchor, sentence string) {
	if lo == hi {
		anchor = wordOpen + real[lo] + spanClose
		from := spanWord(real[lo])
		return anchor, strings.Replace(markup, from, linkOpen+from+linkClose, 1)
	}

	anchor = wordOpen + strings.Join(real[lo:hi+1], spanClose+" "+wordOpen) + spanClose
	first, last := spanWord(real[lo]), spanWord(real[hi])
	begin := strings.Index(markup, first)
	if begin < 0 {
		return anchor, markup
	}
	rest := begin + len(first)
	end := strings.Index(markup[rest:], last)
	if end < 0 {
		return anchor, markup[:begin] + linkOpen + first + linkClose + markup[rest:]
	}
	end += rest + len(last)
	return anchor, markup[:begin] + linkOpen + markup[begin:end] + linkClose + markup[end:]
}

// sourceWithAnchor inserts the link placeholder into the raw sentence source
// around the span from the first to the last anchor word, widened to whole
// space-separated tokens.
func sourceWithAnchor(sentence, first, last string) string {
	sentence += " "
	begin := strings.Index(sentence, first+" ")
	if begin < 0 {
		begin = strings.Index(sentence, first)
	}
	if begin < 0 {
		begin = 0
	}
	for begin > 0 && sentence[begin-1] != ' ' {
		begin--
	}

	end := strings.Index(sentence[begin:], last+" ")
	if end < 0 {
		end = strings.Index(sentence[begin:], last)
	}
	if end < 0 {
		end = 0
	} else {
		end += len(last)
	}
	end += begin
	for end < len(sentence) && sentence[end] != ' ' {
		end++
	}
	if end > len(sentence) {
		end = len(sentence)
	}

	trimmed := strings.TrimSpace(sentence)
	anchor := sentence[begin:end]
	if strings.TrimSpace(anchor) == "" {
		return trimmed
	}
	return strings.Replace(trimmed, anchor, linkOpen+anchor+linkClose, 1)
}

// reconcileTags moves a formatting token that straddles the link boundary
// wholly outside the link: an opening token to just after it, a closing
// token to just before it.
func reconcileTags(s string) string {
	if !strings.Contains(s, suggestionTag) {
		return s
	}
	start := strings.Index(s, linkOpen)
	if start < 0 {
		return s
	}
	n := strings.Index(s[start:], linkClose)
	if n < 0 {
		return s
	}
	link := s[start : start+n+len(linkClose)]
	hasOpen := strings.Contains(link, tokenOpen)
	hasClose := strings.Contains(link, tokenClose)
	if hasOpen == hasClose {
		return s
	}

	if hasOpen {
		var tag string
		s, tag = cutToken(s, start, tokenOpen)
		end := start + strings.Index(s[start:], linkClose) + len(linkClose)
		s = s[:end] + tag + s[end:]
	}
	if hasClose {
		var tag string
		s, tag = cutToken(s, start, tokenClose)
		s = s[:start] + tag + s[start:]
	}
	return s
}

// cutToken removes the first token with the given prefix at or after from.
func cutToken(s string, from int, prefix string) (string, string) {
	i := strings.Index(s[from:], prefix)
	if i < 0 {
		return s, ""
	}
	i += from
	j := strings.Index(s[i:], spanClose)
	if j < 0 {
		return s, ""
	}
	j += i + len(spanClose)
	return s[:i] + s[j:], s[i:j]
}

// AnchorOptions carries the source-document context anchors are rendered in.
type AnchorOptions struct {
	// Outbound enables used-anchor removal and same-sentence merging.
	Outbound bool
	// UsedAnchors are the plain texts of links already in the source.
	UsedAnchors []string
	// SourceKeywords are the source's active keywords joined by spaces.
	// Ignored words inside them still count as anchor words.
	SourceKeywords string
	Mode           suggest.SearchMode
}

// AddAnchors locates each suggestion's anchor in its phrase and renders the
// highlighted sentence views. Suggestions whose words cannot be located are
// removed, as are phrases left empty.
func (f *Formatter) AddAnchors(phrases []*suggest.Phrase, opts AnchorOptions) []*suggest.Phrase {
	if len(phrases) == 0 {
		return nil
	}
	norm := f.engine.Normalizer()
	keywords := strings.ToLower(opts.SourceKeywords)
	used := make(map[string]struct{}, len(opts.UsedAnchors))
	for _, a := range opts.UsedAnchors {
		used[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}

	var out []*suggest.Phrase
	for _, p := range phrases {
		real := strings.Split(text.CollapseSpace(p.Text), " ")
		stems := make([]string, len(real))
		for i, w := range real {
			v := text.StripEndings(w, anchorWordEndings)
			if v == "" {
				continue
			}
			if opts.Mode.Literal || !norm.IsIgnored(v) || strings.Contains(keywords, strings.ToLower(v)) {
				stems[i] = norm.Stem(text.StripTags(v))
			}
		}
		markup := sentenceMarkup(p.SentenceSrc)

		dropped := false
		kept := p.Suggestions[:0]
		for _, s := range p.Suggestions {
			lo, hi := len(real), -1
			for _, w := range s.Words {
				for i, st := range stems {
					if st != "" && st == w {
						lo = min(lo, i)
						hi = max(hi, i)
						break
					}
				}
			}
			if hi < 0 {
				continue
			}

			anchor, sentence := linkSentence(markup, real, lo, hi)
			s.Anchor = anchor
			s.SentenceWithAnchor = reconcileTags(sentence)
			s.SentenceSrcWithAnchor = sourceWithAnchor(p.SentenceSrc, real[lo], real[hi])
			if opts.Outbound && isUsedAnchor(used, anchor) {
				dropped = true
			}
			kept = append(kept, s)
		}
		p.Suggestions = kept
		if dropped || len(p.Suggestions) == 0 {
			continue
		}
		out = append(out, p)
	}

	if opts.Outbound {
		out = MergeSourceText(out)
	}
	return out
}

func isUsedAnchor(used map[string]struct{}, anchor string) bool {
	if len(used) == 0 {
		return false
	}
	plain := strings.ToLower(text.StripTags(anchor))
	if _, ok := used[plain]; ok {
		return true
	}
	_, ok := used[text.StripEndings(plain, anchorWordEndings)]
	return ok
}
