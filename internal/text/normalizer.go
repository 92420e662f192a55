package text

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Endings stripped from either side of a word before it is compared.
const (
	WordEndings   = "[](){}.,!?':\""
	PhraseEndings = ".!?':\""
)

const nbsp = '\u00a0'

// Options configures a Normalizer.
type Options struct {
	Language      string
	IgnoreWords   []string
	IgnoreNumbers bool
}

// Normalizer is safe for concurrent use once built.
type Normalizer struct {
	stemmer       Stemmer
	ignore        map[string]struct{}
	ignoreStemmed map[string]struct{}
	ignoreNumbers bool
	logger        *slog.Logger
}

func NewNormalizer(opts Options) *Normalizer {
	return NewNormalizerWithStemmer(opts, NewStemmer(opts.Language))
}

func NewNormalizerWithStemmer(opts Options, stemmer Stemmer) *Normalizer {
	n := &Normalizer{
		stemmer:       stemmer,
		ignore:        make(map[string]struct{}, len(opts.IgnoreWords)),
		ignoreStemmed: make(map[string]struct{}, len(opts.IgnoreWords)),
		ignoreNumbers: opts.IgnoreNumbers,
		logger:        slog.Default().With("component", "normalizer"),
	}
	for _, w := range opts.IgnoreWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		n.ignore[w] = struct{}{}
		n.ignoreStemmed[n.Stem(w)] = struct{}{}
	}
	return n
}

// Tokenize splits text on whitespace (including non-breaking spaces) and
// returns the raw words in order.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == nbsp
	})
}

// Words lowercases text, strips word endings and returns the non-empty words
// in order.
func (n *Normalizer) Words(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))
	raw := Tokenize(text)
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		w = StripEndings(w, WordEndings)
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Stem lowercases and stems a single word. Stemmer failures return the
// lowercased word.
func (n *Normalizer) Stem(word string) (out string) {
	word = strings.ToLower(word)
	if !utf8.ValidString(word) {
		return word
	}
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("stemmer failed, keeping original word", "word", word, "panic", r)
			out = word
		}
	}()
	return n.stemmer.Stem(word)
}

// StemAll stems every word, preserving order and duplicates.
func (n *Normalizer) StemAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = n.Stem(w)
	}
	return out
}

// StemmedSentence returns the stemmed words of text joined by single spaces.
func (n *Normalizer) StemmedSentence(text string) string {
	return strings.Join(n.StemAll(n.Words(text)), " ")
}

// IsIgnored reports whether the lowercase word is on the ignore list.
func (n *Normalizer) IsIgnored(word string) bool {
	_, ok := n.ignore[strings.ToLower(word)]
	return ok
}

// IsIgnoredStem reports whether a stemmed word is the stem of an ignored word.
func (n *Normalizer) IsIgnoredStem(stemmed string) bool {
	_, ok := n.ignoreStemmed[stemmed]
	return ok
}

// IsNumeric reports whether word is a number once currency and separator
// characters are removed.
func IsNumeric(word string) bool {
	word = strings.NewReplacer(".", "", ",", "", "$", "").Replace(word)
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Qualifies reports whether a word may enter the title index: longer than
// two characters, not ignored and, when configured, not numeric.
func (n *Normalizer) Qualifies(word string) bool {
	if utf8.RuneCountInString(word) <= 2 || n.IsIgnored(word) {
		return false
	}
	if n.ignoreNumbers && IsNumeric(word) {
		return false
	}
	return true
}

// CleanIgnorePhrases returns the lowercase words of text with ignore-list
// words removed.
func (n *Normalizer) CleanIgnorePhrases(text string) []string {
	words := n.Words(text)
	out := words[:0]
	for _, w := range words {
		if !n.IsIgnored(w) {
			out = append(out, w)
		}
	}
	return out
}

// StripEndings trims any of the given characters from both ends of word.
func StripEndings(word, endings string) string {
	return strings.Trim(word, endings)
}

// Unique returns words with duplicates removed, keeping first occurrences.
func Unique(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// IsPartOfWord reports whether the match of length size at byte offset pos
// in s touches a letter or digit on either side.
func IsPartOfWord(s string, pos, size int) bool {
	if pos < 0 || pos+size > len(s) {
		return false
	}
	if pos > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:pos])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	if pos+size < len(s) {
		r, _ := utf8.DecodeRuneInString(s[pos+size:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// ContainsWhole reports whether needle occurs in s at a position not
// embedded in a longer word. Every occurrence is checked.
func ContainsWhole(s, needle string) bool {
	if needle == "" {
		return false
	}
	offset := 0
	for {
		i := strings.Index(s[offset:], needle)
		if i < 0 {
			return false
		}
		if !IsPartOfWord(s, offset+i, len(needle)) {
			return true
		}
		offset += i + 1
		if offset >= len(s) {
			return false
		}
	}
}
