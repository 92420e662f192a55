// Package text holds the word level helpers shared by the segmenter, the
// title index and the scorer: tokenisation, case folding, ending removal,
// ignore-word filtering and pluggable, language specific stemming.
package text

import (
	"log/slog"
	"strings"
)

// Stemmer reduces a lowercase word to its root.
type Stemmer interface {
	Stem(word string) string
}

// StemmerFunc adapts a plain function to Stemmer.
type StemmerFunc func(string) string

func (f StemmerFunc) Stem(word string) string { return f(word) }

// NewStemmer returns the stemmer for a language name or ISO code. Unknown
// languages fall back to an identity stemmer so matching degrades to exact
// words instead of failing.
func NewStemmer(language string) Stemmer {
	lang := strings.ToLower(strings.TrimSpace(language))
	switch lang {
	case "", "en", "english":
		return NewPorterStemmer()
	}
	if s := NewSnowballStemmer(lang); s != nil {
		return s
	}
	slog.Warn("no stemmer for language, matching exact words", "language", language)
	return StemmerFunc(func(w string) string { return w })
}
