package text

import (
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball/french"
	"github.com/kljensen/snowball/hungarian"
	"github.com/kljensen/snowball/norwegian"
	"github.com/kljensen/snowball/russian"
	"github.com/kljensen/snowball/spanish"
	"github.com/kljensen/snowball/swedish"
)

// SnowballStemmer wraps one of the Snowball stemmers. Snowball's own stop
// words come back unchanged.
type SnowballStemmer struct {
	stem func(word string, stemStopWords bool) string
}

var snowballStemmers = map[string]func(string, bool) string{
	"ru": russian.Stem, "russian": russian.Stem,
	"fr": french.Stem, "french": french.Stem,
	"es": spanish.Stem, "spanish": spanish.Stem,
	"sv": swedish.Stem, "swedish": swedish.Stem,
	"no": norwegian.Stem, "nb": norwegian.Stem, "norwegian": norwegian.Stem,
	"hu": hungarian.Stem, "hungarian": hungarian.Stem,
}

// NewSnowballStemmer returns nil when Snowball has no stemmer for language.
func NewSnowballStemmer(language string) *SnowballStemmer {
	fn, ok := snowballStemmers[language]
	if !ok {
		return nil
	}
	return &SnowballStemmer{stem: fn}
}

// NewRussianStemmer is kept for callers that name the language directly.
func NewRussianStemmer() *SnowballStemmer {
	return NewSnowballStemmer("russian")
}

// Stem returns word unchanged when it is not valid UTF-8.
func (s *SnowballStemmer) Stem(word string) string {
	if !utf8.ValidString(word) {
		return word
	}
	return s.stem(strings.ToLower(word), false)
}
