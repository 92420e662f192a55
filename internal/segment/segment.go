// Package segment turns raw document content into the ordered candidate
// phrases the scorer matches against. Structural noise such as headings,
// scripts, shortcodes, page builder modules and user-ignored classed elements
// is removed before the content is split on sentence and clause boundaries.
package segment

import (
	"log/slog"
	"strings"
)

// SkipType selects what the configured skip count applies to.
type SkipType string

const (
	SkipNone       SkipType = "none"
	SkipParagraphs SkipType = "paragraphs"
	SkipSentences  SkipType = "sentences"
)

// Config holds the site-wide segmentation settings.
type Config struct {
	SkipType         SkipType
	SkipCount        int
	IgnoreShortcodes []string
	IgnoreClasses    []string
}

// Options are the per-call switches.
type Options struct {
	// WithLinks keeps sentences that already contain anchors.
	WithLinks bool
	// WordSegments, when set, keeps only sentences containing at least two
	// of the segments (case-insensitive substring match).
	WordSegments []string
	// SingleWords keeps sentences that are a single word.
	SingleWords bool
	// IgnoreText lists strings that must not be split even when they carry
	// sentence punctuation, such as "Dr." or "e.g.".
	IgnoreText []string
}

// Phrase is a clause of a source sentence.
type Phrase struct {
	Text         string
	Src          string
	SentenceText string
	SentenceSrc  string
}

// Segmenter is safe for concurrent use.
type Segmenter struct {
	cfg     Config
	classes []classRule
	logger  *slog.Logger
}

func New(cfg Config) *Segmenter {
	s := &Segmenter{
		cfg:    cfg,
		logger: slog.Default().With("component", "segmenter"),
	}
	for _, c := range cfg.IgnoreClasses {
		if r, ok := newClassRule(c); ok {
			s.classes = append(s.classes, r)
		}
	}
	return s
}

// Phrases segments content into phrases, in document order.
func (s *Segmenter) Phrases(content string, opts Options) []Phrase {
	content = decodeUnicodeEscapes(content)
	content = removeStructural(content)
	content = removeShortcodes(content, s.cfg.IgnoreShortcodes)
	content = removePageBuilderModules(content)
	content = s.removeClassedElements(content)
	content = encodeAttributes(content)

	ignored := newIgnoreTable()
	content = ignored.encode(content, opts.IgnoreText)

	if s.cfg.SkipType == SkipParagraphs && s.cfg.SkipCount > 0 {
		content = skipParagraphs(content, s.cfg.SkipCount)
	}

	list := splitSentences(content)
	for i, item := range list {
		list[i] = decodeAttributes(item)
	}
	list = mergeSplitTags(list)
	list = removeEmptySentences(list, opts.WithLinks)
	list = trimTags(list, opts.WithLinks)

	if s.cfg.SkipType == SkipSentences && s.cfg.SkipCount > 0 {
		if s.cfg.SkipCount >= len(list) {
			return nil
		}
		list = list[s.cfg.SkipCount:]
	}

	var phrases []Phrase
	for _, item := range list {
		item = strings.TrimSpace(item)
		if len(opts.WordSegments) > 0 && !hasTwoSegments(item, opts.WordSegments) {
			continue
		}
		item = trimSentenceEnd(item)

		raw := item
		src := ignored.decode(item)
		text := strings.TrimSpace(plainText(src))
		if text == "" || (!opts.SingleWords && !strings.Contains(text, " ")) {
			continue
		}
		phrases = append(phrases, splitClauses(raw, src, text, ignored, opts.SingleWords)...)
	}
	return phrases
}

func hasTwoSegments(item string, segments []string) bool {
	lower := strings.ToLower(item)
	count := 0
	for _, seg := range segments {
		if seg != "" && strings.Contains(lower, strings.ToLower(seg)) {
			count++
			if count > 1 {
				return true
			}
		}
	}
	return false
}

func trimSentenceEnd(item string) string {
	for _, end := range []string{".", ",", "!", "?", "。"} {
		if strings.HasSuffix(item, end) {
			return strings.TrimSuffix(item, end)
		}
	}
	return item
}
