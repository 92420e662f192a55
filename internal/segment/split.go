package segment

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	sentenceBreak = regexp.MustCompile(`(?i)[.!?](?:<|&nbsp;| |\x{00a0}|\\)|<div|<br|<li|<p|<h[1-6]|。`)
	dotCapital    = regexp.MustCompile(`\.([A-Z])`)
	bracketed     = regexp.MustCompile(`\[[^\]]+\]`)
)

func splitSentences(content string) []string {
	content = sentenceBreak.ReplaceAllStringFunc(content, func(m string) string {
		switch m[0] {
		case '.', '!', '?':
			switch rest := m[1:]; rest {
			case " ":
				return m[:1] + " \n"
			case "\u00a0":
				return m[:1] + "\n"
			default:
				return m[:1] + "\n" + rest
			}
		default:
			return "\n" + m
		}
	})
	content = dotCapital.ReplaceAllString(content, ".\n$1")
	content = bracketed.ReplaceAllString(content, "\n")
	return strings.Split(content, "\n")
}

var splitTagPairs = []struct {
	open  []string
	close []string
}{
	{[]string{"<b>"}, []string{"</b>", `<\/b>`}},
	{[]string{"<strong>"}, []string{"</strong>", `<\/strong>`}},
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// mergeSplitTags rejoins sentences that were split inside a bold run.
func mergeSplitTags(list []string) []string {
	out := make([]string, 0, len(list))
	for i := 0; i < len(list); i++ {
		item := list[i]
		merged := false
		for _, t := range splitTagPairs {
			if !containsAny(item, t.open) || containsAny(item, t.close) {
				continue
			}
			var b strings.Builder
			j := i
			for ; j < len(list); j++ {
				b.WriteString(list[j])
				if containsAny(list[j], t.close) {
					break
				}
			}
			if j == len(list) {
				j--
			}
			out = append(out, b.String())
			i = j
			merged = true
			break
		}
		if !merged {
			out = append(out, item)
		}
	}
	return out
}

var headingEndings = []string{"</h1>", "</h2>", "</h3>"}

func removeEmptySentences(list []string, withLinks bool) []string {
	removed := make([]bool, len(list))
	for i := range list {
		s := list[i]
		if i > 0 && hasOpenTextAttr(list[i-1]) {
			if p := strings.IndexByte(s, '"'); p >= 0 {
				s = s[p+1:]
				list[i] = s
			} else {
				removed[i] = true
			}
		}

		trimmed := strings.TrimSpace(s)
		if i > 0 {
			for _, end := range headingEndings {
				if trimmed == end {
					removed[i-1] = true
				}
			}
			if !withLinks && trimmed == "</a>" {
				removed[i-1] = true
			}
		}
		if strings.TrimSpace(tagPattern.ReplaceAllString(s, "")) == "" {
			removed[i] = true
		}
		if strings.HasPrefix(s, "<!-- ") && strings.HasSuffix(s, " -->") {
			removed[i] = true
		}
		if s == "&nbsp;" {
			removed[i] = true
		}
	}

	out := list[:0]
	for i, s := range list {
		if !removed[i] {
			out = append(out, s)
		}
	}
	return out
}

// hasOpenTextAttr reports whether s ends inside an alt or title attribute.
func hasOpenTextAttr(s string) bool {
	for _, attr := range []string{`alt="`, `title="`} {
		if i := strings.LastIndex(s, attr); i >= 0 {
			if !strings.Contains(s[i+len(attr):], `"`) {
				return true
			}
		}
	}
	return false
}

var anchorPairs = [][2]string{{"<a ", "</a>"}, {"<ta ", "</ta>"}}

func trimTags(list []string, withLinks bool) []string {
	out := make([]string, 0, len(list))
next:
	for i := 0; i < len(list); i++ {
		s := list[i]
		if strings.Contains(s, "<h") || strings.Contains(s, "</h") {
			continue
		}
		if !withLinks && containsAny(s, []string{"<a ", "</a>", "<ta ", "</ta>"}) {
			continue
		}
		for _, pair := range anchorPairs {
			if strings.Count(s, pair[0]) <= strings.Count(s, pair[1]) {
				continue
			}
			// An anchor split across sentences is carried into the next one.
			if i+1 < len(list) {
				joined := s + list[i+1]
				if strings.Count(joined, pair[0]) == strings.Count(joined, pair[1]) {
					list[i+1] = joined
				}
			}
			continue next
		}
		out = append(out, trimTrailingTags(trimLeadingTags(strings.TrimSpace(s))))
	}
	return out
}

func trimLeadingTags(s string) string {
	for s != "" && (s[0] == '<' || s[0] == '[') {
		closer := byte('>')
		if s[0] == '[' {
			closer = ']'
		}
		end := strings.IndexByte(s, closer)
		if end < 0 {
			s = strings.TrimSpace(s[1:])
			continue
		}
		tag := s[:end+1]
		switch tag {
		case "<b>", "<i>", "<u>", "<strong>":
			return s
		}
		if strings.HasPrefix(tag, "<a ") || strings.HasPrefix(tag, "<ta ") {
			return s
		}
		s = strings.TrimSpace(s[end+1:])
	}
	return s
}

func trimTrailingTags(s string) string {
	for s != "" && (s[len(s)-1] == '>' || s[len(s)-1] == ']') {
		opener := byte('<')
		if s[len(s)-1] == ']' {
			opener = '['
		}
		start := strings.LastIndexByte(s, opener)
		if start < 0 {
			return ""
		}
		switch s[start:] {
		case "</b>", "</i>", "</u>", "</strong>", "</a>", "</ta>":
			return s
		}
		s = strings.TrimSpace(s[:start])
	}
	return s
}

var (
	clauseSeparators = []string{", ", ": ", "; ", " – ", " (", ") ", " {", "} "}
	markupTag        = regexp.MustCompile(`<[^>]+>`)
)

func clausePlaceholder(i int) string { return fmt.Sprintf("\x1arp%d\x1a", i) }

// splitClauses breaks a sentence into its clauses. Separators inside tags
// are protected so attributes survive intact. Single-word clauses are kept
// only in single-word mode.
func splitClauses(raw, src, text string, ignored *ignoreTable, singleWords bool) []Phrase {
	protected := markupTag.ReplaceAllStringFunc(raw, func(tag string) string {
		for i, sep := range clauseSeparators {
			tag = strings.ReplaceAll(tag, sep, clausePlaceholder(i))
		}
		return tag
	})
	for _, sep := range clauseSeparators {
		protected = strings.ReplaceAll(protected, sep, "\n")
	}
	for i, sep := range clauseSeparators {
		protected = strings.ReplaceAll(protected, clausePlaceholder(i), sep)
	}

	var phrases []Phrase
	for _, item := range strings.Split(protected, "\n") {
		item = ignored.decode(item)
		clause := strings.TrimSpace(plainText(item))
		if clause == "" || (!singleWords && !strings.Contains(clause, " ")) {
			continue
		}
		phrases = append(phrases, Phrase{
			Text:         clause,
			Src:          item,
			SentenceText: text,
			SentenceSrc:  src,
		})
	}
	return phrases
}
