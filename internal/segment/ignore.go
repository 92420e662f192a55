package segment

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ignorePlaceholder = regexp.MustCompile(`lsignore(\d+)x`)

// ignoreTable swaps user-protected text for placeholders so sentence
// punctuation inside it does not split the sentence.
type ignoreTable struct {
	items []string
}

func newIgnoreTable() *ignoreTable { return &ignoreTable{} }

func (t *ignoreTable) encode(content string, texts []string) string {
	alts := make([]string, 0, len(texts))
	for _, s := range texts {
		if s != "" {
			alts = append(alts, regexp.QuoteMeta(s))
		}
	}
	if len(alts) == 0 {
		return content
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(alts, "|"))
	if err != nil {
		return content
	}

	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(content, -1) {
		if !ignoreBoundary(content, loc[0], loc[1]) {
			continue
		}
		b.WriteString(content[last:loc[0]])
		b.WriteString("lsignore")
		b.WriteString(strconv.Itoa(len(t.items)))
		b.WriteString("x")
		t.items = append(t.items, content[loc[0]:loc[1]])
		last = loc[1]
	}
	if last == 0 {
		return content
	}
	b.WriteString(content[last:])
	return b.String()
}

func (t *ignoreTable) decode(s string) string {
	if len(t.items) == 0 || !strings.Contains(s, "lsignore") {
		return s
	}
	return ignorePlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		i, err := strconv.Atoi(ignorePlaceholder.FindStringSubmatch(m)[1])
		if err != nil || i >= len(t.items) {
			return m
		}
		return t.items[i]
	})
}

// ignoreBoundary reports whether the match is not glued to letters, digits
// or markup on either side.
func ignoreBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if gluesIgnoreText(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if gluesIgnoreText(r) {
			return false
		}
	}
	return true
}

func gluesIgnoreText(r rune) bool {
	return unicode.IsLetter(r) || r == '<' || (r >= '>' && r <= '_') || (r >= '1' && r <= '9')
}
