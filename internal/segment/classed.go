package segment

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"
)

// classRule matches one configured CSS class. A leading or trailing "*" is
// a wildcard.
type classRule struct {
	pattern  string
	needle   string
	wildcard bool
}

func newClassRule(class string) (classRule, bool) {
	class = strings.TrimSpace(class)
	needle := strings.TrimSpace(strings.Trim(class, "*"))
	if needle == "" {
		return classRule{}, false
	}
	return classRule{
		pattern:  class,
		needle:   needle,
		wildcard: strings.Contains(class, "*"),
	}, true
}

func (r classRule) match(class string) bool {
	if !r.wildcard {
		return class == r.pattern
	}
	ok, err := doublestar.Match(r.pattern, class)
	return err == nil && ok
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
}

func (s *Segmenter) removeClassedElements(content string) string {
	if content == "" {
		return content
	}
	tweets := strings.Contains(content, "blockquote") && strings.Contains(content, "twitter-tweet")
	var active []classRule
	for _, r := range s.classes {
		if strings.Contains(content, r.needle) {
			active = append(active, r)
		}
	}
	if !tweets && len(active) == 0 {
		return content
	}

	matches := func(tag string, classes []string) bool {
		for _, c := range classes {
			if tweets && tag == "blockquote" && strings.Contains(c, "twitter-tweet") {
				return true
			}
			for _, r := range active {
				if r.match(c) {
					return true
				}
			}
		}
		return false
	}

	spans := classedSpans(content, matches)
	if len(spans) == 0 {
		return content
	}
	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, sp := range spans {
		b.WriteString(content[last:sp[0]])
		last = sp[1]
	}
	b.WriteString(content[last:])
	return b.String()
}

// classedSpans returns the byte ranges of elements whose class list satisfies
// match, outermost only. Elements that are never closed are left alone.
func classedSpans(content string, match func(tag string, classes []string) bool) [][2]int {
	z := html.NewTokenizer(strings.NewReader(content))
	var (
		spans  [][2]int
		offset int
		open   string
		start  int
		depth  int
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return spans
		}
		tokStart := offset
		offset += len(z.Raw())

		if open != "" {
			if tt != html.StartTagToken && tt != html.EndTagToken {
				continue
			}
			name, _ := z.TagName()
			if string(name) != open {
				continue
			}
			switch tt {
			case html.StartTagToken:
				depth++
			case html.EndTagToken:
				depth--
				if depth == 0 {
					spans = append(spans, [2]int{start, offset})
					open = ""
				}
			}
			continue
		}

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if !hasAttr {
			continue
		}
		tag := string(name)
		var classes []string
		for {
			key, val, more := z.TagAttr()
			if string(key) == "class" {
				classes = append(classes, strings.Fields(string(val))...)
			}
			if !more {
				break
			}
		}
		if !match(tag, classes) {
			continue
		}
		if tt == html.SelfClosingTagToken || voidElements[tag] {
			spans = append(spans, [2]int{tokStart, offset})
			continue
		}
		open, start, depth = tag, tokStart, 1
	}
}
