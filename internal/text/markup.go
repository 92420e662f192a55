package text

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes every markup tag from s.
func StripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return tagPattern.ReplaceAllString(s, "")
}

// StripTagsExcept removes markup tags except the named inline elements,
// which are kept in their opening and closing forms.
func StripTagsExcept(s string, keep ...string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	allowed := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		allowed[strings.ToLower(k)] = struct{}{}
	}
	return tagPattern.ReplaceAllStringFunc(s, func(tag string) string {
		name := strings.TrimPrefix(strings.Trim(tag, "<>"), "/")
		if i := strings.IndexAny(name, " \t\n/"); i >= 0 {
			name = name[:i]
		}
		if _, ok := allowed[strings.ToLower(name)]; ok {
			return tag
		}
		return ""
	})
}

var spaceRun = regexp.MustCompile(`[\s\x{00a0}]+`)

// CollapseSpace replaces runs of whitespace and non-breaking spaces with a
// single space and trims the result.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
