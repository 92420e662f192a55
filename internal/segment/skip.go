package segment

import (
	"regexp"
	"sort"
	"strings"
)

var paragraphEndings = []struct {
	name   string
	marker string
}{
	{"p", "</p>"},
	{"div", "</div>"},
	// Builder modules are stored separated by a literal backslash-n.
	{"newline", `\n`},
	{"blockquote", "</blockquote>"},
}

var divNoise = regexp.MustCompile(`(?s)<a[^>]*>.*?</a>|<h[1-6][^>]*>.*?</h[1-6]>`)

type paragraphEnd struct {
	name string
	at   int
	size int
}

// skipParagraphs drops the first n paragraphs of content.
func skipParagraphs(content string, n int) string {
	pos := 0
	for i := 0; i < n; i++ {
		var ends []paragraphEnd
		for _, e := range paragraphEndings {
			if at := strings.Index(content[pos:], e.marker); at >= 0 {
				ends = append(ends, paragraphEnd{e.name, pos + at, len(e.marker)})
			}
		}
		if len(ends) == 0 {
			break
		}
		sort.SliceStable(ends, func(a, b int) bool { return ends[a].at < ends[b].at })

		chosen := ends[0]
		// A closing div only ends a paragraph when the div holds text of its own.
		if chosen.name == "div" && len(ends) > 1 {
			divAt := strings.Index(content[pos:], "<div")
			if divAt < 0 || pos+divAt >= chosen.at || divText(content[pos+divAt:chosen.at]) == "" {
				chosen = ends[1]
			}
		}
		pos = chosen.at + chosen.size
	}
	return content[pos:]
}

func divText(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(divNoise.ReplaceAllString(s, ""), ""))
}
