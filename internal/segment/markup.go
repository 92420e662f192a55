package segment

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var unicodeEscapePattern = regexp.MustCompile(`(?i)\\u003c|\\u003e|\\u003|\\u0022`)

// decodeUnicodeEscapes turns JSON-escaped markup stored by block editors back
// into plain markup.
func decodeUnicodeEscapes(content string) string {
	if !strings.Contains(content, `\u00`) && !strings.Contains(content, `\U00`) {
		return content
	}
	return unicodeEscapePattern.ReplaceAllStringFunc(content, func(m string) string {
		switch strings.ToLower(m) {
		case `\u003c`:
			return "<"
		case `\u0022`:
			return `"`
		default:
			return ">"
		}
	})
}

var headingPattern = regexp.MustCompile(`(?s)<h1(?:[^>]*)>.*?</h1>|<h2(?:[^>]*)>.*?</h2>|<h3(?:[^>]*)>.*?</h3>|<h4(?:[^>]*)>.*?</h4>|<h5(?:[^>]*)>.*?</h5>|<h6(?:[^>]*)>.*?</h6>`)

// Page-level elements that only appear when a whole rendered page was stored
// as content.
var structuralElements = []struct {
	marker  string
	pattern *regexp.Regexp
}{
	{"<head", regexp.MustCompile(`(?s)<head(?:[^>]*)>.*?</head>`)},
	{"<title", regexp.MustCompile(`(?s)<title(?:[^>]*)>.*?</title>`)},
	{"<meta", regexp.MustCompile(`(?s)<meta(?:[^>]*)>.*?</meta>`)},
	{"<link", regexp.MustCompile(`(?s)<link(?:[^>]*)>.*?</link>`)},
	{"<script", regexp.MustCompile(`(?s)<script(?:[^>]*)>.*?</script>`)},
	{"<style", regexp.MustCompile(`(?s)<style(?:[^>]*)>.*?</style>`)},
}

func removeStructural(content string) string {
	content = headingPattern.ReplaceAllString(content, "")
	for _, el := range structuralElements {
		if strings.Contains(content, el.marker) {
			content = el.pattern.ReplaceAllString(content, "")
		}
	}
	return content
}

func removeShortcodes(content string, names []string) string {
	for _, name := range names {
		if name == "" || !strings.Contains(content, "["+name) {
			continue
		}
		q := regexp.QuoteMeta(name)
		paired := regexp.MustCompile(`\[` + q + `(?:[ ][^\[\]]*\]|\])[\s\S]*?\[/` + q + `\]`)
		content = paired.ReplaceAllString(content, "")
		if strings.Contains(content, "["+name) {
			single := regexp.MustCompile(`\[` + q + `(?:[ ][^\[\]]*\]|\])`)
			content = single.ReplaceAllString(content, "")
		}
	}
	return content
}

type builderModule struct {
	marker  string
	pattern string
}

// Builder modules render to headings, buttons and links, so their content
// never carries suggestable prose.
var (
	fusionModules = []builderModule{
		{"fusion_title", `\[fusion_title(?:[^\]]*)\].*?\[/fusion_title\]`},
		{"fusion_imageframe", `\[fusion_imageframe(?:[^\]]*)\].*?\[/fusion_imageframe\]`},
		{"fusion_button", `\[fusion_button(?:[^\]]*)\].*?\[/fusion_button\]`},
		{"fusion_gallery", `\[fusion_gallery(?:[^\]]*)\].*?\[/fusion_gallery\]`},
		{"fusion_code", `\[fusion_code(?:[^\]]*)\].*?\[/fusion_code\]`},
		{"fusion_modal", `\[fusion_modal(?:[^\]]*)\].*?\[/fusion_modal\]`},
		{"fusion_menu", `\[fusion_menu(?:[^\]]*)\].*?\[/fusion_menu\]`},
		{"fusion_modal_text_link", `\[fusion_modal_text_link(?:[^\]]*)\].*?\[/fusion_modal_text_link\]`},
		{"fusion_vimeo", `\[fusion_vimeo(?:[^\]]*)\].*?\[/fusion_vimeo\]`},
	}
	cornerstoneModules = []builderModule{
		{"cs_element_headline", `\[cs_element_headline(?:[^\]]*)\]\[cs_content_seo\].*?\[/cs_content_seo\]`},
		{"x_custom_headline", `\[x_custom_headline(?:[^\]]*)\].*?\[/x_custom_headline\]`},
		{"x_image", `\[x_image(?:[^\]]*)\].*?\[/x_image\]`},
		{"x_button", `\[x_button(?:[^\]]*)\].*?\[/x_button\]`},
		{"cs_element_card", `\[cs_element_card(?:[^\]]*)\]\[cs_content_seo\].*?\[/cs_content_seo\]`},
	}
)

func removePageBuilderModules(content string) string {
	for _, group := range [][]builderModule{fusionModules, cornerstoneModules} {
		var alts []string
		for _, m := range group {
			if strings.Contains(content, m.marker) {
				alts = append(alts, m.pattern)
			}
		}
		if len(alts) == 0 {
			continue
		}
		re, err := regexp.Compile(`(?s)` + strings.Join(alts, "|"))
		if err != nil {
			continue
		}
		content = re.ReplaceAllString(content, "")
	}
	return content
}

const attrPrefix = "lsattr_"

var (
	attrPattern        = regexp.MustCompile(`[a-zA-Z-]*="([^"]*?)"`)
	encodedAttrPattern = regexp.MustCompile(`([a-zA-Z-]*)="` + attrPrefix + `([^"]*?)"`)
)

// encodeAttributes hides attribute values so punctuation inside them does not
// split sentences.
func encodeAttributes(content string) string {
	if !strings.Contains(content, `="`) {
		return content
	}
	return attrPattern.ReplaceAllStringFunc(content, func(m string) string {
		sub := attrPattern.FindStringSubmatch(m)
		if len(sub) < 2 || sub[1] == "" {
			return m
		}
		return strings.Replace(m, sub[1], attrPrefix+base64.StdEncoding.EncodeToString([]byte(sub[1])), 1)
	})
}

func decodeAttributes(item string) string {
	if !strings.Contains(item, attrPrefix) {
		return item
	}
	return encodedAttrPattern.ReplaceAllStringFunc(item, func(m string) string {
		sub := encodedAttrPattern.FindStringSubmatch(m)
		raw, err := base64.StdEncoding.DecodeString(sub[2])
		if err != nil {
			return m
		}
		return sub[1] + `="` + string(raw) + `"`
	})
}

// entityDecoder reverses the special-character escapes only, leaving other
// entities such as &nbsp; in place.
var entityDecoder = strings.NewReplacer("&amp;", "&", "&quot;", `"`, "&#039;", "'", "&lt;", "<", "&gt;", ">")

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func plainText(src string) string {
	return tagPattern.ReplaceAllString(entityDecoder.Replace(src), "")
}
