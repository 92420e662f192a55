package importer

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
)

// page is a parsed source file before ids are assigned.
type page struct {
	relPath    string
	title      string
	slug       string
	content    string
	format     string
	language   string
	status     string
	postType   string
	published  time.Time
	keywords   []string
	categories []string
	links      []rawLink
}

type rawLink struct {
	href   string
	anchor string
}

// frontMatter is the YAML header a markdown page may start with.
type frontMatter struct {
	Title      string   `yaml:"title"`
	Slug       string   `yaml:"slug"`
	Date       string   `yaml:"date"`
	Status     string   `yaml:"status"`
	Type       string   `yaml:"type"`
	Language   string   `yaml:"lang"`
	Keywords   []string `yaml:"keywords"`
	Categories []string `yaml:"categories"`
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func parseHTML(relPath string, data []byte) (*page, error) {
	src := text.ToUTF8(data, "text/html")
	d, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	d.Find("script,noscript,style").Remove()

	p := &page{relPath: relPath, format: "html"}
	p.title = text.CollapseSpace(d.Find("title").First().Text())
	if p.title == "" {
		p.title = text.CollapseSpace(d.Find("h1").First().Text())
	}
	p.language = d.Find("html").AttrOr("lang", "")
	p.keywords = splitList(metaContent(d, `meta[name="keywords"]`))
	p.categories = splitList(metaContent(d, `meta[name="categories"]`))
	d.Find(`meta[property="article:section"]`).Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.AttrOr("content", "")); v != "" {
			p.categories = append(p.categories, v)
		}
	})
	if v := metaContent(d, `meta[property="article:published_time"]`); v != "" {
		p.published = parseTime(v)
	} else {
		p.published = parseTime(metaContent(d, `meta[name="date"]`))
	}

	body := d.Find("body").First()
	p.content, err = body.Html()
	if err != nil {
		return nil, fmt.Errorf("render body of %s: %w", relPath, err)
	}
	p.content = strings.TrimSpace(p.content)
	p.links = anchors(body)
	return p, nil
}

func parseMarkdown(relPath string, data []byte) (*page, error) {
	src := strings.ReplaceAll(text.ToUTF8(data, ""), "\r\n", "\n")
	p := &page{relPath: relPath, format: "markdown"}

	if rest, ok := strings.CutPrefix(src, "---\n"); ok {
		if end := strings.Index(rest, "\n---"); end >= 0 {
			var fm frontMatter
			if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
				return nil, fmt.Errorf("front matter of %s: %w", relPath, err)
			}
			p.title, p.slug = fm.Title, fm.Slug
			p.status, p.postType, p.language = fm.Status, fm.Type, fm.Language
			p.keywords, p.categories = fm.Keywords, fm.Categories
			p.published = parseTime(fm.Date)

			src = rest[end+len("\n---"):]
			if i := strings.IndexByte(src, '\n'); i >= 0 {
				src = src[i+1:]
			} else {
				src = ""
			}
		}
	}

	// A leading "# " heading is the title, not content.
	body := strings.TrimLeft(src, "\n")
	if heading, rest, ok := strings.Cut(body, "\n"); ok || strings.HasPrefix(body, "# ") {
		if h, found := strings.CutPrefix(heading, "# "); found {
			if p.title == "" {
				p.title = strings.TrimSpace(h)
			}
			body = rest
		}
	}
	p.content = strings.TrimSpace(body)

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(p.content), &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", relPath, err)
	}
	d, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse rendered %s: %w", relPath, err)
	}
	p.links = anchors(d.Selection)
	return p, nil
}

func anchors(s *goquery.Selection) []rawLink {
	var out []rawLink
	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		out = append(out, rawLink{href: href, anchor: text.CollapseSpace(a.Text())})
	})
	return out
}

func metaContent(d *goquery.Document, selector string) string {
	return strings.TrimSpace(d.Find(selector).First().AttrOr("content", ""))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// slugify lowercases s and joins its letter and digit runs with hyphens.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// pagePath is the site path of a file: its relative path without the
// extension, with index files standing for their directory.
func pagePath(relPath string) string {
	p := strings.TrimSuffix(relPath, path.Ext(relPath))
	if p == "index" {
		return ""
	}
	return strings.TrimSuffix(p, "/index")
}
