// Package importer loads a directory of HTML and markdown pages into a
// document store. Each page becomes a post; categories named in page
// metadata become terms; hyperlinks between pages become the link graph the
// suggestion runs read to skip already-linked targets.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/store"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
)

// Options configures an import.
type Options struct {
	// BaseURL is the public address of the site root, e.g.
	// "https://example.com". Page URLs are BaseURL + "/" + path + "/".
	BaseURL  string
	Includes []string
	Excludes []string
	// PostType, Status and Taxonomy default to "post", "publish" and
	// "category" when a page does not set them.
	PostType string
	Status   string
	Taxonomy string
}

// Summary counts what an import wrote.
type Summary struct {
	Documents     int `json:"documents"`
	Terms         int `json:"terms"`
	Keywords      int `json:"keywords"`
	Links         int `json:"links"`
	ExternalLinks int `json:"external_links"`
	Skipped       int `json:"skipped"`
}

// Importer writes parsed pages through a store.Writer.
type Importer struct {
	w      store.Writer
	norm   *text.Normalizer
	opts   Options
	base   *url.URL
	walker *Walker
	logger *slog.Logger
}

func New(w store.Writer, norm *text.Normalizer, opts Options) (*Importer, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "base url %q must be absolute", opts.BaseURL)
	}
	if opts.PostType == "" {
		opts.PostType = "post"
	}
	if opts.Status == "" {
		opts.Status = "publish"
	}
	if opts.Taxonomy == "" {
		opts.Taxonomy = "category"
	}
	return &Importer{
		w:      w,
		norm:   norm,
		opts:   opts,
		base:   base,
		walker: NewWalker(opts.Includes, opts.Excludes),
		logger: slog.Default().With("component", "importer"),
	}, nil
}

// Import loads every matching file under root. Ids are assigned in path
// order starting at 1, so re-importing an unchanged tree replaces the same
// documents. progress, when set, is called after each page is written.
func (im *Importer) Import(ctx context.Context, root string, progress func(done, total int)) (Summary, error) {
	var sum Summary
	files, err := im.walker.Walk(root)
	if err != nil {
		return sum, fmt.Errorf("walk %s: %w", root, err)
	}

	pages := make([]*page, 0, len(files))
	for _, f := range files {
		p, err := readPage(f)
		if err != nil {
			im.logger.Warn("skipping page", "path", f.RelPath, "error", err)
			sum.Skipped++
			continue
		}
		pages = append(pages, p)
	}

	site := im.index(pages)
	terms := im.terms(pages)
	for _, term := range terms {
		site.terms[term.Slug] = term
		if err := im.w.PutDocument(ctx, term); err != nil {
			return sum, fmt.Errorf("write term %q: %w", term.TitleText, err)
		}
		sum.Terms++
	}

	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		item := site.items[i]
		for _, name := range p.categories {
			if t, ok := site.terms[slugify(name)]; ok {
				item.Categories = appendUnique(item.Categories, t.ID)
			}
		}
		if err := im.w.PutDocument(ctx, item); err != nil {
			return sum, fmt.Errorf("write %s: %w", p.relPath, err)
		}
		sum.Documents++

		if len(p.keywords) > 0 {
			kws := make([]keywords.Keyword, 0, len(p.keywords))
			for _, raw := range p.keywords {
				kws = append(kws, keywords.New(im.norm, item.Ref(), raw, keywords.SourceTarget))
			}
			if err := im.w.PutKeywords(ctx, item.Ref(), kws); err != nil {
				return sum, fmt.Errorf("write keywords of %s: %w", p.relPath, err)
			}
			sum.Keywords += len(kws)
		}

		links := site.resolve(item, p)
		if err := im.w.PutLinks(ctx, item.Ref(), links); err != nil {
			return sum, fmt.Errorf("write links of %s: %w", p.relPath, err)
		}
		for _, l := range links {
			if l.External {
				sum.ExternalLinks++
			} else {
				sum.Links++
			}
		}
		if progress != nil {
			progress(i+1, len(pages))
		}
	}

	im.logger.Info("import finished",
		"root", root,
		"documents", sum.Documents,
		"terms", sum.Terms,
		"links", sum.Links,
		"skipped", sum.Skipped,
	)
	return sum, nil
}

func readPage(f File) (*page, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(path.Ext(f.RelPath)) {
	case ".md", ".markdown":
		return parseMarkdown(f.RelPath, data)
	default:
		return parseHTML(f.RelPath, data)
	}
}

// site maps page paths and URLs to the items built from them.
type site struct {
	base   *url.URL
	items  []*doc.Item
	byPath map[string]doc.Ref
	terms  map[string]*doc.Item
}

func (im *Importer) index(pages []*page) *site {
	s := &site{
		base:   im.base,
		items:  make([]*doc.Item, len(pages)),
		byPath: make(map[string]doc.Ref, len(pages)),
		terms:  make(map[string]*doc.Item),
	}
	for i, p := range pages {
		sitePath := pagePath(p.relPath)
		item := &doc.Item{
			ID:        int64(i + 1),
			Kind:      doc.KindPost,
			TitleText: p.title,
			Slug:      p.slug,
			URL:       s.url(sitePath),
			Content:   p.content,
			Format:    p.format,
			Type:      valueOr(p.postType, im.opts.PostType),
			Status:    valueOr(p.status, im.opts.Status),
			Language:  p.language,
			Published: p.published,
		}
		if item.Slug == "" {
			item.Slug = slugify(path.Base(sitePath))
		}
		if item.Slug == "" {
			item.Slug = slugify(p.title)
		}
		if item.TitleText == "" {
			item.TitleText = path.Base(sitePath)
		}
		s.items[i] = item
		s.byPath[sitePath] = item.Ref()
	}
	return s
}

// terms builds one term per distinct category slug, ids in name order.
func (im *Importer) terms(pages []*page) []*doc.Item {
	names := make(map[string]string)
	for _, p := range pages {
		for _, name := range p.categories {
			slug := slugify(name)
			if _, ok := names[slug]; !ok && slug != "" {
				names[slug] = strings.TrimSpace(name)
			}
		}
	}
	slugs := make([]string, 0, len(names))
	for slug := range names {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	out := make([]*doc.Item, len(slugs))
	for i, slug := range slugs {
		out[i] = &doc.Item{
			ID:        int64(i + 1),
			Kind:      doc.KindTerm,
			TitleText: names[slug],
			Slug:      slug,
			URL:       strings.TrimRight(im.base.String(), "/") + "/" + im.opts.Taxonomy + "/" + slug + "/",
			Type:      im.opts.Taxonomy,
			Status:    "publish",
		}
	}
	return out
}

func (s *site) url(sitePath string) string {
	root := strings.TrimRight(s.base.String(), "/")
	if sitePath == "" {
		return root + "/"
	}
	return root + "/" + sitePath + "/"
}

// resolve turns the anchors of p into store links. Hrefs are resolved
// relative to the page's file; links to other hosts are external, links to
// unknown pages of this site and self links are dropped.
func (s *site) resolve(item *doc.Item, p *page) []store.Link {
	var out []store.Link
	seen := make(map[string]bool)
	for _, raw := range p.links {
		u, err := url.Parse(raw.href)
		if err != nil {
			continue
		}
		var link store.Link
		switch {
		case u.Scheme == "" && u.Host == "":
			target := u.Path
			if !strings.HasPrefix(target, "/") {
				target = path.Join(path.Dir(p.relPath), target)
			} else {
				target = strings.TrimPrefix(target, strings.TrimRight(s.base.Path, "/"))
			}
			ref, ok := s.byPath[pagePath(strings.Trim(target, "/"))]
			if !ok {
				continue
			}
			link = store.Link{Target: ref, URL: s.items[ref.ID-1].URL, Anchor: raw.anchor}
		case u.Scheme == "http" || u.Scheme == "https":
			if !strings.EqualFold(u.Hostname(), s.base.Hostname()) {
				u.Fragment = ""
				link = store.Link{URL: u.String(), Anchor: raw.anchor, External: true}
				break
			}
			target := strings.TrimPrefix(u.Path, strings.TrimRight(s.base.Path, "/"))
			ref, ok := s.byPath[pagePath(strings.Trim(target, "/"))]
			if !ok {
				continue
			}
			link = store.Link{Target: ref, URL: s.items[ref.ID-1].URL, Anchor: raw.anchor}
		default:
			continue
		}
		if !link.External && link.Target == item.Ref() {
			continue
		}
		key := link.URL + "\x00" + strings.ToLower(link.Anchor)
		if seen[key] {
			continue
		}
		seen[key] = true
		link.Source = item.Ref()
		out = append(out, link)
	}
	return out
}

// externalEntry is one item of an external-site export.
type externalEntry struct {
	Site  string `yaml:"site"`
	ID    int64  `yaml:"id"`
	Term  bool   `yaml:"term"`
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// ImportExternal loads the posts and terms of linked sites from a YAML list.
// Local ids are assigned in list order starting at 1.
func (im *Importer) ImportExternal(ctx context.Context, r io.Reader) (int, error) {
	var entries []externalEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
		return 0, fmt.Errorf("decode external items: %w", err)
	}
	items := make([]*doc.ExternalItem, 0, len(entries))
	for i, e := range entries {
		if e.URL == "" || e.Title == "" {
			return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "external item %d needs a title and url", i+1)
		}
		items = append(items, &doc.ExternalItem{
			ID:          int64(i + 1),
			SiteURL:     strings.TrimRight(e.Site, "/"),
			ItemID:      e.ID,
			Term:        e.Term,
			TitleText:   e.Title,
			StemmedText: im.norm.StemmedSentence(e.Title),
			URL:         e.URL,
		})
	}
	if err := im.w.PutExternalItems(ctx, items); err != nil {
		return 0, fmt.Errorf("write external items: %w", err)
	}
	im.logger.Info("external items imported", "count", len(items))
	return len(items), nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, have := range ids {
		if have == id {
			return ids
		}
	}
	return append(ids, id)
}
