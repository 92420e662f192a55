// Package store is the document store a suggestion run reads from: local
// posts and terms, their keywords and links, and the items mirrored from
// linked external sites. Implementations live side by side: SQL (postgres
// and sqlite), bbolt and in-memory, plus a resilience wrapper.
package store

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks github.com/Adithya-Monish-Kumar-K/linksuggest/internal/store DocumentStore

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
)

// Direction selects which side of a link a document is on.
type Direction uint8

const (
	// Outbound links leave the document.
	Outbound Direction = iota + 1
	// Inbound links point at the document.
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Link is one hyperlink found in a document's content. Target is zero for
// links that leave the site.
type Link struct {
	Source   doc.Ref `json:"source"`
	Target   doc.Ref `json:"target"`
	URL      string  `json:"url"`
	Anchor   string  `json:"anchor"`
	External bool    `json:"external"`
}

// CandidateQuery filters the posts considered by a run. Empty fields do not
// restrict.
type CandidateQuery struct {
	PostTypes         []string
	Statuses          []string
	ExcludeIDs        []int64
	Categories        []int64
	IgnoredCategories []int64
	PublishedAfter    time.Time
	Language          string
	// ContentWords keeps posts whose content contains any of the words,
	// compared case-insensitively.
	ContentWords []string
}

// DocumentStore is the read side used by suggestion runs. Items returned by
// GetDocument and GetDocuments carry no content; GetContent loads it.
type DocumentStore interface {
	GetDocument(ctx context.Context, ref doc.Ref) (*doc.Item, error)
	GetDocuments(ctx context.Context, refs []doc.Ref) ([]*doc.Item, error)
	GetContent(ctx context.Context, ref doc.Ref) (string, error)
	// QueryCandidateIDs returns matching post ids, highest first.
	QueryCandidateIDs(ctx context.Context, q CandidateQuery) ([]int64, error)
	// Terms lists the terms of the given taxonomies.
	Terms(ctx context.Context, taxonomies []string) ([]*doc.Item, error)
	GetActiveKeywords(ctx context.Context, ref doc.Ref) ([]keywords.Keyword, error)
	ActiveKeywordsFor(ctx context.Context, refs []doc.Ref) (map[doc.Ref][]keywords.Keyword, error)
	GetLinkedDocumentIDs(ctx context.Context, ref doc.Ref, dir Direction) ([]doc.Ref, error)
	GetLinks(ctx context.Context, ref doc.Ref, dir Direction) ([]Link, error)
	ExternalItems(ctx context.Context, offset, limit int) ([]*doc.ExternalItem, error)
	CountExternalItems(ctx context.Context) (int, error)
}

// Writer is the write side used by the importer.
type Writer interface {
	// PutDocument inserts or replaces a document with its content and
	// categories.
	PutDocument(ctx context.Context, item *doc.Item) error
	// PutKeywords replaces the keywords owned by owner.
	PutKeywords(ctx context.Context, owner doc.Ref, kws []keywords.Keyword) error
	// PutLinks replaces the outbound links of source.
	PutLinks(ctx context.Context, source doc.Ref, links []Link) error
	PutExternalItems(ctx context.Context, items []*doc.ExternalItem) error
}

// Store is a full read-write document store.
type Store interface {
	DocumentStore
	Writer
	io.Closer
}

// LinkedRefs returns the distinct local documents on the far side of links.
func LinkedRefs(links []Link, dir Direction) []doc.Ref {
	seen := make(map[doc.Ref]struct{}, len(links))
	var out []doc.Ref
	for _, l := range links {
		if l.External {
			continue
		}
		ref := l.Target
		if dir == Inbound {
			ref = l.Source
		}
		if ref.ID == 0 {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// match applies q to one post in Go. It backs the stores that have no query
// language of their own.
func (q CandidateQuery) match(item *doc.Item, content string) bool {
	if item.Kind != doc.KindPost || item.Redirected {
		return false
	}
	if len(q.PostTypes) > 0 && !containsString(q.PostTypes, item.Type) {
		return false
	}
	if len(q.Statuses) > 0 && !containsString(q.Statuses, item.Status) {
		return false
	}
	if containsID(q.ExcludeIDs, item.ID) {
		return false
	}
	if len(q.Categories) > 0 && !anyID(q.Categories, item.Categories) {
		return false
	}
	if anyID(q.IgnoredCategories, item.Categories) {
		return false
	}
	if !q.PublishedAfter.IsZero() && item.Published.Before(q.PublishedAfter) {
		return false
	}
	if q.Language != "" && item.Language != q.Language {
		return false
	}
	if len(q.ContentWords) > 0 {
		lower := strings.ToLower(content)
		found := false
		for _, w := range q.ContentWords {
			if strings.Contains(lower, strings.ToLower(w)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func containsID(list []int64, id int64) bool {
	for _, x := range list {
		if x == id {
			return true
		}
	}
	return false
}

func anyID(want, have []int64) bool {
	for _, h := range have {
		if containsID(want, h) {
			return true
		}
	}
	return false
}
