// Package doc defines the documents a suggestion run reads: site content
// items and taxonomy terms owned by the document store, and items mirrored
// from linked external sites.
package doc

import (
	"fmt"
	"time"
)

// Kind distinguishes the four document flavours.
type Kind uint8

const (
	KindPost Kind = iota + 1
	KindTerm
	KindExternalPost
	KindExternalTerm
)

func (k Kind) String() string {
	switch k {
	case KindPost:
		return "post"
	case KindTerm:
		return "term"
	case KindExternalPost:
		return "external_post"
	case KindExternalTerm:
		return "external_term"
	default:
		return "unknown"
	}
}

// External reports whether the kind lives on another site.
func (k Kind) External() bool {
	return k == KindExternalPost || k == KindExternalTerm
}

// IsTerm reports whether the kind is a taxonomy term on either site.
func (k Kind) IsTerm() bool {
	return k == KindTerm || k == KindExternalTerm
}

// ParseKind accepts the names produced by String plus "category".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "post", "":
		return KindPost, nil
	case "term", "category":
		return KindTerm, nil
	case "external_post":
		return KindExternalPost, nil
	case "external_term":
		return KindExternalTerm, nil
	}
	return 0, fmt.Errorf("unknown document kind %q", s)
}

// Ref identifies a document.
type Ref struct {
	ID   int64 `json:"id" msgpack:"id"`
	Kind Kind  `json:"kind" msgpack:"kind"`
}

// Key is the identity used for used-target tracking and dedupe.
func (r Ref) Key() string {
	switch r.Kind {
	case KindTerm:
		return fmt.Sprintf("cat%d", r.ID)
	case KindExternalPost:
		return fmt.Sprintf("ext_post%d", r.ID)
	case KindExternalTerm:
		return fmt.Sprintf("ext_cat%d", r.ID)
	default:
		return fmt.Sprintf("%d", r.ID)
	}
}

func (r Ref) String() string {
	return r.Kind.String() + ":" + fmt.Sprint(r.ID)
}

// Document is the capability the scorer needs from a link target. The set of
// implementations is closed: *Item and *ExternalItem.
type Document interface {
	Ref() Ref
	Title() string
	StemmedTitle() string
	Link() string
	document()
}

// Item is a content item or taxonomy term on the local site.
type Item struct {
	ID         int64
	Kind       Kind
	TitleText  string
	Slug       string
	URL        string
	Content    string
	Format     string
	Type       string
	Status     string
	Language   string
	Published  time.Time
	Categories []int64
	Redirected bool

	stemmedTitle string
}

func (i *Item) Ref() Ref             { return Ref{ID: i.ID, Kind: i.Kind} }
func (i *Item) Title() string        { return i.TitleText }
func (i *Item) StemmedTitle() string { return i.stemmedTitle }
func (i *Item) Link() string         { return i.URL }
func (*Item) document()              {}

// SetStemmedTitle caches the stemmed title computed by the indexer.
func (i *Item) SetStemmedTitle(s string) { i.stemmedTitle = s }

// ReleaseContent drops the raw content once the item has been scored.
func (i *Item) ReleaseContent() { i.Content = "" }

// IsMarkdown reports whether Content is markdown rather than HTML.
func (i *Item) IsMarkdown() bool { return i.Format == "markdown" }

// ExternalItem is a post or term mirrored from a linked site. Its stemmed
// title is computed by the remote site and stored alongside the item.
type ExternalItem struct {
	ID          int64
	SiteURL     string
	ItemID      int64
	Term        bool
	TitleText   string
	StemmedText string
	URL         string
}

func (e *ExternalItem) Ref() Ref {
	if e.Term {
		return Ref{ID: e.ID, Kind: KindExternalTerm}
	}
	return Ref{ID: e.ID, Kind: KindExternalPost}
}
func (e *ExternalItem) Title() string        { return e.TitleText }
func (e *ExternalItem) StemmedTitle() string { return e.StemmedText }
func (e *ExternalItem) Link() string         { return e.URL }
func (*ExternalItem) document()              {}

// Target is the serialisable snapshot of a Document kept on suggestions.
// It never carries content.
type Target struct {
	Ref          Ref    `json:"ref" msgpack:"ref"`
	Title        string `json:"title" msgpack:"title"`
	StemmedTitle string `json:"stemmed_title,omitempty" msgpack:"stemmed_title"`
	URL          string `json:"url,omitempty" msgpack:"url"`
}

// Snapshot captures the parts of d a suggestion needs after scoring.
func Snapshot(d Document) Target {
	return Target{
		Ref:          d.Ref(),
		Title:        d.Title(),
		StemmedTitle: d.StemmedTitle(),
		URL:          d.Link(),
	}
}

// Key is shorthand for t.Ref.Key().
func (t Target) Key() string { return t.Ref.Key() }
