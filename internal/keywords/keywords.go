// Package keywords builds the keyword sets a suggestion run matches against:
// explicit target keywords, keywords derived from a document's slug and
// title, the outbound candidate pool and more-specific overrides.
package keywords

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
)

// Source records where a keyword came from.
type Source uint8

const (
	SourceTarget Source = iota + 1
	SourceSlug
	SourceTitle
)

func (s Source) String() string {
	switch s {
	case SourceTarget:
		return "target-keyword"
	case SourceSlug, SourceTitle:
		return "post-keyword"
	default:
		return "unknown"
	}
}

// MinLength is the shortest keyword text considered for matching.
const MinLength = 3

// Keyword is a phrase a document wants to be linked for.
type Keyword struct {
	ID        int64   `json:"id,omitempty" msgpack:"id"`
	Owner     doc.Ref `json:"owner" msgpack:"owner"`
	Text      string  `json:"text" msgpack:"text"`
	Stemmed   string  `json:"stemmed" msgpack:"stemmed"`
	WordCount int     `json:"word_count" msgpack:"word_count"`
	Source    Source  `json:"source" msgpack:"source"`
	Active    bool    `json:"active" msgpack:"active"`
}

// Derived reports whether the keyword was computed from the document
// itself rather than assigned by an author.
func (k Keyword) Derived() bool {
	return k.Source == SourceSlug || k.Source == SourceTitle
}

// Matchable reports whether the raw text is long enough to match.
func (k Keyword) Matchable() bool {
	return len(k.Text) >= MinLength
}

// StemmedWords splits the stemmed text on spaces.
func (k Keyword) StemmedWords() []string {
	if k.Stemmed == "" {
		return nil
	}
	return strings.Split(k.Stemmed, " ")
}

// New builds a keyword with its stemmed form and word count filled in.
func New(n *text.Normalizer, owner doc.Ref, raw string, source Source) Keyword {
	k := Keyword{Owner: owner, Text: strings.TrimSpace(raw), Source: source, Active: true}
	return Prepare(n, k)
}

// Prepare fills in Stemmed and WordCount when the store did not.
func Prepare(n *text.Normalizer, k Keyword) Keyword {
	if k.Stemmed == "" {
		k.Stemmed = n.StemmedSentence(k.Text)
	}
	if k.WordCount == 0 {
		k.WordCount = len(text.Tokenize(k.Text))
	}
	return k
}

// PrepareAll applies Prepare to every active keyword and drops inactive ones.
func PrepareAll(n *text.Normalizer, kws []Keyword) []Keyword {
	out := make([]Keyword, 0, len(kws))
	for _, k := range kws {
		if !k.Active {
			continue
		}
		out = append(out, Prepare(n, k))
	}
	return out
}

// FromContent derives the two post keywords of an item: its slug with dashes
// turned into spaces, and its plain title.
func FromContent(n *text.Normalizer, item *doc.Item) []Keyword {
	if item == nil {
		return nil
	}
	return []Keyword{
		New(n, item.Ref(), strings.Join(strings.Split(item.Slug, "-"), " "), SourceSlug),
		New(n, item.Ref(), text.StripTags(item.TitleText), SourceTitle),
	}
}

// ForPost returns the keywords a document ranks for: its explicit active
// keywords, or the content derived ones when it has none.
func ForPost(n *text.Normalizer, item *doc.Item, explicit []Keyword) []Keyword {
	active := PrepareAll(n, explicit)
	if len(active) > 0 {
		return active
	}
	return FromContent(n, item)
}

// Outbound returns the candidates' keywords minus any whose stemmed text
// equals one of the source document's own keywords.
func Outbound(candidate []Keyword, own []Keyword) []Keyword {
	if len(candidate) == 0 {
		return nil
	}
	ownStems := make(map[string]struct{}, len(own))
	for _, k := range own {
		ownStems[k.Stemmed] = struct{}{}
	}
	out := make([]Keyword, 0, len(candidate))
	for _, k := range candidate {
		if _, ok := ownStems[k.Stemmed]; ok {
			continue
		}
		out = append(out, k)
	}
	return out
}

// MoreSpecific maps each of the source's stemmed keywords to the candidate
// keywords that contain it without being equal to it.
func MoreSpecific(targets []Keyword, own []Keyword) map[string][]Keyword {
	specific := make(map[string][]Keyword)
	for _, t := range targets {
		for _, o := range own {
			if o.Stemmed == "" || t.Stemmed == o.Stemmed {
				continue
			}
			if strings.Contains(t.Stemmed, o.Stemmed) {
				specific[o.Stemmed] = append(specific[o.Stemmed], t)
			}
		}
	}
	return specific
}

// ActiveString joins the raw text of active keywords with spaces.
func ActiveString(kws []Keyword) string {
	parts := make([]string, 0, len(kws))
	for _, k := range kws {
		if k.Active && k.Text != "" {
			parts = append(parts, k.Text)
		}
	}
	return strings.Join(parts, " ")
}

// GroupByOwner indexes keywords by the document that owns them.
func GroupByOwner(kws []Keyword) map[doc.Ref][]Keyword {
	out := make(map[doc.Ref][]Keyword)
	for _, k := range kws {
		out[k.Owner] = append(out[k.Owner], k)
	}
	return out
}
