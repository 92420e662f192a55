// Package wordindex maps stemmed title words to the documents whose titles
// (and active keywords) contain them. Lookups are exact; the trie also
// serves ordered and prefix listings for diagnostics.
package wordindex

import (
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
)

type posting struct {
	docs []doc.Document
	keys map[string]struct{}
}

// Index is not safe for concurrent mutation. Build it once per chunk and
// share it read-only.
type Index struct {
	trie  *patricia.Trie
	words int
	docs  []doc.Document
	seen  map[string]struct{}
}

func New() *Index {
	return &Index{
		trie: patricia.NewTrie(),
		seen: make(map[string]struct{}),
	}
}

// Add records that d's title contains the stemmed word. A document is listed
// once per word, in insertion order.
func (ix *Index) Add(word string, d doc.Document) {
	if word == "" || d == nil {
		return
	}
	key := d.Ref().Key()
	if _, ok := ix.seen[key]; !ok {
		ix.seen[key] = struct{}{}
		ix.docs = append(ix.docs, d)
	}

	item := ix.trie.Get(patricia.Prefix(word))
	if item == nil {
		p := &posting{keys: map[string]struct{}{key: {}}, docs: []doc.Document{d}}
		ix.trie.Insert(patricia.Prefix(word), p)
		ix.words++
		return
	}
	p := item.(*posting)
	if _, ok := p.keys[key]; ok {
		return
	}
	p.keys[key] = struct{}{}
	p.docs = append(p.docs, d)
}

// Lookup returns the documents indexed under word.
func (ix *Index) Lookup(word string) []doc.Document {
	item := ix.trie.Get(patricia.Prefix(word))
	if item == nil {
		return nil
	}
	return item.(*posting).docs
}

// Has reports whether word is indexed.
func (ix *Index) Has(word string) bool {
	return ix.trie.Get(patricia.Prefix(word)) != nil
}

// Len is the number of distinct words.
func (ix *Index) Len() int { return ix.words }

// Empty reports whether nothing was indexed.
func (ix *Index) Empty() bool { return ix.words == 0 }

// Documents lists every indexed document once, in insertion order.
func (ix *Index) Documents() []doc.Document { return ix.docs }

// Refs lists the refs of every indexed document.
func (ix *Index) Refs() []doc.Ref {
	refs := make([]doc.Ref, len(ix.docs))
	for i, d := range ix.docs {
		refs[i] = d.Ref()
	}
	return refs
}

// Words lists the indexed words in lexical order.
func (ix *Index) Words() []string {
	return ix.WithPrefix("")
}

// WithPrefix lists the indexed words starting with prefix in lexical order.
func (ix *Index) WithPrefix(prefix string) []string {
	var out []string
	visit := func(p patricia.Prefix, _ patricia.Item) error {
		out = append(out, string(p))
		return nil
	}
	if prefix == "" {
		_ = ix.trie.Visit(visit)
	} else {
		_ = ix.trie.VisitSubtree(patricia.Prefix(prefix), visit)
	}
	return out
}

// Builder fills an Index from document titles.
type Builder struct {
	Normalizer *text.Normalizer
	Partial    keywords.PartialTitle
	// Literal, when set, indexes every document under the words of the
	// literal keyword instead of its own title.
	Literal string
}

// Title returns the text whose words index d: the partial title followed by
// the document's active keyword string.
func (b Builder) Title(d doc.Document, keywordString string) string {
	title := d.Title()
	if b.Partial.Enabled() {
		title = b.Partial.Apply(title)
	}
	if keywordString != "" {
		title += " " + keywordString
	}
	return title
}

// AddDocument indexes a local document under the stemmed words of its title
// and keyword string.
func (b Builder) AddDocument(ix *Index, d doc.Document, keywordString string) {
	source := b.Literal
	if source == "" {
		source = b.Title(d, keywordString)
	}
	for _, w := range text.Unique(b.Normalizer.Words(source)) {
		stem := b.Normalizer.Stem(w)
		if b.Literal != "" || b.Normalizer.Qualifies(stem) {
			ix.Add(stem, d)
		}
	}
}

// AddExternal indexes an external item under its precomputed stemmed title.
func (b Builder) AddExternal(ix *Index, d doc.Document) {
	if b.Literal != "" {
		b.AddDocument(ix, d, "")
		return
	}
	for _, w := range text.Unique(strings.Split(d.StemmedTitle(), " ")) {
		if w != "" && b.Normalizer.Qualifies(w) {
			ix.Add(w, d)
		}
	}
}
