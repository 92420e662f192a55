package keywords

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
)

func newNormalizer() *text.Normalizer {
	return text.NewNormalizer(text.Options{Language: "english"})
}

func TestForPostDerivesFromSlugAndTitle(t *testing.T) {
	n := newNormalizer()
	item := &doc.Item{ID: 7, Kind: doc.KindPost, Slug: "winter-hiking-boots", TitleText: "<b>Winter</b> Hiking Boots"}

	kws := ForPost(n, item, nil)
	if len(kws) != 2 {
		t.Fatalf("expected 2 derived keywords, got %d", len(kws))
	}
	if kws[0].Text != "winter hiking boots" || kws[0].Source != SourceSlug {
		t.Errorf("slug keyword = %+v", kws[0])
	}
	if kws[1].Text != "Winter Hiking Boots" || kws[1].Source != SourceTitle {
		t.Errorf("title keyword = %+v", kws[1])
	}
	if kws[0].Stemmed != "winter hike boot" {
		t.Errorf("stemmed = %q, want %q", kws[0].Stemmed, "winter hike boot")
	}
	if !kws[0].Derived() || kws[0].Source.String() != "post-keyword" {
		t.Error("slug keyword should be a derived post keyword")
	}
}

func TestForPostPrefersExplicit(t *testing.T) {
	n := newNormalizer()
	item := &doc.Item{ID: 7, Kind: doc.KindPost, Slug: "a-b", TitleText: "A B"}
	explicit := []Keyword{
		{Owner: item.Ref(), Text: "trail shoes", Source: SourceTarget, Active: true},
		{Owner: item.Ref(), Text: "disabled", Source: SourceTarget},
	}

	kws := ForPost(n, item, explicit)
	if len(kws) != 1 {
		t.Fatalf("expected only the active explicit keyword, got %d", len(kws))
	}
	if kws[0].Stemmed != "trail shoe" || kws[0].WordCount != 2 {
		t.Errorf("unexpected keyword %+v", kws[0])
	}
}

func TestOutboundExcludesOwnStems(t *testing.T) {
	n := newNormalizer()
	own := []Keyword{New(n, doc.Ref{ID: 1, Kind: doc.KindPost}, "hiking boots", SourceTarget)}
	candidates := []Keyword{
		New(n, doc.Ref{ID: 2, Kind: doc.KindPost}, "hiking boot", SourceTarget),
		New(n, doc.Ref{ID: 3, Kind: doc.KindPost}, "winter hiking boots", SourceTarget),
	}

	got := Outbound(candidates, own)
	if len(got) != 1 || got[0].Owner.ID != 3 {
		t.Fatalf("expected only owner 3 to survive, got %+v", got)
	}

	specific := MoreSpecific(got, own)
	if len(specific["hike boot"]) != 1 {
		t.Errorf("expected one more specific keyword for %q, got %v", "hike boot", specific)
	}
}

func TestActiveString(t *testing.T) {
	kws := []Keyword{{Text: "alpha", Active: true}, {Text: "beta"}, {Text: "gamma", Active: true}}
	if got := ActiveString(kws); got != "alpha gamma" {
		t.Errorf("ActiveString = %q", got)
	}
}

func TestPartialTitle(t *testing.T) {
	tests := []struct {
		name  string
		p     PartialTitle
		title string
		want  string
	}{
		{"none", PartialTitle{Basis: BasisNone}, "The Best Trail Shoes", "The Best Trail Shoes"},
		{"first", PartialTitle{Basis: BasisFirst, Words: 2}, "The Best Trail Shoes", "The Best"},
		{"last", PartialTitle{Basis: BasisLast, Words: 2}, "The Best Trail Shoes", "Trail Shoes"},
		{"first longer than title", PartialTitle{Basis: BasisFirst, Words: 9}, "Trail Shoes", "Trail Shoes"},
		{"before", PartialTitle{Basis: BasisBefore, SplitChar: ":"}, "Trail Shoes: A Guide", "Trail Shoes"},
		{"after", PartialTitle{Basis: BasisAfter, SplitChar: ":"}, "Trail Shoes: A Guide", "A Guide"},
		{"split char missing", PartialTitle{Basis: BasisAfter, SplitChar: "|"}, "Trail Shoes", "Trail Shoes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Apply(tt.title); got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}
