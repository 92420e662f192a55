package aggregate

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
)

func newFormatter(maxDisplayed int) *Formatter {
	n := text.NewNormalizer(text.Options{Language: "english", IgnoreNumbers: true})
	e := suggest.NewEngine(n, segment.New(segment.Config{}), suggest.DefaultScoringConfig())
	return NewFormatter(e, maxDisplayed)
}

func target(id int64, kind doc.Kind, total, post float64, words ...string) *suggest.Suggestion {
	return &suggest.Suggestion{
		Target:     doc.Target{Ref: doc.Ref{ID: id, Kind: kind}, Title: "Winter Hiking Boots"},
		Words:      words,
		TotalScore: total,
		PostScore:  post,
		Opacity:    1,
	}
}

func phrase(key int, sentence string, s ...*suggest.Suggestion) *suggest.Phrase {
	plain := text.StripTags(sentence)
	return &suggest.Phrase{
		Key:          key,
		Text:         plain,
		Src:          sentence,
		SentenceText: plain,
		SentenceSrc:  sentence,
		Suggestions:  s,
	}
}

const (
	boldOpen  = `<span class="wpil_word wpil_suggestion_tag open-tag wpil-bold-open wpil-bold">PGI+</span>`
	boldClose = `<span class="wpil_word wpil_suggestion_tag close-tag wpil-bold-close wpil-bold">PC9iPg==</span>`
)

func TestMerge(t *testing.T) {
	b1 := []*suggest.Phrase{
		phrase(0, "a", target(2, doc.KindPost, 5, 3)),
		phrase(1, "b", target(7, doc.KindExternalPost, 4, 2)),
	}
	b2 := []*suggest.Phrase{
		phrase(0, "a", target(3, doc.KindTerm, 6, 3), target(8, doc.KindExternalPost, 2, 2)),
	}
	pools := Merge([][]*suggest.Phrase{b1, b2})

	if len(pools.Internal) != 1 || len(pools.Internal[0].Suggestions) != 2 {
		t.Fatalf("internal pool = %+v", pools.Internal)
	}
	if len(pools.External) != 2 || pools.External[0].Key != 1 || pools.External[1].Key != 0 {
		t.Fatalf("external pool order wrong")
	}
	if len(b2[0].Suggestions) != 2 {
		t.Error("inputs must not be modified")
	}
}

func TestSentenceMarkup(t *testing.T) {
	got := sentenceMarkup("Shoes (for hiking) mostly: yes, really")
	want := []string{
		nonWord("right", "(") + wordOpen + "for" + spanClose,
		wordOpen + "hiking" + spanClose + nonWord("left", ")"),
		wordOpen + "mostly" + spanClose + nonWord("left", ":"),
		wordOpen + "yes" + spanClose + nonWord("left", ","),
	}
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("markup %q\nmissing %q", got, w)
		}
	}
}

func TestAddAnchors(t *testing.T) {
	f := newFormatter(0)
	linked := linkOpen + wordOpen + "winter" + spanClose + " " + wordOpen + "hiking" + spanClose + linkClose

	tests := []struct {
		name   string
		src    string
		words  []string
		checks func(t *testing.T, s *suggest.Suggestion)
	}{
		{
			name:  "plain sentence",
			src:   "Best running shoes for winter hiking",
			words: []string{"hike", "winter"},
			checks: func(t *testing.T, s *suggest.Suggestion) {
				if !strings.Contains(s.SentenceWithAnchor, linked) {
					t.Errorf("sentence = %q", s.SentenceWithAnchor)
				}
				if s.SentenceSrcWithAnchor != `Best running shoes for <a href="%view_link%">winter hiking</a>` {
					t.Errorf("source = %q", s.SentenceSrcWithAnchor)
				}
				if text.StripTags(s.Anchor) != "winter hiking" {
					t.Errorf("anchor = %q", s.Anchor)
				}
			},
		},
		{
			name:  "formatting around the anchor",
			src:   "Best running shoes for <b>winter hiking</b>",
			words: []string{"hike", "winter"},
			checks: func(t *testing.T, s *suggest.Suggestion) {
				if !strings.Contains(s.SentenceWithAnchor, boldOpen+linked+boldClose) {
					t.Errorf("sentence = %q", s.SentenceWithAnchor)
				}
				if s.SentenceSrcWithAnchor != `Best running shoes for <a href="%view_link%"><b>winter hiking</b></a>` {
					t.Errorf("source = %q", s.SentenceSrcWithAnchor)
				}
			},
		},
		{
			name:  "closing tag inside the anchor moves before it",
			src:   "Best running <b>shoes for winter</b> hiking",
			words: []string{"hike", "winter"},
			checks: func(t *testing.T, s *suggest.Suggestion) {
				if !strings.Contains(s.SentenceWithAnchor, boldClose+linked) {
					t.Errorf("sentence = %q", s.SentenceWithAnchor)
				}
			},
		},
		{
			name:  "opening tag inside the anchor moves after it",
			src:   "Best running shoes for winter <b>hiking boots</b>",
			words: []string{"hike", "winter"},
			checks: func(t *testing.T, s *suggest.Suggestion) {
				if !strings.Contains(s.SentenceWithAnchor, linked+boldOpen) {
					t.Errorf("sentence = %q", s.SentenceWithAnchor)
				}
			},
		},
		{
			name:  "single word anchor",
			src:   "Waterproof boots matter",
			words: []string{"boot"},
			checks: func(t *testing.T, s *suggest.Suggestion) {
				if !strings.Contains(s.SentenceWithAnchor, linkOpen+wordOpen+"boots"+spanClose+linkClose) {
					t.Errorf("sentence = %q", s.SentenceWithAnchor)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := phrase(0, tt.src, target(2, doc.KindPost, 10, 4, tt.words...))
			got := f.AddAnchors([]*suggest.Phrase{p}, AnchorOptions{})
			if len(got) != 1 || len(got[0].Suggestions) != 1 {
				t.Fatalf("expected one anchored suggestion, got %+v", got)
			}
			tt.checks(t, got[0].Suggestions[0])
		})
	}
}

func TestAddAnchorsDropsUnlocatable(t *testing.T) {
	f := newFormatter(0)
	p := phrase(0, "Best running shoes", target(2, doc.KindPost, 10, 4, "winter", "hike"))
	if got := f.AddAnchors([]*suggest.Phrase{p}, AnchorOptions{}); len(got) != 0 {
		t.Errorf("expected the phrase to be dropped, got %d", len(got))
	}
}

func TestAddAnchorsUsedAnchor(t *testing.T) {
	f := newFormatter(0)
	p := phrase(0, "Best running shoes for winter hiking", target(2, doc.KindPost, 10, 4, "hike", "winter"))
	got := f.AddAnchors([]*suggest.Phrase{p}, AnchorOptions{Outbound: true, UsedAnchors: []string{"Winter Hiking"}})
	if len(got) != 0 {
		t.Errorf("a phrase whose anchor is already linked must be dropped")
	}
}

func TestMergeSourceText(t *testing.T) {
	type want struct {
		id    int64
		total float64
	}
	tests := []struct {
		name    string
		phrases func() []*suggest.Phrase
		first   []want
		count   int
	}{
		{
			name: "distinct targets",
			phrases: func() []*suggest.Phrase {
				return []*suggest.Phrase{
					phrase(0, "winter hiking", target(2, doc.KindPost, 5, 3)),
					phrase(1, "trail running", target(3, doc.KindPost, 5, 3)),
					phrase(2, "winter hiking", target(4, doc.KindPost, 7, 3)),
				}
			},
			count: 2,
			first: []want{{4, 7}, {2, 5}},
		},
		{
			name: "shared target keeps best score",
			phrases: func() []*suggest.Phrase {
				return []*suggest.Phrase{
					phrase(0, "winter hiking boots", target(2, doc.KindPost, 10, 4), target(3, doc.KindPost, 8, 4)),
					phrase(1, "winter hiking boots", target(3, doc.KindPost, 20, 4)),
				}
			},
			count: 1,
			first: []want{{3, 20}, {2, 10}},
		},
		{
			name: "post and term with the same id stay apart",
			phrases: func() []*suggest.Phrase {
				return []*suggest.Phrase{
					phrase(0, "winter hiking", target(5, doc.KindPost, 4, 2)),
					phrase(1, "winter hiking", target(5, doc.KindTerm, 6, 2)),
				}
			},
			count: 1,
			first: []want{{5, 6}, {5, 4}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.phrases()
			got := MergeSourceText(in)
			if len(got) != tt.count || got[0] != in[0] {
				t.Fatalf("merged into %d phrases, want %d", len(got), tt.count)
			}
			list := got[0].Suggestions
			if len(list) != len(tt.first) {
				t.Fatalf("suggestions = %d, want %d", len(list), len(tt.first))
			}
			for i, w := range tt.first {
				if list[i].Target.Ref.ID != w.id || list[i].TotalScore != w.total {
					t.Errorf("suggestion %d = %s total %v, want id %d total %v",
						i, list[i].Target.Key(), list[i].TotalScore, w.id, w.total)
				}
			}
		})
	}
}

func TestFormatOutbound(t *testing.T) {
	f := newFormatter(0)
	source := doc.Ref{ID: 1, Kind: doc.KindPost}
	batch := []*suggest.Phrase{
		phrase(0, "Best running shoes for winter hiking", target(2, doc.KindPost, 10, 4, "hike", "winter")),
		phrase(1, "Winter hiking is fun", target(2, doc.KindPost, 6, 3, "hike", "winter")),
		phrase(2, "Hiking in winter again", target(1, doc.KindPost, 9, 3, "hike", "winter")),
	}
	view := f.FormatOutbound([][]*suggest.Phrase{batch}, source, AnchorOptions{})
	if len(view.Internal) != 1 || view.Internal[0].Key != 0 {
		t.Fatalf("internal = %+v", view.Internal)
	}
	if view.Internal[0].Suggestions[0].SentenceWithAnchor == "" {
		t.Error("anchors not rendered")
	}
	if len(view.External) != 0 || view.Empty() {
		t.Error("unexpected external pool state")
	}
}

func TestFormatOutboundMergedSentenceRanking(t *testing.T) {
	f := newFormatter(0)
	const sentence = "Best winter hiking boots for the trail"
	batch := []*suggest.Phrase{
		phrase(0, sentence, target(2, doc.KindPost, 10, 4, "hike", "winter"), target(3, doc.KindPost, 8, 4, "hike", "winter")),
		phrase(1, sentence, target(3, doc.KindPost, 20, 4, "hike", "winter")),
	}
	view := f.FormatOutbound([][]*suggest.Phrase{batch}, doc.Ref{ID: 1, Kind: doc.KindPost}, AnchorOptions{})
	if len(view.Internal) != 1 {
		t.Fatalf("internal = %d phrases, want 1", len(view.Internal))
	}
	seen := make(map[string]bool)
	list := view.Internal[0].Suggestions
	for i, s := range list {
		if seen[s.Target.Key()] {
			t.Errorf("target %s listed twice", s.Target.Key())
		}
		seen[s.Target.Key()] = true
		if i > 0 && s.TotalScore > list[i-1].TotalScore {
			t.Errorf("suggestion %d scores %v above %v", i, s.TotalScore, list[i-1].TotalScore)
		}
	}
	if list[0].Target.Ref.ID != 3 || list[0].TotalScore != 20 {
		t.Errorf("top = %s total %v, want post3 total 20", list[0].Target.Key(), list[0].TotalScore)
	}
}

func TestFormatOutboundLimit(t *testing.T) {
	f := newFormatter(2)
	var batch []*suggest.Phrase
	for i := 0; i < 5; i++ {
		batch = append(batch, phrase(i, "Sentence about winter hiking number "+string(rune('a'+i)),
			target(int64(10+i), doc.KindPost, 10, 4, "hike", "winter")))
	}
	view := f.FormatOutbound([][]*suggest.Phrase{batch}, doc.Ref{ID: 1, Kind: doc.KindPost}, AnchorOptions{})
	if len(view.Internal) != 2 {
		t.Errorf("expected 2 phrases, got %d", len(view.Internal))
	}
}

func TestFormatInbound(t *testing.T) {
	f := newFormatter(0)
	p := phrase(0, "Winter hiking boots", target(4, doc.KindPost, 5, 3, "hike", "winter"))
	q := phrase(0, "Winter hiking trips", target(5, doc.KindPost, 9, 3, "hike", "winter"))
	r := phrase(1, "More winter hiking", target(4, doc.KindPost, 7, 3, "hike", "winter"))

	view := f.FormatInbound([]*suggest.Phrase{p, q, r}, AnchorOptions{})
	if len(view.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(view.Groups))
	}
	if view.Groups[0].Target.Ref.ID != 5 || view.Groups[1].Target.Ref.ID != 4 {
		t.Errorf("group order = %d, %d", view.Groups[0].Target.Ref.ID, view.Groups[1].Target.Ref.ID)
	}
	if g := view.Groups[1].Phrases; len(g) != 2 || g[0] != r || g[1] != p {
		t.Error("phrases within a group should keep score order")
	}
}
