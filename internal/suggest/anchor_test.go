package suggest

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
)

func TestMaxCloseWords(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	tests := []struct {
		words []string
		text  string
		want  int
	}{
		{[]string{"winter", "hike"}, "best running shoes for winter hiking", 2},
		{[]string{"winter", "hike"}, "winter gear for hiking", 1},
		{[]string{"boot"}, "no match here", 0},
		{[]string{"trail", "run", "shoe"}, "Trail Running Shoes", 3},
	}
	for _, tt := range tests {
		if got := e.MaxCloseWords(tt.words, tt.text); got != tt.want {
			t.Errorf("MaxCloseWords(%v, %q) = %d, want %d", tt.words, tt.text, got, tt.want)
		}
	}
}

func TestAnchorLength(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	if got := e.AnchorLength("best running shoes for winter hiking", []string{"shoe", "hike"}); got != 4 {
		t.Errorf("AnchorLength = %d, want 4", got)
	}
	if got := e.AnchorLength("hiking boots and more hiking", []string{"hike", "boot"}); got != 2 {
		t.Errorf("first occurrences should be used, got %d", got)
	}
	if got := e.AnchorLength("nothing relevant", []string{"hike"}); got != 0 {
		t.Errorf("AnchorLength without matches = %d", got)
	}
}

func TestTrimOverlongDropsUnrecoverable(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	s := &Suggestion{
		Target: doc.Target{Ref: doc.Ref{ID: 2, Kind: doc.KindPost}, Title: "Hiking Boots"},
		Words:  []string{"hike", "boot"},
	}
	if _, ok := e.TrimOverlong("hiking is fun when you pack light and bring good warm boots", s); ok {
		t.Error("a trim leaving a single matched word must be rejected")
	}
}

func TestTrimOverlongKeepsKeywordGroup(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	n := e.Normalizer()
	target := doc.Target{Ref: doc.Ref{ID: 2, Kind: doc.KindPost}, Title: "Gear"}
	kw := keywords.New(n, target.Ref, "winter boots", keywords.SourceTarget)
	s := &Suggestion{
		Target:          target,
		Words:           []string{"winter", "boot", "cheap"},
		MatchedKeywords: []keywords.Keyword{kw},
		PassedKeywords:  true,
	}
	trimmed, ok := e.TrimOverlong("cheap socks are nice but you really want good warm winter boots", s)
	if !ok {
		t.Fatal("expected the keyword group to survive trimming")
	}
	if trimmed.Length != 2 || len(trimmed.Words) != 2 {
		t.Errorf("trimmed = %+v", trimmed)
	}
	if len(s.Words) != 3 {
		t.Error("the original suggestion must not be modified")
	}
}

func TestTrimOverlongIsIdempotent(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	s := &Suggestion{
		Target: doc.Target{Ref: doc.Ref{ID: 2, Kind: doc.KindPost}, Title: "Winter Hiking Boots"},
		Words:  []string{"winter", "hike"},
		Length: 2,
	}
	got, ok := e.TrimOverlong("best running shoes for winter hiking", s)
	if !ok || got != s {
		t.Error("a compliant suggestion must come back unchanged")
	}
}
