package suggest

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
)

func sugg(id int64, total, post float64) *Suggestion {
	return &Suggestion{
		Target:     doc.Target{Ref: doc.Ref{ID: id, Kind: doc.KindPost}},
		TotalScore: total,
		PostScore:  post,
		Opacity:    1,
	}
}

func TestDedupeTopLevelKeepsBestPhrase(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	a := &Phrase{Key: 0, Suggestions: []*Suggestion{sugg(10, 40, 5)}}
	b := &Phrase{Key: 1, Suggestions: []*Suggestion{sugg(10, 25, 5), sugg(11, 12, 4)}}

	got := e.DedupeTopLevel([]*Phrase{b, a})
	if len(got) != 2 {
		t.Fatalf("expected 2 phrases, got %d", len(got))
	}
	if got[0].TopKey() != "11" || got[1].TopKey() != "10" {
		t.Errorf("tops = %s, %s; want 11, 10", got[0].TopKey(), got[1].TopKey())
	}
}

func TestDedupeTopLevelTieGoesToEarlierPhrase(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	a := &Phrase{Key: 0, Suggestions: []*Suggestion{sugg(10, 20, 5)}}
	b := &Phrase{Key: 1, Suggestions: []*Suggestion{sugg(10, 20, 5)}}
	got := e.DedupeTopLevel([]*Phrase{a, b})
	if len(got) != 1 || got[0].Key != 0 {
		t.Errorf("expected only the first phrase to survive, got %+v", got)
	}
}

// chain builds n phrases that all rank the same n targets identically, so
// each dedupe pass settles exactly one phrase.
func chain(n int) []*Phrase {
	phrases := make([]*Phrase, n)
	for i := range phrases {
		p := &Phrase{Key: i}
		for j := 0; j < n; j++ {
			p.Suggestions = append(p.Suggestions, sugg(int64(j), float64(n-j), 5))
		}
		phrases[i] = p
	}
	return phrases
}

func distinctTops(phrases []*Phrase) bool {
	seen := map[string]bool{}
	for _, p := range phrases {
		if seen[p.TopKey()] {
			return false
		}
		seen[p.TopKey()] = true
	}
	return true
}

func TestDedupeTopLevelPassCap(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	got := e.DedupeTopLevel(chain(150))
	if len(got) != 150 {
		t.Fatalf("expected 150 phrases, got %d", len(got))
	}
	if distinctTops(got) {
		t.Error("a 150 level chain cannot settle within 100 passes")
	}

	cfg := DefaultScoringConfig()
	cfg.MaxDedupePasses = 1000
	e = newTestEngine(cfg)
	if got := e.DedupeTopLevel(chain(150)); !distinctTops(got) {
		t.Error("expected distinct top targets once enough passes are allowed")
	}
}

func TestApplyTopLevel(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	used := map[string]struct{}{"10": {}}
	phrases := []*Phrase{
		{Key: 0, Suggestions: []*Suggestion{sugg(10, 9, 3), sugg(11, 8, 3)}},
		{Key: 1, Suggestions: []*Suggestion{sugg(12, 9, 3)}},
		{Key: 2, Suggestions: []*Suggestion{sugg(12, 5, 3)}},
	}
	got := e.ApplyTopLevel(phrases, used, false)
	if len(got) != 2 || got[0].TopKey() != "11" || got[1].TopKey() != "12" {
		t.Fatalf("unexpected phrases after top-level pass")
	}

	cfg := DefaultScoringConfig()
	cfg.Undeletable = true
	e = newTestEngine(cfg)
	p := &Phrase{Suggestions: []*Suggestion{sugg(10, 9, 3)}}
	for i := 0; i < 11; i++ {
		p.Suggestions = append(p.Suggestions, sugg(int64(100+i), 1, 1))
	}
	got = e.ApplyTopLevel([]*Phrase{p}, map[string]struct{}{"10": {}}, false)
	if len(got) != 1 || len(got[0].Suggestions) != 12 {
		t.Fatalf("undeletable mode must not remove suggestions")
	}
	if got[0].Suggestions[0].Opacity != 0.5 {
		t.Error("a used top target should be dimmed")
	}
	if got[0].Suggestions[9].Opacity != 1 || got[0].Suggestions[10].Opacity != 0.5 {
		t.Error("suggestions past the cap should be dimmed")
	}
}

func TestApplyTopLevelCaps(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	p := &Phrase{}
	for i := 0; i < 15; i++ {
		p.Suggestions = append(p.Suggestions, sugg(int64(i), 1, 1))
	}
	got := e.ApplyTopLevel([]*Phrase{p}, map[string]struct{}{}, true)
	if len(got[0].Suggestions) != 10 {
		t.Errorf("expected 10 suggestions, got %d", len(got[0].Suggestions))
	}
}

func weakFixture(strong, weak int) []*Phrase {
	var phrases []*Phrase
	for i := 0; i < strong+weak; i++ {
		score := 3.0
		if i%2 == 1 && weak > 0 {
			score = 1
			weak--
		}
		phrases = append(phrases, &Phrase{Key: i, Suggestions: []*Suggestion{sugg(int64(i), score, score)}})
	}
	return phrases
}

func TestPruneWeak(t *testing.T) {
	e := newTestEngine(DefaultScoringConfig())
	tests := []struct {
		strong, weak int
		wantLen      int
		wantWeak     int
	}{
		{strong: 12, weak: 3, wantLen: 12, wantWeak: 0},
		{strong: 8, weak: 4, wantLen: 10, wantWeak: 2},
		{strong: 4, weak: 5, wantLen: 9, wantWeak: 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_strong_%d_weak", tt.strong, tt.weak), func(t *testing.T) {
			got := e.PruneWeak(weakFixture(tt.strong, tt.weak))
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			weak, last := 0, -1
			for _, p := range got {
				if p.Top().PostScore < 3 {
					weak++
				}
				if p.Key <= last {
					t.Fatal("order not preserved")
				}
				last = p.Key
			}
			if weak != tt.wantWeak {
				t.Errorf("weak phrases kept = %d, want %d", weak, tt.wantWeak)
			}
		})
	}
}
