package doc

import "testing"

func TestRefKey(t *testing.T) {
	tests := []struct {
		ref  Ref
		want string
	}{
		{Ref{ID: 12, Kind: KindPost}, "12"},
		{Ref{ID: 3, Kind: KindTerm}, "cat3"},
		{Ref{ID: 7, Kind: KindExternalPost}, "ext_post7"},
		{Ref{ID: 7, Kind: KindExternalTerm}, "ext_cat7"},
	}
	for _, tt := range tests {
		if got := tt.ref.Key(); got != tt.want {
			t.Errorf("%v.Key() = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestSnapshotDropsContent(t *testing.T) {
	item := &Item{ID: 4, Kind: KindPost, TitleText: "Winter Hiking Boots", Content: "<p>long</p>", URL: "/boots"}
	item.SetStemmedTitle("winter hike boot")
	var d Document = item
	got := Snapshot(d)
	if got.Ref != (Ref{ID: 4, Kind: KindPost}) || got.StemmedTitle != "winter hike boot" || got.URL != "/boots" {
		t.Errorf("Snapshot = %+v", got)
	}
}

func TestExternalItemRef(t *testing.T) {
	e := &ExternalItem{ID: 9, Term: true}
	if e.Ref().Kind != KindExternalTerm || !e.Ref().Kind.External() {
		t.Errorf("unexpected ref %v", e.Ref())
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("category")
	if err != nil || k != KindTerm {
		t.Errorf("ParseKind(category) = %v, %v", k, err)
	}
	if _, err := ParseKind("widget"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
