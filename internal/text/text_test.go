package text

import (
	"reflect"
	"strings"
	"testing"
)

func TestPorterStem(t *testing.T) {
	p := NewPorterStemmer()
	tests := map[string]string{
		"hiking":      "hike",
		"boots":       "boot",
		"shoes":       "shoe",
		"shoestring":  "shoestr",
		"winter":      "winter",
		"running":     "run",
		"caresses":    "caress",
		"ponies":      "poni",
		"relational":  "relat",
		"hopeful":     "hope",
		"Winter":      "winter",
		"at":          "at",
		"café":        "café",
		"replacement": "replac",
	}
	for in, want := range tests {
		if got := p.Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPorterStemDeterministic(t *testing.T) {
	p := NewPorterStemmer()
	for i := 0; i < 50; i++ {
		if got := p.Stem("conditional"); got != "condit" {
			t.Fatalf("Stem(conditional) = %q on iteration %d", got, i)
		}
	}
}

func TestRussianStem(t *testing.T) {
	r := NewRussianStemmer()
	if got := r.Stem("книги"); got != "книг" {
		t.Errorf("Stem(книги) = %q", got)
	}
	bad := string([]byte{0xff, 0xfe})
	if got := r.Stem(bad); got != bad {
		t.Errorf("invalid utf-8 should pass through, got %q", got)
	}
}

func TestNewStemmerPicksSnowball(t *testing.T) {
	for _, lang := range []string{"fr", "Spanish", " sv ", "norwegian", "hu", "ru"} {
		if _, ok := NewStemmer(lang).(*SnowballStemmer); !ok {
			t.Errorf("NewStemmer(%q) is not a snowball stemmer", lang)
		}
	}
	if _, ok := NewStemmer("en").(*PorterStemmer); !ok {
		t.Error("english should use the porter stemmer")
	}
}

func TestNewStemmerFallback(t *testing.T) {
	s := NewStemmer("klingon")
	if got := s.Stem("running"); got != "running" {
		t.Errorf("identity stemmer changed word: %q", got)
	}
}

type panicStemmer struct{}

func (panicStemmer) Stem(string) string { panic("unsupported rune") }

func TestStemRecoversFromStemmerPanic(t *testing.T) {
	n := NewNormalizerWithStemmer(Options{}, panicStemmer{})
	if got := n.Stem("Word"); got != "word" {
		t.Errorf("Stem = %q, want original lowercased word", got)
	}
}

func TestWordsAndStemmedSentence(t *testing.T) {
	n := NewNormalizer(Options{Language: "english"})
	got := n.Words("Best running shoes, for winter hiking!")
	want := []string{"best", "running", "shoes", "for", "winter", "hiking"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words = %v, want %v", got, want)
	}
	if s := n.StemmedSentence("Best running shoes for winter hiking"); s != "best run shoe for winter hike" {
		t.Errorf("StemmedSentence = %q", s)
	}
}

func TestTokenizeSplitsNonBreakingSpace(t *testing.T) {
	got := Tokenize("a\u00a0b  c\n")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Tokenize = %v", got)
	}
}

func TestQualifies(t *testing.T) {
	n := NewNormalizer(Options{IgnoreWords: []string{"the", "With"}, IgnoreNumbers: true})
	tests := []struct {
		word string
		want bool
	}{
		{"shoe", true},
		{"at", false},
		{"the", false},
		{"with", false},
		{"2024", false},
		{"$1,000", false},
		{"4x4", true},
	}
	for _, tt := range tests {
		if got := n.Qualifies(tt.word); got != tt.want {
			t.Errorf("Qualifies(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
	if !n.IsIgnoredStem(n.Stem("with")) {
		t.Error("expected stemmed ignore word to be recognised")
	}
}

func TestCleanIgnorePhrases(t *testing.T) {
	n := NewNormalizer(Options{IgnoreWords: []string{"for", "the"}})
	got := n.CleanIgnorePhrases("Shoes for the Winter.")
	if !reflect.DeepEqual(got, []string{"shoes", "winter"}) {
		t.Errorf("CleanIgnorePhrases = %v", got)
	}
}

func TestIsPartOfWord(t *testing.T) {
	s := "best run shoestr for winter hike"
	pos := strings.Index(s, "shoe")
	if !IsPartOfWord(s, pos, len("shoe")) {
		t.Error("shoe inside shoestr should be part of a word")
	}
	pos = strings.Index(s, "winter hike")
	if IsPartOfWord(s, pos, len("winter hike")) {
		t.Error("winter hike is a whole-word match")
	}
	if ContainsWhole(s, "shoe") {
		t.Error("ContainsWhole(shoe) should be false")
	}
	if !ContainsWhole("shoestr and shoe", "shoe") {
		t.Error("second occurrence of shoe is whole")
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"b", "a", "b", "c", "a"})
	if !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Errorf("Unique = %v", got)
	}
}

func TestToUTF8(t *testing.T) {
	latin1 := []byte{'c', 'a', 'f', 0xe9}
	if got := ToUTF8(latin1, "text/html; charset=iso-8859-1"); got != "café" {
		t.Errorf("ToUTF8 = %q", got)
	}
	if got := ToUTF8([]byte("plain"), ""); got != "plain" {
		t.Errorf("ToUTF8 = %q", got)
	}
}

func BenchmarkStemmedSentence(b *testing.B) {
	n := NewNormalizer(Options{Language: "english"})
	text := strings.Repeat("Distributed search engines process queries across multiple shards. ", 20)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = n.StemmedSentence(text)
	}
}
