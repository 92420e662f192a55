package segment

import (
	"strings"
	"testing"
)

func texts(phrases []Phrase) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = p.Text
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPhrases(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		opts    Options
		content string
		want    []string
	}{
		{
			name:    "plain sentence",
			content: "Best running shoes for winter hiking",
			want:    []string{"Best running shoes for winter hiking"},
		},
		{
			name:    "sentence boundaries",
			content: "<p>First sentence here. Second sentence here!</p>",
			want:    []string{"First sentence here", "Second sentence here"},
		},
		{
			name:    "headings removed",
			content: "<h2>Heading Words</h2><p>Body text goes here.</p>",
			want:    []string{"Body text goes here"},
		},
		{
			name:    "clauses",
			content: "<p>Pack light, travel far and enjoy the trail.</p>",
			want:    []string{"Pack light", "travel far and enjoy the trail"},
		},
		{
			name:    "linked sentence dropped",
			content: `<p>See <a href="/guide">this guide</a> for more.</p><p>Plain words follow.</p>`,
			want:    []string{"Plain words follow"},
		},
		{
			name:    "linked sentence kept",
			opts:    Options{WithLinks: true},
			content: `<p>See <a href="/guide">this guide</a> for more.</p>`,
			want:    []string{"See this guide for more"},
		},
		{
			name:    "abbreviation split without ignore text",
			content: "Talk to Dr. Smith about boots. Then rest well.",
			want:    []string{"Talk to Dr", "Smith about boots", "Then rest well"},
		},
		{
			name:    "ignore text protects punctuation",
			opts:    Options{IgnoreText: []string{"dr."}},
			content: "Talk to Dr. Smith about boots. Then rest well.",
			want:    []string{"Talk to Dr. Smith about boots", "Then rest well"},
		},
		{
			name:    "ignored shortcode",
			cfg:     Config{IgnoreShortcodes: []string{"gallery"}},
			content: `[gallery ids="1,2"]Pictures of trails[/gallery]<p>Real sentence text.</p>`,
			want:    []string{"Real sentence text"},
		},
		{
			name:    "page builder title",
			content: `[fusion_title size="2"]Builder heading text[/fusion_title]<p>Body sentence text.</p>`,
			want:    []string{"Body sentence text"},
		},
		{
			name:    "ignored class wildcard",
			cfg:     Config{IgnoreClasses: []string{"no-link*"}},
			content: `<div class="no-links box"><p>Skip this sentence.</p></div><p>Keep this sentence.</p>`,
			want:    []string{"Keep this sentence"},
		},
		{
			name:    "ignored class exact",
			cfg:     Config{IgnoreClasses: []string{"sidebar"}},
			content: `<div class="sidebar-wide"><p>Wide sidebar text.</p></div><div class="sidebar"><p>Skip this one.</p></div>`,
			want:    []string{"Wide sidebar text"},
		},
		{
			name:    "embedded tweet",
			content: `<blockquote class="twitter-tweet"><p>Tweet text here.</p></blockquote><p>After the tweet.</p>`,
			want:    []string{"After the tweet"},
		},
		{
			name:    "skip paragraphs",
			cfg:     Config{SkipType: SkipParagraphs, SkipCount: 1},
			content: "<p>One two three.</p><p>Four five six.</p>",
			want:    []string{"Four five six"},
		},
		{
			name:    "skip sentences",
			cfg:     Config{SkipType: SkipSentences, SkipCount: 1},
			content: "<p>One two three. Four five six.</p>",
			want:    []string{"Four five six"},
		},
		{
			name:    "word segments prefilter",
			opts:    Options{WordSegments: []string{"boot", "winter"}},
			content: "<p>Winter boots are warm. Summer sandals are light.</p>",
			want:    []string{"Winter boots are warm"},
		},
		{
			name:    "bold run rejoined",
			content: "<p>This is <b>very. Important</b> text.</p>",
			want:    []string{"This is very. Important text"},
		},
		{
			name:    "escaped markup",
			content: `\u003cp\u003eEscaped sentence here.\u003c/p\u003e`,
			want:    []string{"Escaped sentence here"},
		},
		{
			name:    "single words dropped by default",
			content: "<p>Hello.</p><p>Two words.</p>",
			want:    []string{"Two words"},
		},
		{
			name:    "single words kept",
			opts:    Options{SingleWords: true},
			content: "<p>Hello.</p><p>Two words.</p>",
			want:    []string{"Hello", "Two words"},
		},
		{
			name:    "scripts removed",
			content: "<script>var a = 'Do not. Split me';</script><p>Visible text here.</p>",
			want:    []string{"Visible text here"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(New(tt.cfg).Phrases(tt.content, tt.opts))
			if !equalStrings(got, tt.want) {
				t.Errorf("Phrases() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPhrasesKeepSourceMarkup(t *testing.T) {
	phrases := New(Config{}).Phrases(`<p>Read the <a href="/a.b?c=d, e">trail guide</a> first.</p>`, Options{WithLinks: true})
	if len(phrases) != 1 {
		t.Fatalf("expected 1 phrase, got %d: %q", len(phrases), texts(phrases))
	}
	p := phrases[0]
	if !strings.Contains(p.Src, `href="/a.b?c=d, e"`) {
		t.Errorf("attribute not restored in src: %q", p.Src)
	}
	if p.SentenceText != "Read the trail guide first" {
		t.Errorf("SentenceText = %q", p.SentenceText)
	}
	if p.Text != p.SentenceText {
		t.Errorf("single clause text %q should equal sentence text %q", p.Text, p.SentenceText)
	}
}

func TestFromMarkdown(t *testing.T) {
	s := New(Config{})
	html, err := s.FromMarkdown("# Title\n\nSome body text here.\n")
	if err != nil {
		t.Fatalf("FromMarkdown: %v", err)
	}
	if !strings.Contains(html, "<p>Some body text here.</p>") {
		t.Fatalf("unexpected html %q", html)
	}
	got := texts(s.Phrases(html, Options{}))
	if !equalStrings(got, []string{"Some body text here"}) {
		t.Errorf("Phrases() = %q", got)
	}
}

func TestSkipParagraphsIgnoresEmptyDivs(t *testing.T) {
	content := `<div class="wrap"></div><p>First para text.</p><p>Second para text.</p>`
	got := skipParagraphs(content, 1)
	if got != "<p>Second para text.</p>" {
		t.Errorf("skipParagraphs() = %q", got)
	}
}

func BenchmarkPhrases(b *testing.B) {
	content := strings.Repeat("<p>Winter hiking boots keep your feet warm, dry and comfortable on long trails. "+
		"Choose a pair with good ankle support!</p>", 50)
	s := New(Config{IgnoreClasses: []string{"no-link*"}})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Phrases(content, Options{})
	}
}
