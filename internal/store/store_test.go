package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/postgres"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	postBoots  = doc.Ref{ID: 10, Kind: doc.KindPost}
	postShoes  = doc.Ref{ID: 11, Kind: doc.KindPost}
	termHiking = doc.Ref{ID: 3, Kind: doc.KindTerm}
)

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	items := []*doc.Item{
		{ID: 10, Kind: doc.KindPost, TitleText: "Winter Hiking Boots", Slug: "winter-hiking-boots", URL: "https://site.test/boots",
			Type: "post", Status: "publish", Published: day(2024, 1, 10), Categories: []int64{3},
			Content: "<p>Warm boots for winter hiking trips.</p>"},
		{ID: 11, Kind: doc.KindPost, TitleText: "Trail Running Shoes", Slug: "trail-running-shoes", Type: "post",
			Status: "publish", Published: day(2024, 3, 2), Categories: []int64{4}, Content: "<p>Shoes built for the trail.</p>"},
		{ID: 12, Kind: doc.KindPost, TitleText: "Draft", Type: "post", Status: "draft", Published: day(2024, 5, 1)},
		{ID: 13, Kind: doc.KindPost, TitleText: "Old Post", Type: "page", Status: "publish", Published: day(2015, 6, 1),
			Content: "An old page."},
		{ID: 14, Kind: doc.KindPost, TitleText: "Moved", Type: "post", Status: "publish", Published: day(2024, 2, 1), Redirected: true},
		{ID: 3, Kind: doc.KindTerm, TitleText: "Hiking", Type: "category"},
		{ID: 4, Kind: doc.KindTerm, TitleText: "Running", Type: "category"},
		{ID: 5, Kind: doc.KindTerm, TitleText: "Gear", Type: "post_tag"},
	}
	for _, item := range items {
		if err := s.PutDocument(ctx, item); err != nil {
			t.Fatalf("PutDocument(%s): %v", item.Ref(), err)
		}
	}
	kws := []keywords.Keyword{
		{Text: "winter boots", Source: keywords.SourceTarget, Active: true},
		{Text: "snow boots", Source: keywords.SourceTarget, Active: false},
	}
	if err := s.PutKeywords(ctx, postBoots, kws); err != nil {
		t.Fatalf("PutKeywords: %v", err)
	}
	links := []Link{
		{Target: postBoots, URL: "https://site.test/boots", Anchor: "winter boots"},
		{URL: "https://example.org/", Anchor: "example", External: true},
	}
	if err := s.PutLinks(ctx, postShoes, links); err != nil {
		t.Fatalf("PutLinks: %v", err)
	}
	ext := []*doc.ExternalItem{
		{ID: 1, SiteURL: "https://other.test", ItemID: 7, TitleText: "Snowshoe Guide", StemmedText: "snowsho guid"},
		{ID: 2, SiteURL: "https://other.test", ItemID: 8, TitleText: "Camping", StemmedText: "camp", Term: true},
		{ID: 3, SiteURL: "https://other.test", ItemID: 9, TitleText: "Tents", StemmedText: "tent"},
	}
	if err := s.PutExternalItems(ctx, ext); err != nil {
		t.Fatalf("PutExternalItems: %v", err)
	}
}

func runStoreSuite(t *testing.T, s Store) {
	seed(t, s)
	ctx := context.Background()

	t.Run("GetDocument", func(t *testing.T) {
		item, err := s.GetDocument(ctx, postBoots)
		if err != nil {
			t.Fatalf("GetDocument: %v", err)
		}
		if item.TitleText != "Winter Hiking Boots" || item.Slug != "winter-hiking-boots" {
			t.Errorf("unexpected item %+v", item)
		}
		if item.Content != "" {
			t.Errorf("metadata carries content %q", item.Content)
		}
		if !reflect.DeepEqual(item.Categories, []int64{3}) {
			t.Errorf("Categories = %v", item.Categories)
		}
		if !item.Published.Equal(day(2024, 1, 10)) {
			t.Errorf("Published = %v", item.Published)
		}
		if _, err := s.GetDocument(ctx, doc.Ref{ID: 99, Kind: doc.KindPost}); !errors.Is(err, apperrors.ErrDocumentNotFound) {
			t.Errorf("missing document error = %v", err)
		}
	})

	t.Run("GetDocuments keeps request order", func(t *testing.T) {
		items, err := s.GetDocuments(ctx, []doc.Ref{termHiking, {ID: 99, Kind: doc.KindPost}, postShoes})
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 2 || items[0].Ref() != termHiking || items[1].Ref() != postShoes {
			t.Fatalf("GetDocuments = %v", items)
		}
	})

	t.Run("GetContent", func(t *testing.T) {
		content, err := s.GetContent(ctx, postShoes)
		if err != nil {
			t.Fatal(err)
		}
		if content != "<p>Shoes built for the trail.</p>" {
			t.Errorf("content = %q", content)
		}
	})

	t.Run("QueryCandidateIDs", func(t *testing.T) {
		base := CandidateQuery{PostTypes: []string{"post", "page"}, Statuses: []string{"publish"}}
		tests := []struct {
			name string
			mod  func(q *CandidateQuery)
			want []int64
		}{
			{"published", func(*CandidateQuery) {}, []int64{13, 11, 10}},
			{"types", func(q *CandidateQuery) { q.PostTypes = []string{"page"} }, []int64{13}},
			{"age", func(q *CandidateQuery) { q.PublishedAfter = day(2020, 1, 1) }, []int64{11, 10}},
			{"excluded", func(q *CandidateQuery) { q.ExcludeIDs = []int64{11} }, []int64{13, 10}},
			{"category", func(q *CandidateQuery) { q.Categories = []int64{3} }, []int64{10}},
			{"ignored category", func(q *CandidateQuery) { q.IgnoredCategories = []int64{3} }, []int64{13, 11}},
			{"content", func(q *CandidateQuery) { q.ContentWords = []string{"HIKING", "nothing"} }, []int64{10}},
			{"content wildcard is literal", func(q *CandidateQuery) { q.ContentWords = []string{"b%s"} }, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				q := base
				tt.mod(&q)
				got, err := s.QueryCandidateIDs(ctx, q)
				if err != nil {
					t.Fatal(err)
				}
				if len(got) == 0 && len(tt.want) == 0 {
					return
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Terms", func(t *testing.T) {
		terms, err := s.Terms(ctx, []string{"category"})
		if err != nil {
			t.Fatal(err)
		}
		if len(terms) != 2 || terms[0].ID != 3 || terms[1].ID != 4 {
			t.Errorf("Terms = %v", terms)
		}
	})

	t.Run("keywords", func(t *testing.T) {
		kws, err := s.GetActiveKeywords(ctx, postBoots)
		if err != nil {
			t.Fatal(err)
		}
		if len(kws) != 1 || kws[0].Text != "winter boots" || kws[0].Owner != postBoots || !kws[0].Active {
			t.Fatalf("GetActiveKeywords = %+v", kws)
		}
		all, err := s.ActiveKeywordsFor(ctx, []doc.Ref{postBoots, postShoes})
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 1 || len(all[postBoots]) != 1 {
			t.Errorf("ActiveKeywordsFor = %v", all)
		}
	})

	t.Run("links", func(t *testing.T) {
		out, err := s.GetLinks(ctx, postShoes, Outbound)
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 2 || out[0].Anchor != "winter boots" || !out[1].External {
			t.Fatalf("outbound links = %+v", out)
		}
		refs, err := s.GetLinkedDocumentIDs(ctx, postShoes, Outbound)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(refs, []doc.Ref{postBoots}) {
			t.Errorf("outbound refs = %v", refs)
		}
		refs, err = s.GetLinkedDocumentIDs(ctx, postBoots, Inbound)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(refs, []doc.Ref{postShoes}) {
			t.Errorf("inbound refs = %v", refs)
		}
	})

	t.Run("external items", func(t *testing.T) {
		n, err := s.CountExternalItems(ctx)
		if err != nil || n != 3 {
			t.Fatalf("CountExternalItems = %d, %v", n, err)
		}
		page, err := s.ExternalItems(ctx, 1, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(page) != 1 || page[0].ID != 2 || !page[0].Term || page[0].StemmedText != "camp" {
			t.Errorf("ExternalItems(1, 1) = %+v", page)
		}
		rest, err := s.ExternalItems(ctx, 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(rest) != 2 {
			t.Errorf("ExternalItems(1, 0) returned %d items", len(rest))
		}
	})

	t.Run("replace", func(t *testing.T) {
		if err := s.PutKeywords(ctx, postBoots, []keywords.Keyword{{Text: "hiking boots", Source: keywords.SourceTarget, Active: true}}); err != nil {
			t.Fatal(err)
		}
		kws, _ := s.GetActiveKeywords(ctx, postBoots)
		if len(kws) != 1 || kws[0].Text != "hiking boots" {
			t.Errorf("keywords after replace = %+v", kws)
		}
		if err := s.PutLinks(ctx, postShoes, nil); err != nil {
			t.Fatal(err)
		}
		refs, _ := s.GetLinkedDocumentIDs(ctx, postBoots, Inbound)
		if len(refs) != 0 {
			t.Errorf("inbound refs after clearing links = %v", refs)
		}
	})

	t.Run("rejects documents without id", func(t *testing.T) {
		if err := s.PutDocument(ctx, &doc.Item{Kind: doc.KindPost}); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("PutDocument error = %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	runStoreSuite(t, s)
}

func TestBoltStore(t *testing.T) {
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "docs.bolt"))
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	runStoreSuite(t, s)
}

func TestPostgresStore(t *testing.T) {
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	client, err := postgres.New(context.Background(), config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "linksuggest_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "linksuggest"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	s := NewSQLStore(client.DB, DialectPostgres)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	for _, table := range []string{"documents", "document_categories", "keywords", "links", "external_items"} {
		if _, err := client.DB.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clearing %s: %v", table, err)
		}
	}
	runStoreSuite(t, s)
}

func TestRebind(t *testing.T) {
	s := &SQLStore{dialect: DialectPostgres}
	got := s.rebind("SELECT a FROM t WHERE b = ? AND c IN (?,?)")
	if want := "SELECT a FROM t WHERE b = $1 AND c IN ($2,$3)"; got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}
	lite := &SQLStore{dialect: DialectSQLite}
	if got := lite.rebind("x = ?"); got != "x = ?" {
		t.Errorf("sqlite rebind changed the query: %q", got)
	}
}

func TestLinkedRefs(t *testing.T) {
	links := []Link{
		{Source: postShoes, Target: postBoots},
		{Source: postShoes, Target: postBoots},
		{Source: postShoes, URL: "https://example.org", External: true},
		{Source: postShoes, Target: termHiking},
	}
	got := LinkedRefs(links, Outbound)
	if !reflect.DeepEqual(got, []doc.Ref{postBoots, termHiking}) {
		t.Errorf("LinkedRefs(outbound) = %v", got)
	}
	if got := LinkedRefs(links, Inbound); !reflect.DeepEqual(got, []doc.Ref{postShoes}) {
		t.Errorf("LinkedRefs(inbound) = %v", got)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
