package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
)

// Dialect selects placeholder syntax.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		kind SMALLINT NOT NULL,
		id BIGINT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		redirected BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (kind, id)
	)`,
	`CREATE TABLE IF NOT EXISTS document_categories (
		doc_id BIGINT NOT NULL,
		category_id BIGINT NOT NULL,
		PRIMARY KEY (doc_id, category_id)
	)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		owner_kind SMALLINT NOT NULL,
		owner_id BIGINT NOT NULL,
		position INTEGER NOT NULL,
		keyword_id BIGINT NOT NULL DEFAULT 0,
		text TEXT NOT NULL,
		stemmed TEXT NOT NULL DEFAULT '',
		word_count INTEGER NOT NULL DEFAULT 0,
		source SMALLINT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (owner_kind, owner_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		source_kind SMALLINT NOT NULL,
		source_id BIGINT NOT NULL,
		position INTEGER NOT NULL,
		target_kind SMALLINT NOT NULL DEFAULT 0,
		target_id BIGINT NOT NULL DEFAULT 0,
		url TEXT NOT NULL DEFAULT '',
		anchor TEXT NOT NULL DEFAULT '',
		external BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (source_kind, source_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS links_target_idx ON links (target_kind, target_id)`,
	`CREATE TABLE IF NOT EXISTS external_items (
		id BIGINT PRIMARY KEY,
		site_url TEXT NOT NULL DEFAULT '',
		item_id BIGINT NOT NULL DEFAULT 0,
		term BOOLEAN NOT NULL DEFAULT FALSE,
		title TEXT NOT NULL DEFAULT '',
		stemmed_title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT ''
	)`,
}

const docColumns = "kind, id, type, title, slug, url, format, status, language, published_at, redirected"

// SQLStore implements Store over database/sql for postgres and sqlite.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQLite opens (creating when needed) the sqlite database at path and
// migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite database %s: %w", path, err)
	}
	s := NewSQLStore(db, DialectSQLite)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables. It is idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating document store: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

// rebind rewrites ? placeholders for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func scanItem(rows *sql.Rows) (*doc.Item, error) {
	var (
		item doc.Item
		kind int
	)
	if err := rows.Scan(&kind, &item.ID, &item.Type, &item.TitleText, &item.Slug, &item.URL,
		&item.Format, &item.Status, &item.Language, &item.Published, &item.Redirected); err != nil {
		return nil, err
	}
	item.Kind = doc.Kind(kind)
	return &item, nil
}

func (s *SQLStore) GetDocument(ctx context.Context, ref doc.Ref) (*doc.Item, error) {
	items, err := s.GetDocuments(ctx, []doc.Ref{ref})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", ref, apperrors.ErrDocumentNotFound)
	}
	return items[0], nil
}

func (s *SQLStore) GetDocuments(ctx context.Context, refs []doc.Ref) ([]*doc.Item, error) {
	byKind := make(map[doc.Kind][]any)
	for _, ref := range refs {
		byKind[ref.Kind] = append(byKind[ref.Kind], ref.ID)
	}
	found := make(map[doc.Ref]*doc.Item, len(refs))
	var postIDs []any
	for kind, ids := range byKind {
		args := append([]any{int(kind)}, ids...)
		rows, err := s.query(ctx,
			"SELECT "+docColumns+" FROM documents WHERE kind = ? AND id IN ("+placeholders(len(ids))+")", args...)
		if err != nil {
			return nil, fmt.Errorf("querying documents: %w", err)
		}
		for rows.Next() {
			item, err := scanItem(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning document: %w", err)
			}
			found[item.Ref()] = item
			if item.Kind == doc.KindPost {
				postIDs = append(postIDs, item.ID)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating documents: %w", err)
		}
	}
	if err := s.loadCategories(ctx, found, postIDs); err != nil {
		return nil, err
	}

	out := make([]*doc.Item, 0, len(found))
	for _, ref := range refs {
		if item, ok := found[ref]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *SQLStore) loadCategories(ctx context.Context, items map[doc.Ref]*doc.Item, postIDs []any) error {
	if len(postIDs) == 0 {
		return nil
	}
	rows, err := s.query(ctx,
		"SELECT doc_id, category_id FROM document_categories WHERE doc_id IN ("+placeholders(len(postIDs))+") ORDER BY doc_id, category_id",
		postIDs...)
	if err != nil {
		return fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var docID, catID int64
		if err := rows.Scan(&docID, &catID); err != nil {
			return fmt.Errorf("scanning category: %w", err)
		}
		if item, ok := items[doc.Ref{ID: docID, Kind: doc.KindPost}]; ok {
			item.Categories = append(item.Categories, catID)
		}
	}
	return rows.Err()
}

func (s *SQLStore) GetContent(ctx context.Context, ref doc.Ref) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT content FROM documents WHERE kind = ? AND id = ?"),
		int(ref.Kind), ref.ID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", ref, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("querying content of %s: %w", ref, err)
	}
	return content, nil
}

// likePattern escapes w for a LIKE ... ESCAPE '\' match anywhere.
func likePattern(w string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(w)) + "%"
}

func (s *SQLStore) QueryCandidateIDs(ctx context.Context, q CandidateQuery) ([]int64, error) {
	where := []string{"kind = ?", "redirected = ?"}
	args := []any{int(doc.KindPost), false}
	addIn := func(clause string, vals []any) {
		where = append(where, fmt.Sprintf(clause, placeholders(len(vals))))
		args = append(args, vals...)
	}
	if len(q.PostTypes) > 0 {
		addIn("type IN (%s)", stringArgs(q.PostTypes))
	}
	if len(q.Statuses) > 0 {
		addIn("status IN (%s)", stringArgs(q.Statuses))
	}
	if len(q.ExcludeIDs) > 0 {
		addIn("id NOT IN (%s)", idArgs(q.ExcludeIDs))
	}
	if len(q.Categories) > 0 {
		addIn("id IN (SELECT doc_id FROM document_categories WHERE category_id IN (%s))", idArgs(q.Categories))
	}
	if len(q.IgnoredCategories) > 0 {
		addIn("id NOT IN (SELECT doc_id FROM document_categories WHERE category_id IN (%s))", idArgs(q.IgnoredCategories))
	}
	if !q.PublishedAfter.IsZero() {
		where = append(where, "published_at >= ?")
		args = append(args, q.PublishedAfter.UTC())
	}
	if q.Language != "" {
		where = append(where, "language = ?")
		args = append(args, q.Language)
	}
	if len(q.ContentWords) > 0 {
		likes := make([]string, len(q.ContentWords))
		for i, w := range q.ContentWords {
			likes[i] = `LOWER(content) LIKE ? ESCAPE '\'`
			args = append(args, likePattern(w))
		}
		where = append(where, "("+strings.Join(likes, " OR ")+")")
	}

	rows, err := s.query(ctx, "SELECT id FROM documents WHERE "+strings.Join(where, " AND ")+" ORDER BY id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("querying candidate ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) Terms(ctx context.Context, taxonomies []string) ([]*doc.Item, error) {
	if len(taxonomies) == 0 {
		return nil, nil
	}
	args := append([]any{int(doc.KindTerm)}, stringArgs(taxonomies)...)
	rows, err := s.query(ctx,
		"SELECT "+docColumns+" FROM documents WHERE kind = ? AND type IN ("+placeholders(len(taxonomies))+") ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
	}
	defer rows.Close()
	var out []*doc.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetActiveKeywords(ctx context.Context, ref doc.Ref) ([]keywords.Keyword, error) {
	all, err := s.ActiveKeywordsFor(ctx, []doc.Ref{ref})
	if err != nil {
		return nil, err
	}
	return all[ref], nil
}

func (s *SQLStore) ActiveKeywordsFor(ctx context.Context, refs []doc.Ref) (map[doc.Ref][]keywords.Keyword, error) {
	out := make(map[doc.Ref][]keywords.Keyword)
	byKind := make(map[doc.Kind][]any)
	for _, ref := range refs {
		byKind[ref.Kind] = append(byKind[ref.Kind], ref.ID)
	}
	for kind, ids := range byKind {
		args := append([]any{int(kind), true}, ids...)
		rows, err := s.query(ctx,
			"SELECT owner_id, keyword_id, text, stemmed, word_count, source FROM keywords WHERE owner_kind = ? AND active = ? AND owner_id IN ("+
				placeholders(len(ids))+") ORDER BY owner_id, position", args...)
		if err != nil {
			return nil, fmt.Errorf("querying keywords: %w", err)
		}
		for rows.Next() {
			var (
				k      keywords.Keyword
				source int
			)
			if err := rows.Scan(&k.Owner.ID, &k.ID, &k.Text, &k.Stemmed, &k.WordCount, &source); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning keyword: %w", err)
			}
			k.Owner.Kind = kind
			k.Source = keywords.Source(source)
			k.Active = true
			out[k.Owner] = append(out[k.Owner], k)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating keywords: %w", err)
		}
	}
	return out, nil
}

func (s *SQLStore) GetLinkedDocumentIDs(ctx context.Context, ref doc.Ref, dir Direction) ([]doc.Ref, error) {
	links, err := s.GetLinks(ctx, ref, dir)
	if err != nil {
		return nil, err
	}
	return LinkedRefs(links, dir), nil
}

func (s *SQLStore) GetLinks(ctx context.Context, ref doc.Ref, dir Direction) ([]Link, error) {
	query := "SELECT source_kind, source_id, target_kind, target_id, url, anchor, external FROM links "
	args := []any{int(ref.Kind), ref.ID}
	if dir == Inbound {
		query += "WHERE target_kind = ? AND target_id = ? AND external = ? ORDER BY source_id, position"
		args = append(args, false)
	} else {
		query += "WHERE source_kind = ? AND source_id = ? ORDER BY position"
	}
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s links of %s: %w", dir, ref, err)
	}
	defer rows.Close()
	var out []Link
	for rows.Next() {
		var (
			l                      Link
			sourceKind, targetKind int
		)
		if err := rows.Scan(&sourceKind, &l.Source.ID, &targetKind, &l.Target.ID, &l.URL, &l.Anchor, &l.External); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		l.Source.Kind = doc.Kind(sourceKind)
		l.Target.Kind = doc.Kind(targetKind)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLStore) ExternalItems(ctx context.Context, offset, limit int) ([]*doc.ExternalItem, error) {
	query := "SELECT id, site_url, item_id, term, title, stemmed_title, url FROM external_items ORDER BY id"
	var args []any
	switch {
	case limit > 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	case offset > 0 && s.dialect == DialectSQLite:
		query += " LIMIT -1 OFFSET ?"
		args = append(args, offset)
	case offset > 0:
		query += " OFFSET ?"
		args = append(args, offset)
	}
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying external items: %w", err)
	}
	defer rows.Close()
	var out []*doc.ExternalItem
	for rows.Next() {
		var e doc.ExternalItem
		if err := rows.Scan(&e.ID, &e.SiteURL, &e.ItemID, &e.Term, &e.TitleText, &e.StemmedText, &e.URL); err != nil {
			return nil, fmt.Errorf("scanning external item: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountExternalItems(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM external_items").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting external items: %w", err)
	}
	return n, nil
}

func (s *SQLStore) PutDocument(ctx context.Context, item *doc.Item) error {
	if item == nil || item.ID == 0 {
		return fmt.Errorf("put document: %w", apperrors.ErrInvalidInput)
	}
	published := item.Published
	if published.IsZero() {
		published = time.Now()
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO documents
			(kind, id, type, title, slug, url, content, format, status, language, published_at, redirected)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (kind, id) DO UPDATE SET
			type = excluded.type, title = excluded.title, slug = excluded.slug, url = excluded.url,
			content = excluded.content, format = excluded.format, status = excluded.status,
			language = excluded.language, published_at = excluded.published_at, redirected = excluded.redirected`),
			int(item.Kind), item.ID, item.Type, item.TitleText, item.Slug, item.URL, item.Content,
			item.Format, item.Status, item.Language, published.UTC(), item.Redirected)
		if err != nil {
			return fmt.Errorf("upserting document %s: %w", item.Ref(), err)
		}
		if item.Kind != doc.KindPost {
			return nil
		}
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM document_categories WHERE doc_id = ?"), item.ID); err != nil {
			return fmt.Errorf("clearing categories of %s: %w", item.Ref(), err)
		}
		for _, cat := range item.Categories {
			if _, err := tx.ExecContext(ctx, s.rebind(
				"INSERT INTO document_categories (doc_id, category_id) VALUES (?, ?) ON CONFLICT DO NOTHING"),
				item.ID, cat); err != nil {
				return fmt.Errorf("inserting category %d of %s: %w", cat, item.Ref(), err)
			}
		}
		return nil
	})
}

func (s *SQLStore) PutKeywords(ctx context.Context, owner doc.Ref, kws []keywords.Keyword) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM keywords WHERE owner_kind = ? AND owner_id = ?"),
			int(owner.Kind), owner.ID); err != nil {
			return fmt.Errorf("clearing keywords of %s: %w", owner, err)
		}
		for i, k := range kws {
			if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO keywords
				(owner_kind, owner_id, position, keyword_id, text, stemmed, word_count, source, active)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				int(owner.Kind), owner.ID, i, k.ID, k.Text, k.Stemmed, k.WordCount, int(k.Source), k.Active); err != nil {
				return fmt.Errorf("inserting keyword %q of %s: %w", k.Text, owner, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) PutLinks(ctx context.Context, source doc.Ref, links []Link) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM links WHERE source_kind = ? AND source_id = ?"),
			int(source.Kind), source.ID); err != nil {
			return fmt.Errorf("clearing links of %s: %w", source, err)
		}
		for i, l := range links {
			if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO links
				(source_kind, source_id, position, target_kind, target_id, url, anchor, external)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				int(source.Kind), source.ID, i, int(l.Target.Kind), l.Target.ID, l.URL, l.Anchor, l.External); err != nil {
				return fmt.Errorf("inserting link %d of %s: %w", i, source, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) PutExternalItems(ctx context.Context, items []*doc.ExternalItem) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range items {
			if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO external_items
				(id, site_url, item_id, term, title, stemmed_title, url)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
				site_url = excluded.site_url, item_id = excluded.item_id, term = excluded.term,
				title = excluded.title, stemmed_title = excluded.stemmed_title, url = excluded.url`),
				e.ID, e.SiteURL, e.ItemID, e.Term, e.TitleText, e.StemmedText, e.URL); err != nil {
				return fmt.Errorf("upserting external item %d: %w", e.ID, err)
			}
		}
		return nil
	})
}

func stringArgs(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func idArgs(vals []int64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
