package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
)

var (
	bucketDocs     = []byte("docs")
	bucketContent  = []byte("content")
	bucketKeywords = []byte("keywords")
	bucketLinks    = []byte("links")
	bucketExternal = []byte("external")
)

// BoltStore is an embedded single-file Store for the CLI. Filtering happens
// in Go over a full scan of the docs bucket.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketContent, bucketKeywords, bucketLinks, bucketExternal} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

type docRecord struct {
	ID         int64     `json:"id"`
	Kind       doc.Kind  `json:"kind"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	URL        string    `json:"url"`
	Format     string    `json:"format,omitempty"`
	Status     string    `json:"status"`
	Language   string    `json:"language,omitempty"`
	Published  time.Time `json:"published"`
	Categories []int64   `json:"categories,omitempty"`
	Redirected bool      `json:"redirected,omitempty"`
}

func (r docRecord) item() *doc.Item {
	return &doc.Item{
		ID:         r.ID,
		Kind:       r.Kind,
		TitleText:  r.Title,
		Slug:       r.Slug,
		URL:        r.URL,
		Format:     r.Format,
		Type:       r.Type,
		Status:     r.Status,
		Language:   r.Language,
		Published:  r.Published,
		Categories: r.Categories,
		Redirected: r.Redirected,
	}
}

func refKey(ref doc.Ref) []byte {
	k := make([]byte, 9)
	k[0] = byte(ref.Kind)
	binary.BigEndian.PutUint64(k[1:], uint64(ref.ID))
	return k
}

func idKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func getJSON(b *bbolt.Bucket, key []byte, v any) (bool, error) {
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func (s *BoltStore) GetDocument(ctx context.Context, ref doc.Ref) (*doc.Item, error) {
	items, err := s.GetDocuments(ctx, []doc.Ref{ref})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", ref, apperrors.ErrDocumentNotFound)
	}
	return items[0], nil
}

func (s *BoltStore) GetDocuments(_ context.Context, refs []doc.Ref) ([]*doc.Item, error) {
	var out []*doc.Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		for _, ref := range refs {
			var rec docRecord
			ok, err := getJSON(b, refKey(ref), &rec)
			if err != nil {
				return fmt.Errorf("decoding document %s: %w", ref, err)
			}
			if ok {
				out = append(out, rec.item())
			}
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) GetContent(_ context.Context, ref doc.Ref) (string, error) {
	var content string
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := refKey(ref)
		if tx.Bucket(bucketDocs).Get(key) == nil {
			return fmt.Errorf("%s: %w", ref, apperrors.ErrDocumentNotFound)
		}
		content = string(tx.Bucket(bucketContent).Get(key))
		return nil
	})
	return content, err
}

func (s *BoltStore) QueryCandidateIDs(_ context.Context, q CandidateQuery) ([]int64, error) {
	var ids []int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		contents := tx.Bucket(bucketContent)
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			if doc.Kind(k[0]) != doc.KindPost {
				return nil
			}
			var rec docRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding document: %w", err)
			}
			var content string
			if len(q.ContentWords) > 0 {
				content = string(contents.Get(k))
			}
			if q.match(rec.item(), content) {
				ids = append(ids, rec.ID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids, nil
}

func (s *BoltStore) Terms(_ context.Context, taxonomies []string) ([]*doc.Item, error) {
	var out []*doc.Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketDocs).Cursor()
		prefix := []byte{byte(doc.KindTerm)}
		for k, v := c.Seek(prefix); k != nil && k[0] == prefix[0]; k, v = c.Next() {
			var rec docRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding term: %w", err)
			}
			if containsString(taxonomies, rec.Type) {
				out = append(out, rec.item())
			}
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) GetActiveKeywords(ctx context.Context, ref doc.Ref) ([]keywords.Keyword, error) {
	all, err := s.ActiveKeywordsFor(ctx, []doc.Ref{ref})
	if err != nil {
		return nil, err
	}
	return all[ref], nil
}

func (s *BoltStore) ActiveKeywordsFor(_ context.Context, refs []doc.Ref) (map[doc.Ref][]keywords.Keyword, error) {
	out := make(map[doc.Ref][]keywords.Keyword)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKeywords)
		for _, ref := range refs {
			var kws []keywords.Keyword
			if _, err := getJSON(b, refKey(ref), &kws); err != nil {
				return fmt.Errorf("decoding keywords of %s: %w", ref, err)
			}
			if active := activeOnly(kws); len(active) > 0 {
				out[ref] = active
			}
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) GetLinkedDocumentIDs(ctx context.Context, ref doc.Ref, dir Direction) ([]doc.Ref, error) {
	links, err := s.GetLinks(ctx, ref, dir)
	if err != nil {
		return nil, err
	}
	return LinkedRefs(links, dir), nil
}

func (s *BoltStore) GetLinks(_ context.Context, ref doc.Ref, dir Direction) ([]Link, error) {
	var out []Link
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLinks)
		if dir == Outbound {
			_, err := getJSON(b, refKey(ref), &out)
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			var links []Link
			if err := json.Unmarshal(v, &links); err != nil {
				return fmt.Errorf("decoding links: %w", err)
			}
			for _, l := range links {
				if !l.External && l.Target == ref {
					out = append(out, l)
				}
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) ExternalItems(_ context.Context, offset, limit int) ([]*doc.ExternalItem, error) {
	var all []*doc.ExternalItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketExternal).ForEach(func(_, v []byte) error {
			var e doc.ExternalItem
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decoding external item: %w", err)
			}
			all = append(all, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return page(all, offset, limit), nil
}

func (s *BoltStore) CountExternalItems(context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketExternal).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) PutDocument(_ context.Context, item *doc.Item) error {
	if item == nil || item.ID == 0 {
		return fmt.Errorf("put document: %w", apperrors.ErrInvalidInput)
	}
	rec := docRecord{
		ID:         item.ID,
		Kind:       item.Kind,
		Type:       item.Type,
		Title:      item.TitleText,
		Slug:       item.Slug,
		URL:        item.URL,
		Format:     item.Format,
		Status:     item.Status,
		Language:   item.Language,
		Published:  item.Published,
		Categories: item.Categories,
		Redirected: item.Redirected,
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := refKey(item.Ref())
		if err := putJSON(tx.Bucket(bucketDocs), key, rec); err != nil {
			return err
		}
		return tx.Bucket(bucketContent).Put(key, []byte(item.Content))
	})
}

func (s *BoltStore) PutKeywords(_ context.Context, owner doc.Ref, kws []keywords.Keyword) error {
	cp := make([]keywords.Keyword, len(kws))
	for i, k := range kws {
		k.Owner = owner
		cp[i] = k
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(bucketKeywords), refKey(owner), cp)
	})
}

func (s *BoltStore) PutLinks(_ context.Context, source doc.Ref, links []Link) error {
	cp := make([]Link, len(links))
	for i, l := range links {
		l.Source = source
		cp[i] = l
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(bucketLinks), refKey(source), cp)
	})
}

func (s *BoltStore) PutExternalItems(_ context.Context, items []*doc.ExternalItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketExternal)
		for _, e := range items {
			if err := putJSON(b, idKey(e.ID), e); err != nil {
				return fmt.Errorf("storing external item %d: %w", e.ID, err)
			}
		}
		return nil
	})
}
