package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
)

// MemoryStore keeps everything in maps. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[doc.Ref]*doc.Item
	content  map[doc.Ref]string
	keywords map[doc.Ref][]keywords.Keyword
	links    map[doc.Ref][]Link
	external map[int64]*doc.ExternalItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[doc.Ref]*doc.Item),
		content:  make(map[doc.Ref]string),
		keywords: make(map[doc.Ref][]keywords.Keyword),
		links:    make(map[doc.Ref][]Link),
		external: make(map[int64]*doc.ExternalItem),
	}
}

func (s *MemoryStore) GetDocument(_ context.Context, ref doc.Ref) (*doc.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[ref]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, apperrors.ErrDocumentNotFound)
	}
	return metadata(item), nil
}

func (s *MemoryStore) GetDocuments(_ context.Context, refs []doc.Ref) ([]*doc.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*doc.Item, 0, len(refs))
	for _, ref := range refs {
		if item, ok := s.items[ref]; ok {
			out = append(out, metadata(item))
		}
	}
	return out, nil
}

func (s *MemoryStore) GetContent(_ context.Context, ref doc.Ref) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.items[ref]; !ok {
		return "", fmt.Errorf("%s: %w", ref, apperrors.ErrDocumentNotFound)
	}
	return s.content[ref], nil
}

func (s *MemoryStore) QueryCandidateIDs(_ context.Context, q CandidateQuery) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for ref, item := range s.items {
		if q.match(item, s.content[ref]) {
			ids = append(ids, item.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids, nil
}

func (s *MemoryStore) Terms(_ context.Context, taxonomies []string) ([]*doc.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*doc.Item
	for _, item := range s.items {
		if item.Kind == doc.KindTerm && containsString(taxonomies, item.Type) {
			out = append(out, metadata(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetActiveKeywords(_ context.Context, ref doc.Ref) ([]keywords.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeOnly(s.keywords[ref]), nil
}

func (s *MemoryStore) ActiveKeywordsFor(_ context.Context, refs []doc.Ref) (map[doc.Ref][]keywords.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[doc.Ref][]keywords.Keyword)
	for _, ref := range refs {
		if kws := activeOnly(s.keywords[ref]); len(kws) > 0 {
			out[ref] = kws
		}
	}
	return out, nil
}

func (s *MemoryStore) GetLinkedDocumentIDs(ctx context.Context, ref doc.Ref, dir Direction) ([]doc.Ref, error) {
	links, err := s.GetLinks(ctx, ref, dir)
	if err != nil {
		return nil, err
	}
	return LinkedRefs(links, dir), nil
}

func (s *MemoryStore) GetLinks(_ context.Context, ref doc.Ref, dir Direction) ([]Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if dir == Outbound {
		return append([]Link(nil), s.links[ref]...), nil
	}
	var out []Link
	for _, links := range s.links {
		for _, l := range links {
			if !l.External && l.Target == ref {
				out = append(out, l)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Source.ID < out[j].Source.ID })
	return out, nil
}

func (s *MemoryStore) ExternalItems(_ context.Context, offset, limit int) ([]*doc.ExternalItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*doc.ExternalItem, 0, len(s.external))
	for _, e := range s.external {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), nil
}

func (s *MemoryStore) CountExternalItems(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.external), nil
}

func (s *MemoryStore) PutDocument(_ context.Context, item *doc.Item) error {
	if item == nil || item.ID == 0 {
		return fmt.Errorf("put document: %w", apperrors.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := item.Ref()
	s.items[ref] = metadata(item)
	s.content[ref] = item.Content
	return nil
}

func (s *MemoryStore) PutKeywords(_ context.Context, owner doc.Ref, kws []keywords.Keyword) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]keywords.Keyword, len(kws))
	for i, k := range kws {
		k.Owner = owner
		cp[i] = k
	}
	s.keywords[owner] = cp
	return nil
}

func (s *MemoryStore) PutLinks(_ context.Context, source doc.Ref, links []Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Link, len(links))
	for i, l := range links {
		l.Source = source
		cp[i] = l
	}
	s.links[source] = cp
	return nil
}

func (s *MemoryStore) PutExternalItems(_ context.Context, items []*doc.ExternalItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range items {
		cp := *e
		s.external[e.ID] = &cp
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// metadata copies item without its content.
func metadata(item *doc.Item) *doc.Item {
	cp := *item
	cp.Content = ""
	cp.Categories = append([]int64(nil), item.Categories...)
	return &cp
}

func activeOnly(kws []keywords.Keyword) []keywords.Keyword {
	var out []keywords.Keyword
	for _, k := range kws {
		if k.Active {
			out = append(out, k)
		}
	}
	return out
}

func page[T any](all []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
