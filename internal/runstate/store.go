// Package runstate keeps the resumable state of suggestion runs: chunk
// cursors, accumulated suggestion snapshots and per-run derived caches, all
// with a bounded lifetime and partitioned by process key.
package runstate

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store is a TTL key-value store. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// MemoryStore is an in-process Store with per-entry expiry and LRU
// eviction once capacity is reached.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]*memoryEntry
	order    []string
	capacity int
	now      func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryStore returns a store holding at most capacity keys.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryStore{
		entries:  make(map[string]*memoryEntry),
		order:    make([]string, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return nil, false, nil
	}
	m.moveToEnd(key)
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, value, ttl)
	return nil
}

func (m *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.put(key, value, ttl)
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if _, ok := m.entries[k]; ok {
			delete(m.entries, k)
			m.removeFromOrder(k)
		}
	}
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	kept := m.order[:0]
	for _, k := range m.order {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			deleted++
			continue
		}
		kept = append(kept, k)
	}
	m.order = kept
	return deleted, nil
}

// Len returns the number of live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.entries {
		if _, ok := m.lookup(k); ok {
			n++
		}
	}
	return n
}

// lookup returns a live entry, dropping it if expired. Callers hold mu.
func (m *MemoryStore) lookup(key string) (*memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		m.removeFromOrder(key)
		return nil, false
	}
	return entry, true
}

func (m *MemoryStore) put(key string, value []byte, ttl time.Duration) {
	entry := &memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	if _, exists := m.entries[key]; exists {
		m.entries[key] = entry
		m.moveToEnd(key)
		return
	}
	if len(m.entries) >= m.capacity {
		m.evictOldest()
	}
	m.entries[key] = entry
	m.order = append(m.order, key)
}

func (m *MemoryStore) evictOldest() {
	if len(m.order) == 0 {
		return
	}
	oldest := m.order[0]
	m.order = m.order[1:]
	delete(m.entries, oldest)
}

func (m *MemoryStore) moveToEnd(key string) {
	m.removeFromOrder(key)
	m.order = append(m.order, key)
}

func (m *MemoryStore) removeFromOrder(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
