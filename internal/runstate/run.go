package runstate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "ls:run:"

// Mode names the kind of run a process key belongs to.
type Mode string

const (
	ModeOutbound Mode = "outbound"
	ModeInbound  Mode = "inbound"
	ModeExternal Mode = "external"
)

// State is the cursor of a run. Epoch counts committed chunk calls and only
// ever grows while the run lives. Suggested counts the phrases with
// suggestions accumulated so far.
type State struct {
	Mode      Mode      `msgpack:"mode"`
	Epoch     int64     `msgpack:"epoch"`
	Count     int       `msgpack:"count"`
	Total     int       `msgpack:"total"`
	Processed int       `msgpack:"processed"`
	LastID    int64     `msgpack:"last_id"`
	Suggested int       `msgpack:"suggested"`
	Completed bool      `msgpack:"completed"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

// Stale reports whether a chunk call resuming from processed has already
// been superseded by a later commit.
func (s State) Stale(processed int) bool {
	return processed < s.Processed
}

// Options bound the lifetime of run entries.
type Options struct {
	// SnapshotTTL applies to cursors and accumulated suggestions.
	SnapshotTTL time.Duration
	// CacheTTL applies to derived caches such as keyword sets.
	CacheTTL time.Duration
	// LockTTL bounds how long a crashed chunk call can block its run.
	LockTTL time.Duration
}

// Manager hands out Run handles sharing one store.
type Manager struct {
	store  Store
	opts   Options
	group  singleflight.Group
	logger *slog.Logger
}

func NewManager(store Store, opts Options) *Manager {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = 15 * time.Minute
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Minute
	}
	return &Manager{
		store:  store,
		opts:   opts,
		logger: slog.Default().With("component", "runstate"),
	}
}

// Run returns the handle for processKey. It does not touch the store.
func (m *Manager) Run(processKey string) *Run {
	return &Run{m: m, key: processKey}
}

// Run is the state of one suggestion run.
type Run struct {
	m   *Manager
	key string
}

// Key returns the process key.
func (r *Run) Key() string { return r.key }

func (r *Run) entry(name string) string {
	return keyPrefix + r.key + ":" + name
}

func (r *Run) cacheEntry(name string) string {
	return r.entry("cache:" + name)
}

func (r *Run) load(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := r.m.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := Decompress(data, v); err != nil {
		r.m.logger.Warn("discarding malformed run entry", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (r *Run) save(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := Compress(v)
	if err != nil {
		return err
	}
	if err := r.m.store.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Lock takes the per-run advisory lock for one chunk call. A run already
// locked by another call yields ErrStaleChunk.
func (r *Run) Lock(ctx context.Context) (func(), error) {
	key := r.entry("lock")
	ok, err := r.m.store.SetNX(ctx, key, []byte(time.Now().UTC().Format(time.RFC3339Nano)), r.m.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("locking run %s: %w", r.key, err)
	}
	if !ok {
		return nil, apperrors.ErrStaleChunk
	}
	return func() {
		if err := r.m.store.Delete(context.WithoutCancel(ctx), key); err != nil {
			r.m.logger.Warn("releasing run lock failed", "process_key", r.key, "error", err)
		}
	}, nil
}

// State returns the run cursor and whether the run exists.
func (r *Run) State(ctx context.Context) (State, bool, error) {
	var s State
	ok, err := r.load(ctx, r.entry("state"), &s)
	return s, ok, err
}

// Commit stores s as the new cursor, advancing its epoch.
func (r *Run) Commit(ctx context.Context, s State) (State, error) {
	s.Epoch++
	s.UpdatedAt = time.Now().UTC()
	return s, r.save(ctx, r.entry("state"), s, r.m.opts.SnapshotTTL)
}

// Batches returns the outbound and external chunk snapshots accumulated so
// far. A malformed snapshot reads as empty.
func (r *Run) Batches(ctx context.Context) ([][]*suggest.Phrase, error) {
	var batches [][]*suggest.Phrase
	_, err := r.load(ctx, r.entry("snapshot"), &batches)
	return batches, err
}

// AppendBatches adds chunk snapshots to the accumulated ones.
func (r *Run) AppendBatches(ctx context.Context, batches ...[]*suggest.Phrase) error {
	if len(batches) == 0 {
		return nil
	}
	stored, err := r.Batches(ctx)
	if err != nil {
		return err
	}
	return r.save(ctx, r.entry("snapshot"), append(stored, batches...), r.m.opts.SnapshotTTL)
}

// Phrases returns the inbound phrases accumulated so far.
func (r *Run) Phrases(ctx context.Context) ([]*suggest.Phrase, error) {
	var phrases []*suggest.Phrase
	_, err := r.load(ctx, r.entry("inbound"), &phrases)
	return phrases, err
}

// AppendPhrases adds inbound phrases to the accumulated ones. The entry is
// rewritten even when phrases is empty so its lifetime is refreshed.
func (r *Run) AppendPhrases(ctx context.Context, phrases []*suggest.Phrase) error {
	stored, err := r.Phrases(ctx)
	if err != nil {
		return err
	}
	return r.save(ctx, r.entry("inbound"), append(stored, phrases...), r.m.opts.SnapshotTTL)
}

// Remember returns the cached value called name, computing and storing it
// on a miss. Concurrent misses for the same run and name share one
// computation.
func Remember[T any](ctx context.Context, r *Run, name string, compute func(context.Context) (T, error)) (T, error) {
	key := r.cacheEntry(name)
	var cached T
	if ok, err := r.load(ctx, key, &cached); err == nil && ok {
		return cached, nil
	} else if err != nil {
		r.m.logger.Warn("run cache read failed, recomputing", "key", key, "error", err)
	}

	val, err, _ := r.m.group.Do(key, func() (any, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := r.save(ctx, key, v, r.m.opts.CacheTTL); err != nil {
			r.m.logger.Warn("run cache write failed", "key", key, "error", err)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return val.(T), nil
}

// Put replaces the cached value called name.
func Put[T any](ctx context.Context, r *Run, name string, v T) error {
	return r.save(ctx, r.cacheEntry(name), v, r.m.opts.CacheTTL)
}

// PurgeCaches removes every derived cache of the run, keeping its cursor
// and accumulated suggestions.
func (r *Run) PurgeCaches(ctx context.Context) error {
	n, err := r.m.store.DeletePrefix(ctx, r.entry("cache:"))
	if err != nil {
		return fmt.Errorf("purging caches of run %s: %w", r.key, err)
	}
	r.m.logger.Debug("run caches purged", "process_key", r.key, "keys", n)
	return nil
}

// Reset drops the cursor, the accumulated suggestions and the caches of the
// run so a new run can reuse the key. The lock is kept.
func (r *Run) Reset(ctx context.Context) error {
	if err := r.m.store.Delete(ctx, r.entry("state"), r.entry("snapshot"), r.entry("inbound")); err != nil {
		return fmt.Errorf("resetting run %s: %w", r.key, err)
	}
	return r.PurgeCaches(ctx)
}

// Purge removes everything stored for the run.
func (r *Run) Purge(ctx context.Context) error {
	n, err := r.m.store.DeletePrefix(ctx, keyPrefix+r.key+":")
	if err != nil {
		return fmt.Errorf("purging run %s: %w", r.key, err)
	}
	r.m.logger.Debug("run purged", "process_key", r.key, "keys", n)
	return nil
}
