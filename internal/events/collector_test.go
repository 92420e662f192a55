package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakePublisher) published() []kafka.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []kafka.Event
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorFlush(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 10, time.Hour)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	c.Track(RunEvent{Type: TypeRunStarted, ProcessKey: "abc", Mode: "outbound"})
	c.Track(RunEvent{Type: TypeRunCompleted, ProcessKey: "abc", Mode: "outbound"})
	if c.BufferLen() != 2 {
		t.Fatalf("BufferLen() = %d, want 2", c.BufferLen())
	}

	c.Flush(context.Background())
	got := pub.published()
	if len(got) != 2 {
		t.Fatalf("published %d events, want 2", len(got))
	}
	ev := got[0].Value.(RunEvent)
	if got[0].Key != "abc" {
		t.Errorf("key = %q, want process key", got[0].Key)
	}
	if ev.ID == "" {
		t.Error("event id not assigned")
	}
	if !ev.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", ev.Timestamp, fixed)
	}
	if c.BufferLen() != 0 {
		t.Errorf("buffer not emptied: %d", c.BufferLen())
	}
}

func TestCollectorRequeuesOnFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 2, time.Hour)

	c.mu.Lock()
	for i := 0; i < 7; i++ {
		c.buffer = append(c.buffer, kafka.Event{Key: "k", Value: RunEvent{Processed: i}})
	}
	c.mu.Unlock()

	c.Flush(context.Background())
	if got := c.BufferLen(); got != 6 {
		t.Errorf("BufferLen() after failed flush = %d, want 6", got)
	}
}

func TestCollectorFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.Track(RunEvent{Type: TypeChunkProcessed, ProcessKey: "k"})
	cancel()
	c.Close()

	if len(pub.published()) != 1 {
		t.Errorf("published %d events on shutdown, want 1", len(pub.published()))
	}
}
