package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/kafka"
)

// Publisher is the part of kafka.Producer the collector needs.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector accumulates run events and flushes them to Kafka either when
// the batch reaches a configurable size or after a time interval.
type Collector struct {
	publisher     Publisher
	mu            sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
	done          chan struct{}
}

// NewCollector creates a Collector that flushes when the buffer reaches
// batchSize events or after flushInterval, whichever comes first.
func NewCollector(publisher Publisher, batchSize int, flushInterval time.Duration) *Collector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		now:           time.Now,
		logger:        slog.Default().With("component", "run-events"),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop, which runs until ctx is
// cancelled.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.Flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("run event collector started",
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track buffers event, filling in its id and timestamp. Reaching the batch
// size triggers a flush in the background.
func (c *Collector) Track(event RunEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now().UTC()
	}

	c.mu.Lock()
	c.buffer = append(c.buffer, kafka.Event{Key: event.ProcessKey, Type: string(event.Type), Value: event})
	shouldFlush := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if shouldFlush {
		go c.Flush(context.Background())
	}
}

// Close waits for the background flush loop to finish.
func (c *Collector) Close() {
	<-c.done
}

// BufferLen returns the current number of buffered events.
func (c *Collector) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// Flush publishes the buffered events. Failed events are re-queued, keeping
// at most three batches.
func (c *Collector) Flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]kafka.Event, 0, c.batchSize)
	c.mu.Unlock()

	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("run event flush failed",
			"batch_size", len(batch),
			"error", err,
		)
		c.mu.Lock()
		c.buffer = append(batch, c.buffer...)
		if limit := c.batchSize * 3; len(c.buffer) > limit {
			dropped := len(c.buffer) - limit
			c.buffer = c.buffer[:limit]
			c.logger.Warn("run event buffer overflow, events dropped", "dropped", dropped)
		}
		c.mu.Unlock()
		return
	}

	c.logger.Debug("run events flushed", "events", len(batch))
}
