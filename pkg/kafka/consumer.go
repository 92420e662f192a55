// Package kafka carries run requests from the API server to workers and run
// events out to analytics consumers, on top of segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/resilience"
)

// MessageHandler processes one message. A returned error is retried; a
// message that still fails is logged and committed so it cannot block the
// partition.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer reads a topic as part of the configured consumer group.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

// NewConsumer starts new groups at the oldest retained offset so requests
// queued before the first worker came up are still served.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1,
			MaxBytes:    1 << 20,
			MaxWait:     time.Second,
			StartOffset: kafka.FirstOffset,
		}),
		handler: handler,
		retry:   resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second},
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping")
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			continue
		}
		c.process(ctx, msg)
		if ctx.Err() != nil {
			// Left uncommitted so the group redelivers it.
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
	if t := header(msg, TypeHeader); t != "" {
		log = log.With("type", t)
	}
	log.Debug("message received", "value_size", len(msg.Value))

	err := resilience.Retry(ctx, "kafka message", c.retry, func() error {
		return c.handler(ctx, msg.Key, msg.Value)
	})
	if err != nil && ctx.Err() == nil {
		log.Error("message skipped after retries", "error", err)
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
