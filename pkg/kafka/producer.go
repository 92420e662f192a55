package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/config"
)

// TypeHeader carries Event.Type so consumers can route without decoding.
const TypeHeader = "event-type"

// Event is one message. Key is the process key, so every message of a run
// lands on the same partition and keeps its order. Value is JSON encoded.
type Event struct {
	Key   string
	Type  string
	Value any
}

func (e Event) message() (kafka.Message, error) {
	value, err := json.Marshal(e.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %s event %s: %w", e.Type, e.Key, err)
	}
	msg := kafka.Message{Key: []byte(e.Key), Value: value}
	if e.Type != "" {
		msg.Headers = []kafka.Header{{Key: TypeHeader, Value: []byte(e.Type)}}
	}
	return msg, nil
}

// Producer writes events to one topic and waits for every in-sync replica.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireAll,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes a single event.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch writes events in one call. Nothing is written when any event
// fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(events))
	for i, e := range events {
		msg, err := e.message()
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("publish failed", "count", len(msgs), "error", err)
		return fmt.Errorf("publishing to %s: %w", p.writer.Topic, err)
	}
	p.logger.Debug("published", "count", len(msgs))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
