// Package kafka wraps segmentio/kafka-go with the JSON event conventions
// used across the service: producers hash-partition on the event key so
// updates to one document stay ordered, and consumers commit offsets only
// after the handler succeeds, so a crashed handler replays the message.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quotelab/quotesearch/pkg/config"
)

// MessageHandler processes one Kafka message. Returning an error leaves
// the offset uncommitted; handlers decide whether a bad message is worth
// replaying or should be swallowed.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer pulls messages from one topic and feeds them to a handler.
type Consumer struct {
	reader *kafka.Reader
	handle MessageHandler
	log    *slog.Logger
}

// NewConsumer creates a Consumer for the given topic and handler, joining
// the configured consumer group at the latest offset.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1,
			MaxBytes:    10 << 20,
			MaxWait:     500 * time.Millisecond,
			StartOffset: kafka.LastOffset,
		}),
		handle: handler,
		log:    slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start runs the consume loop until ctx is cancelled. Fetch errors back
// off briefly rather than spinning against a down broker.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopping")
				return c.reader.Close()
			}
			c.log.Error("fetch failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return c.reader.Close()
			}
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	if err := c.handle(ctx, msg.Key, msg.Value); err != nil {
		// Left uncommitted: the message is redelivered after restart
		// or rebalance.
		c.log.Error("handler failed, offset not committed",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error("commit failed",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("decoding kafka message: %w", err)
	}
	return out, nil
}
