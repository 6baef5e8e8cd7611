// Package kafka carries directory analytics events over Kafka using
// segmentio/kafka-go. Events are JSON encoded, keyed for partition affinity
// and tagged with an event-type header.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

const typeHeader = "event-type"

// Message is a fetched record as seen by a MessageHandler. Type is empty
// when the producer set no event-type header.
type Message struct {
	Key   []byte
	Value []byte
	Type  string
	Time  time.Time
}

type MessageHandler func(ctx context.Context, msg Message) error

// ErrSkip tells the consumer to commit a message without retrying it.
// Handlers wrap it for records that can never be processed.
var ErrSkip = errors.New("skip message")

// Consumer reads a topic as part of the configured consumer group. A
// message is committed once its handler succeeds, returns ErrSkip, or has
// exhausted its retries.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})
	return &Consumer{
		reader:  r,
		handler: handler,
		retry: resilience.RetryConfig{
			MaxAttempts: 3,
			Backoff:     resilience.Backoff{Initial: 200 * time.Millisecond, Max: 2 * time.Second},
			Retryable:   func(err error) bool { return !errors.Is(err, ErrSkip) },
		},
		logger: slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx is cancelled. Consecutive fetch errors back off
// up to five seconds.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	backoff := resilience.Backoff{Initial: 100 * time.Millisecond, Max: 5 * time.Second}
	fetchFailures := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			fetchFailures++
			delay := backoff.Delay(fetchFailures)
			c.logger.Error("failed to fetch message", "error", err, "retry_in", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		fetchFailures = 0

		c.process(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	m := Message{Key: msg.Key, Value: msg.Value, Time: msg.Time}
	for _, h := range msg.Headers {
		if h.Key == typeHeader {
			m.Type = string(h.Value)
		}
	}
	err := resilience.Retry(ctx, "kafka-handle", c.retry, func() error {
		return c.handler(ctx, m)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrSkip):
		c.logger.Warn("message skipped",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"type", m.Type,
			"error", err,
		)
	default:
		c.logger.Error("message dropped after retries",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"type", m.Type,
			"error", err,
		)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T. Decode failures wrap
// ErrSkip.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w: %w", ErrSkip, err)
	}
	return result, nil
}
