package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/health"
	"github.com/segmentio/kafka-go"
)

// Event is one record to publish. Key picks the partition, Type becomes the
// event-type header and Value is JSON encoded.
type Event struct {
	Key   string
	Type  string
	Value any
}

// Producer writes events to a single topic. Writes are synchronous and
// acknowledged by the partition leader.
type Producer struct {
	writer  *kafka.Writer
	brokers []string
	logger  *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           50 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		writer:  w,
		brokers: cfg.Brokers,
		logger:  slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

func encode(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshaling %s event: %w", e.Type, err)
	}
	msg := kafka.Message{Key: []byte(e.Key), Value: value, Time: time.Now()}
	if e.Type != "" {
		msg.Headers = []kafka.Header{{Key: typeHeader, Value: []byte(e.Type)}}
	}
	return msg, nil
}

// PublishBatch writes events in one call. An event that cannot be encoded
// fails the whole batch before anything is written.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	messages := make([]kafka.Message, len(events))
	for i, e := range events {
		msg, err := encode(e)
		if err != nil {
			return err
		}
		messages[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("publishing %d events: %w", len(messages), err)
	}
	p.logger.Debug("batch published", "count", len(messages))
	return nil
}

// HealthCheck dials the first reachable broker. Analytics is optional for
// the directory, so callers decide whether a failure is down or degraded.
func (p *Producer) HealthCheck(degraded bool) health.Check {
	return BrokerCheck(p.brokers, degraded)
}

// BrokerCheck reports whether any of brokers accepts a connection.
func BrokerCheck(brokers []string, degraded bool) health.Check {
	ping := func(ctx context.Context) error {
		var lastErr error
		for _, addr := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", addr)
			if err != nil {
				lastErr = err
				continue
			}
			_, err = conn.Brokers()
			conn.Close()
			if err == nil {
				return nil
			}
			lastErr = err
		}
		if lastErr == nil {
			return fmt.Errorf("no kafka brokers configured")
		}
		return lastErr
	}
	if degraded {
		return health.DegradedCheck(ping)
	}
	return health.PingCheck(ping)
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}
