// Package kafka publishes app events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/eventstream"
)

const defaultTopic = "gemi.events"

// Publisher writes events to Kafka, keyed by event id.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of broker addresses.
	Brokers []string

	// Topic is the destination topic. Defaults to "gemi.events".
	Topic string
}

// NewPublisher creates a Kafka-backed event publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty, must be configured")
	}

	topic := c.Topic
	if topic == "" {
		topic = defaultTopic
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(c.Brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	logger.Info("kafka event publisher initialized",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", topic),
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishTurnPersisted emits a turn-persisted event.
func (p *Publisher) PublishTurnPersisted(ctx context.Context, event eventstream.TurnPersistedEvent) error {
	if event.Turn.ID == "" {
		return eventstream.ErrEmptyTurn
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("writing event to kafka: %w", err)
	}

	p.logger.Debug("published event",
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
	)

	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
