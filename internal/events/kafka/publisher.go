package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/pkg/logger"
)

// Publisher emits terminal-state transaction events to a Kafka topic. Messages
// are keyed by transaction ID so redeliveries of the same transaction land on
// the same partition.
type Publisher struct {
	writer *kafka.Writer
}

var _ domain.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a Kafka event publisher
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Publish writes a single transaction event
func (p *Publisher) Publish(event *domain.TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(event.TransactionID),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	logger.Debug("Transaction event published",
		logger.String("transaction_id", event.TransactionID),
		logger.String("type", event.Type),
	)

	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
