package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"order_ledger/internal/services"

	"github.com/segmentio/kafka-go"
)

const (
	TypeOrderCreated  = "order.created"
	TypeOrderArchived = "order.archived"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes order lifecycle events as JSON, keyed by order id so
// all events of one order land on the same partition.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		timeout: 5 * time.Second,
	}
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, e services.OrderCreatedEvent) error {
	return p.publish(ctx, TypeOrderCreated, e.OrderID, e)
}

func (p *KafkaPublisher) PublishOrderArchived(ctx context.Context, e services.OrderArchivedEvent) error {
	return p.publish(ctx, TypeOrderArchived, e.OrderID, e)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, orderID int64, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(strconv.FormatInt(orderID, 10)),
		Value:   value,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(eventType)}},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
