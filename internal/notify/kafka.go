package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"techstore/internal/domain"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// OrderEvent is the JSON payload published for order lifecycle changes.
type OrderEvent struct {
	Type       string             `json:"type"`
	OrderID    uuid.UUID          `json:"order_id"`
	UserID     uuid.UUID          `json:"user_id"`
	Status     domain.OrderStatus `json:"status"`
	Total      float64            `json:"total"`
	Items      []domain.OrderItem `json:"items,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// OrderEventPublisher writes order events to a Kafka topic keyed by order id.
type OrderEventPublisher struct {
	producer Producer
	topic    string
	now      func() time.Time
}

func NewOrderEventPublisher(producer Producer, topic string) *OrderEventPublisher {
	return &OrderEventPublisher{producer: producer, topic: topic, now: time.Now}
}

// NewKafkaClient connects a franz-go client for the configured brokers.
func NewKafkaClient(brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return client, nil
}

func (p *OrderEventPublisher) Name() string { return "kafka" }

func (p *OrderEventPublisher) Handle(ctx context.Context, event Event) error {
	var payload OrderEvent

	switch e := event.(type) {
	case OrderCreated:
		payload = OrderEvent{
			Type:    e.EventName(),
			OrderID: e.Order.ID,
			UserID:  e.Order.UserID,
			Status:  e.Order.Status,
			Total:   e.Order.Total,
			Items:   e.Order.Items,
		}
	case OrderStatusChanged:
		payload = OrderEvent{
			Type:    e.EventName(),
			OrderID: e.Order.ID,
			UserID:  e.Order.UserID,
			Status:  e.Status,
			Total:   e.Order.Total,
		}
	default:
		return nil
	}
	payload.OccurredAt = p.now().UTC()

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(payload.OrderID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event", Value: []byte(payload.Type)},
		},
	}

	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", payload.Type, err)
	}
	return nil
}
