package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"bookstore/internal/usecase"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
)

type OrderEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	OrderID   int64           `json:"order_id"`
	UserID    int64           `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// KafkaPublisher は注文イベントをKafkaに流す。
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) OrderCreated(ctx context.Context, out usecase.OrderOutput) error {
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return p.publish(ctx, p.newEvent(EventTypeOrderCreated, out, data))
}

func (p *KafkaPublisher) OrderStatusChanged(ctx context.Context, out usecase.OrderOutput, previous string) error {
	payload := struct {
		Order          usecase.OrderOutput `json:"order"`
		PreviousStatus string              `json:"previous_status"`
	}{Order: out, PreviousStatus: previous}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.publish(ctx, p.newEvent(EventTypeOrderStatusChanged, out, data))
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) newEvent(t EventType, out usecase.OrderOutput, data json.RawMessage) OrderEvent {
	return OrderEvent{
		ID:        uuid.NewString(),
		Type:      t,
		OrderID:   out.ID,
		UserID:    out.UserID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// 同一注文のイベントは同一パーティションに載せる
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: value,
	})
}
