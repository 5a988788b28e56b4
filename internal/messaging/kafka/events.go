package kafka

import (
	"time"

	"github.com/google/uuid"
)

// EventType описывает тип доменного события розницы.
type EventType string

const (
	// EventTypeOrderCreated — заказ создан чекаутом (web или POS).
	EventTypeOrderCreated EventType = "order.created"
	// EventTypeOrderFulfilled — заказ переведён в fulfilled.
	EventTypeOrderFulfilled EventType = "order.fulfilled"
	// EventTypeOrderCancelled — заказ отменён, остатки возвращены.
	EventTypeOrderCancelled EventType = "order.cancelled"
	// EventTypeTierChanged — уровень лояльности клиента изменился.
	EventTypeTierChanged EventType = "loyalty.tier_changed"
)

// Topics для доменных событий.
const (
	TopicOrderEvents   = "retail.order-events"
	TopicLoyaltyEvents = "retail.loyalty-events"
)

// RetailEvent — конверт события для публикации в Kafka.
type RetailEvent struct {
	EventID   string         `json:"event_id"`
	EventType EventType      `json:"event_type"`
	OrderID   string         `json:"order_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewRetailEvent создаёт событие с уникальным ID и текущим временем.
func NewRetailEvent(eventType EventType, orderID string, metadata map[string]any) RetailEvent {
	return RetailEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}
