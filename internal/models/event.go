package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип доменного события
type EventType string

const (
	EventTypeOrdersImported       EventType = "orders.imported"
	EventTypeInventoryItemCreated EventType = "inventory.item_created"
	EventTypeInventoryItemUpdated EventType = "inventory.item_updated"
	EventTypeInventoryItemDeleted EventType = "inventory.item_deleted"
	EventTypeReorderRequested     EventType = "inventory.reorder_requested"
)

// Event представляет доменное событие, публикуемое в Kafka
type Event struct {
	ID        uuid.UUID              `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent создает событие с заполненным идентификатором и меткой времени
func NewEvent(eventType EventType, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
