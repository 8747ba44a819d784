package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entities and operations carried by change events.
const (
	EntityExpense = "expense"
	EntityPayee   = "payee"

	OpCreated  = "created"
	OpUpdated  = "updated"
	OpDeleted  = "deleted"
	OpImported = "imported"
)

// ChangeEvent announces that the snapshot changed. It carries no record
// data: consumers read the current snapshot themselves.
type ChangeEvent struct {
	Entity string    `json:"entity"`
	Op     string    `json:"op"`
	ID     int64     `json:"id,omitempty"`
	At     time.Time `json:"at"`
}

// NewChangeEvent stamps an event with the current time.
func NewChangeEvent(entity, op string, id int64) *ChangeEvent {
	return &ChangeEvent{
		Entity: entity,
		Op:     op,
		ID:     id,
		At:     time.Now(),
	}
}

func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeEventFromJSON decodes a message body. Events without an entity are
// rejected.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" {
		return nil, fmt.Errorf("change event without entity")
	}
	return &msg, nil
}
