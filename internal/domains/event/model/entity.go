package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// ENTITIES
// =====================================================

// OutboxMessage is a row in the transactional outbox. It is written in
// the same transaction as the business state change it announces and
// later drained into an immutable event.
type OutboxMessage struct {
	ID            uuid.UUID              `json:"id"`
	AggregateType string                 `json:"aggregateType"`
	AggregateID   uuid.UUID              `json:"aggregateId"`
	EventType     string                 `json:"eventType"`
	Payload       map[string]interface{} `json:"payload"`
	Processed     bool                   `json:"processed"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// Event is the immutable published record derived from an outbox row.
type Event struct {
	ID        uuid.UUID              `json:"id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"createdAt"`
}
