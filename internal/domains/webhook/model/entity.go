package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// ENTITIES
// =====================================================

// WebhookEndpoint is a merchant-registered destination URL with its
// signing secret and event subscriptions.
type WebhookEndpoint struct {
	ID         uuid.UUID `json:"id"`
	MerchantID uuid.UUID `json:"merchantId"`
	URL        string    `json:"url"`
	Secret     string    `json:"-"`
	Events     []string  `json:"events"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SubscribesTo reports whether the endpoint wants the event type. An
// empty subscription list means all known types.
func (e *WebhookEndpoint) SubscribesTo(eventType string) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, t := range e.Events {
		if t == eventType {
			return true
		}
	}
	return false
}

// WebhookDelivery tracks one event's journey to one endpoint.
type WebhookDelivery struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"eventId"`
	EndpointID   uuid.UUID  `json:"endpointId"`
	Status       string     `json:"status"`
	AttemptCount int        `json:"attemptCount"`
	LastError    *string    `json:"lastError,omitempty"`
	NextRetryAt  *time.Time `json:"nextRetryAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsTerminal reports whether the delivery reached a final state.
func (d *WebhookDelivery) IsTerminal() bool {
	return d.Status == DeliveryStatusDelivered || d.Status == DeliveryStatusAbandoned
}
