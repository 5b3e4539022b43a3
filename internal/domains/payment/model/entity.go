package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// PAYMENT ENTITY
// =====================================================
// Amount is an integer in the minor unit of Currency (ISO-4217).
type Payment struct {
	ID         uuid.UUID `json:"id" db:"id"`
	MerchantID uuid.UUID `json:"merchantId" db:"merchant_id"`

	Amount   int64  `json:"amount" db:"amount"`
	Currency string `json:"currency" db:"currency"`

	Status  string `json:"status" db:"status"`
	Gateway string `json:"gateway" db:"gateway"`

	ProviderPaymentID *string `json:"providerPaymentId,omitempty" db:"provider_payment_id"`
	IdempotencyKey    string  `json:"idempotencyKey" db:"idempotency_key"`

	Metadata map[string]interface{} `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsTerminal reports whether the payment can no longer transition.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// CanBeRefunded reports whether a refund may be created against this payment.
func (p *Payment) CanBeRefunded() bool {
	return p.Status == PaymentStatusSucceeded
}

// =====================================================
// PAYMENT ATTEMPT ENTITY
// =====================================================
// Exactly one attempt per gateway call; attemptNo is 1-indexed and dense
// within a payment.
type PaymentAttempt struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PaymentID uuid.UUID `json:"paymentId" db:"payment_id"`
	AttemptNo int       `json:"attemptNo" db:"attempt_no"`

	Status       string  `json:"status" db:"status"`
	ErrorCode    *string `json:"errorCode,omitempty" db:"error_code"`
	ErrorMessage *string `json:"errorMessage,omitempty" db:"error_message"`

	// Raw provider response, persisted for audit.
	ProviderResponse map[string]interface{} `json:"providerResponse,omitempty" db:"provider_response"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// =====================================================
// REFUND ENTITY
// =====================================================
// The sum of succeeded refund amounts never exceeds the parent payment
// amount; the check runs against the store at create time.
type Refund struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PaymentID uuid.UUID `json:"paymentId" db:"payment_id"`

	Amount int64   `json:"amount" db:"amount"`
	Reason *string `json:"reason,omitempty" db:"reason"`

	Status           string  `json:"status" db:"status"`
	ProviderRefundID *string `json:"providerRefundId,omitempty" db:"provider_refund_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
