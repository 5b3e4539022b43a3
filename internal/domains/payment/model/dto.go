package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

// =====================================================
// REQUEST DTOS
// =====================================================

type CreatePaymentRequest struct {
	Amount         int64                  `json:"amount"`
	Currency       string                 `json:"currency"`
	Gateway        string                 `json:"gateway"`
	MerchantAPIKey string                 `json:"merchantApiKey"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CustomerID     *string                `json:"customerId,omitempty"`
	MethodID       *string                `json:"methodId,omitempty"`
}

func (r CreatePaymentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Currency, validation.Required, validation.Length(3, 3), validation.By(isoCurrency)),
		validation.Field(&r.Gateway, validation.Required, validation.In(GatewayStripe, GatewayRazorpay, GatewayMock)),
		validation.Field(&r.MerchantAPIKey, validation.Required),
	)
}

// NormalizedCurrency is the storage form (upper case).
func (r CreatePaymentRequest) NormalizedCurrency() string {
	return strings.ToUpper(r.Currency)
}

// isoCurrency validates ISO 4217 codes case-insensitively; storage
// upper-cases via NormalizedCurrency.
func isoCurrency(value interface{}) error {
	s, _ := value.(string)
	return validation.Validate(strings.ToUpper(s), is.CurrencyCode)
}

type CreateRefundRequest struct {
	PaymentID      string  `json:"paymentId"`
	Amount         *int64  `json:"amount,omitempty"`
	Reason         *string `json:"reason,omitempty"`
	MerchantAPIKey string  `json:"merchantApiKey"`
}

func (r CreateRefundRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PaymentID, validation.Required, is.UUID),
		validation.Field(&r.Amount, validation.Min(int64(1))),
		validation.Field(&r.MerchantAPIKey, validation.Required),
	)
}

// ListPaymentsQuery carries the filter set of GET /payments.
type ListPaymentsQuery struct {
	Status    string
	Gateway   string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

func (q *ListPaymentsQuery) Normalize() {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// =====================================================
// RESPONSE DTOS
// =====================================================

// PaymentDetailResponse is the GET /payments/:id shape: the payment plus
// its most recent attempts and all refunds.
type PaymentDetailResponse struct {
	Payment  *Payment          `json:"payment"`
	Attempts []*PaymentAttempt `json:"attempts"`
	Refunds  []*Refund         `json:"refunds"`
}

// PaymentSnapshot is the event payload form of a payment.
type PaymentSnapshot struct {
	ID                uuid.UUID              `json:"id"`
	MerchantID        uuid.UUID              `json:"merchantId"`
	Amount            int64                  `json:"amount"`
	Currency          string                 `json:"currency"`
	Status            string                 `json:"status"`
	Gateway           string                 `json:"gateway"`
	ProviderPaymentID *string                `json:"providerPaymentId,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
}

func SnapshotOf(p *Payment) PaymentSnapshot {
	return PaymentSnapshot{
		ID:                p.ID,
		MerchantID:        p.MerchantID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            p.Status,
		Gateway:           p.Gateway,
		ProviderPaymentID: p.ProviderPaymentID,
		Metadata:          p.Metadata,
		CreatedAt:         p.CreatedAt,
	}
}

// RefundSnapshot is the event payload form of a refund.
type RefundSnapshot struct {
	ID               uuid.UUID `json:"id"`
	PaymentID        uuid.UUID `json:"paymentId"`
	Amount           int64     `json:"amount"`
	Status           string    `json:"status"`
	ProviderRefundID *string   `json:"providerRefundId,omitempty"`
	Reason           *string   `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func SnapshotOfRefund(r *Refund) RefundSnapshot {
	return RefundSnapshot{
		ID:               r.ID,
		PaymentID:        r.PaymentID,
		Amount:           r.Amount,
		Status:           r.Status,
		ProviderRefundID: r.ProviderRefundID,
		Reason:           r.Reason,
		CreatedAt:        r.CreatedAt,
	}
}
