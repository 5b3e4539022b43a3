package model

// =====================================================
// PAYMENT GATEWAYS
// =====================================================
const (
	GatewayStripe   = "stripe"
	GatewayRazorpay = "razorpay"
	GatewayMock     = "mock"
)

var ValidGateways = []string{
	GatewayStripe,
	GatewayRazorpay,
	GatewayMock,
}

// =====================================================
// PAYMENT STATUS
// =====================================================
// Status is monotone except processing -> requires_action ->
// {succeeded, failed, cancelled}. Terminal: succeeded, failed, cancelled.
const (
	PaymentStatusPending        = "pending"
	PaymentStatusProcessing     = "processing"
	PaymentStatusRequiresAction = "requires_action"
	PaymentStatusSucceeded      = "succeeded"
	PaymentStatusFailed         = "failed"
	PaymentStatusCancelled      = "cancelled"
)

var ValidPaymentStatuses = []string{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusRequiresAction,
	PaymentStatusSucceeded,
	PaymentStatusFailed,
	PaymentStatusCancelled,
}

// =====================================================
// REFUND STATUS
// =====================================================
const (
	RefundStatusPending    = "pending"
	RefundStatusProcessing = "processing"
	RefundStatusSucceeded  = "succeeded"
	RefundStatusFailed     = "failed"
)

// =====================================================
// ERROR CODES (wire-visible)
// =====================================================
const (
	ErrCodeInvalidAPIKey        = "INVALID_API_KEY"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeMissingIdempotency   = "MISSING_IDEMPOTENCY_KEY"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodeGatewayDisabled      = "GATEWAY_DISABLED"
	ErrCodeGatewayError         = "GATEWAY_ERROR"
	ErrCodePaymentNotRefundable = "PAYMENT_NOT_REFUNDABLE"
	ErrCodeRefundExceedsPayment = "REFUND_AMOUNT_EXCEEDS_PAYMENT"
	ErrCodeInternalError        = "INTERNAL_ERROR"

	// Reserved for the stricter idempotency contract (body-hash compare);
	// not emitted by the current behaviour.
	ErrCodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
)

// =====================================================
// EVENT TYPES
// =====================================================
const (
	EventPaymentCreated = "payment.created"
	EventRefundCreated  = "refund.created"
)

// KnownEventTypes is the set webhook endpoints may subscribe to.
var KnownEventTypes = []string{
	EventPaymentCreated,
	EventRefundCreated,
}

func IsKnownEventType(t string) bool {
	for _, known := range KnownEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// =====================================================
// AGGREGATE TYPES (outbox)
// =====================================================
const (
	AggregatePayment = "payment"
	AggregateRefund  = "refund"
)

// IdempotencyCacheTTL is how long an idempotency key binds to a payment
// in the cache; the unique constraint in the store binds it forever.
const IdempotencyCacheTTLHours = 24
