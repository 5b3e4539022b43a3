package gateway

import (
	"context"
	"errors"
	"fmt"
)

// =====================================================
// PORT CONTRACT
// =====================================================

// Normalized gateway statuses. Adapters map provider specific states onto
// this set; everything unrecognized maps to failed.
const (
	StatusSucceeded      = "succeeded"
	StatusProcessing     = "processing"
	StatusRequiresAction = "requires_action"
	StatusFailed         = "failed"
)

// ChargeRequest is what the orchestrator hands an adapter.
type ChargeRequest struct {
	PaymentID      string
	Amount         int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]interface{}
}

// ChargeResult is the normalized provider outcome.
type ChargeResult struct {
	ProviderPaymentID string
	Status            string
	Raw               map[string]interface{}
}

type RefundRequest struct {
	RefundID          string
	ProviderPaymentID string
	Amount            int64
	Currency          string
	Reason            string
}

type RefundResult struct {
	ProviderRefundID string
	Status           string
	Raw              map[string]interface{}
}

// StatusResult is the provider's current view of a charge. Amount and
// Currency are zero-valued when the provider does not report them.
type StatusResult struct {
	Status   string
	Amount   int64
	Currency string
	Metadata map[string]interface{}
	Raw      map[string]interface{}
}

// PaymentGateway is the provider port. Adapters must be safe for
// concurrent use.
type PaymentGateway interface {
	Name() string
	CreatePayment(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error)
	GetPaymentStatus(ctx context.Context, providerPaymentID string) (*StatusResult, error)
}

// HealthChecker is implemented by adapters that can probe the provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// =====================================================
// GATEWAY ERROR
// =====================================================

// GatewayError marks a transport or provider fault, as opposed to a
// well-formed decline which comes back as a ChargeResult with status
// failed.
type GatewayError struct {
	Gateway      string
	Message      string
	ProviderCode string
	HTTPStatus   int
	Cause        error
}

func (e *GatewayError) Error() string {
	if e.ProviderCode != "" {
		return fmt.Sprintf("%s gateway error [%s]: %s", e.Gateway, e.ProviderCode, e.Message)
	}
	return fmt.Sprintf("%s gateway error: %s", e.Gateway, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// AsGatewayError reports whether err carries a GatewayError.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
