package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrRefundNotFound       = errors.New("refund not found")
	ErrPaymentNotRefundable = errors.New("payment is not refundable")
	ErrRefundExceedsPayment = errors.New("refund amount exceeds payment amount")
	ErrGatewayDisabled      = errors.New("payment gateway is disabled")

	// ErrDuplicateIdempotencyKey signals that another request already
	// created the payment for this (merchant, idempotency key) pair.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =====================================================
// CUSTOM PAYMENT ERROR
// =====================================================

// PaymentError carries a wire-visible code and the HTTP status the
// boundary should answer with.
type PaymentError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func NewPaymentError(code, message string, httpStatus int, err error) *PaymentError {
	return &PaymentError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewValidationError(message string, err error) *PaymentError {
	return NewPaymentError(ErrCodeValidationFailed, message, 400, err)
}

func NewPaymentNotFoundError(paymentID string) *PaymentError {
	return NewPaymentError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment not found: %s", paymentID),
		404,
		ErrPaymentNotFound,
	)
}

func NewGatewayDisabledError(gateway string) *PaymentError {
	return NewPaymentError(
		ErrCodeGatewayDisabled,
		fmt.Sprintf("Gateway %q is not enabled", gateway),
		400,
		ErrGatewayDisabled,
	)
}

func NewPaymentNotRefundableError(status string) *PaymentError {
	return NewPaymentError(
		ErrCodePaymentNotRefundable,
		fmt.Sprintf("Payment must be succeeded to refund, current status: %s", status),
		400,
		ErrPaymentNotRefundable,
	)
}

// NewGatewayFaultError maps a provider fault onto the wire envelope.
// The provider's own code and HTTP status are echoed when present,
// otherwise the caller sees GATEWAY_ERROR with a 500.
func NewGatewayFaultError(code, message string, httpStatus int, err error) *PaymentError {
	if code == "" {
		code = ErrCodeGatewayError
	}
	if httpStatus == 0 {
		httpStatus = 500
	}
	return NewPaymentError(code, message, httpStatus, err)
}

func NewRefundExceedsPaymentError(requested, remaining int64) *PaymentError {
	return NewPaymentError(
		ErrCodeRefundExceedsPayment,
		fmt.Sprintf("Requested refund %d exceeds refundable remainder %d", requested, remaining),
		400,
		ErrRefundExceedsPayment,
	)
}
