package service

import (
	"context"

	"github.com/google/uuid"

	"openpayflow/internal/domains/payment/model"
)

// =====================================================
// SERVICE INTERFACES
// =====================================================

type PaymentServiceInterface interface {
	// CreatePayment runs the intake flow. The returned flag is true
	// when a previous request with the same idempotency key already
	// created the payment and the stored result is replayed.
	CreatePayment(ctx context.Context, merchantID uuid.UUID, idempotencyKey string, req *model.CreatePaymentRequest) (*model.Payment, bool, error)

	GetPayment(ctx context.Context, merchantID, paymentID uuid.UUID) (*model.PaymentDetailResponse, error)
	ListPayments(ctx context.Context, merchantID uuid.UUID, query *model.ListPaymentsQuery) ([]*model.Payment, int, error)
}
