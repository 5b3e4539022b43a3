package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"openpayflow/internal/domains/payment/model"
)

// =====================================================
// REPOSITORY INTERFACES
// =====================================================

// TransactionManager owns transaction lifecycle for the payment domain.
type TransactionManager interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

type PaymentRepoInterface interface {
	// Transaction-aware methods
	CreateWithTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	FinalizeWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, providerPaymentID *string) error
	LockWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error

	// Standalone methods
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByMerchantAndKey(ctx context.Context, merchantID uuid.UUID, idempotencyKey string) (*model.Payment, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, query *model.ListPaymentsQuery) ([]*model.Payment, int, error)
}

type AttemptRepoInterface interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, attempt *model.PaymentAttempt) error
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	FinalizeWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, errorCode, errorMessage *string, providerResponse map[string]interface{}) error
	ListRecentByPayment(ctx context.Context, paymentID uuid.UUID, limit int) ([]*model.PaymentAttempt, error)
	NextAttemptNo(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID) (int, error)
}

type RefundRepoInterface interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, refund *model.Refund) error
	FinalizeWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, providerRefundID *string) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Refund, error)
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*model.Refund, error)
	SumSucceededByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error)
	SumSucceededByPaymentWithTx(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID) (int64, error)
}
