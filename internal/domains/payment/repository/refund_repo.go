package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"openpayflow/internal/domains/payment/model"
)

// =====================================================
// REFUND REPOSITORY IMPLEMENTATION
// =====================================================

type refundRepository struct {
	pool *pgxpool.Pool
}

func NewRefundRepository(pool *pgxpool.Pool) RefundRepoInterface {
	return &refundRepository{pool: pool}
}

// CreateWithTx inserts a refund within the provided transaction
func (r *refundRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, refund *model.Refund) error {
	query := `
		INSERT INTO refunds (
			id, payment_id, amount, reason, status, provider_refund_id
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		refund.ID,
		refund.PaymentID,
		refund.Amount,
		refund.Reason,
		refund.Status,
		refund.ProviderRefundID,
	).Scan(&refund.CreatedAt, &refund.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}

	return nil
}

// FinalizeWithTx records the gateway outcome on the refund row.
func (r *refundRepository) FinalizeWithTx(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
	status string,
	providerRefundID *string,
) error {
	query := `
		UPDATE refunds
		SET status = $1,
			provider_refund_id = COALESCE($2, provider_refund_id),
			updated_at = NOW()
		WHERE id = $3
	`

	result, err := tx.Exec(ctx, query, status, providerRefundID, id)
	if err != nil {
		return fmt.Errorf("failed to finalize refund: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrRefundNotFound
	}

	return nil
}

// GetByID gets refund by ID
func (r *refundRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Refund, error) {
	query := `
		SELECT id, payment_id, amount, reason, status, provider_refund_id,
			created_at, updated_at
		FROM refunds
		WHERE id = $1
	`

	refund := &model.Refund{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&refund.ID,
		&refund.PaymentID,
		&refund.Amount,
		&refund.Reason,
		&refund.Status,
		&refund.ProviderRefundID,
		&refund.CreatedAt,
		&refund.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}

	return refund, nil
}

// ListByPayment lists all refunds for a payment, newest first
func (r *refundRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*model.Refund, error) {
	query := `
		SELECT id, payment_id, amount, reason, status, provider_refund_id,
			created_at, updated_at
		FROM refunds
		WHERE payment_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []*model.Refund
	for rows.Next() {
		refund := &model.Refund{}
		err := rows.Scan(
			&refund.ID,
			&refund.PaymentID,
			&refund.Amount,
			&refund.Reason,
			&refund.Status,
			&refund.ProviderRefundID,
			&refund.CreatedAt,
			&refund.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refunds = append(refunds, refund)
	}

	return refunds, nil
}

// SumSucceededByPayment totals the already refunded amount. Pending and
// processing refunds count toward the bound so concurrent refunds cannot
// overshoot the payment amount.
func (r *refundRepository) SumSucceededByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	return r.sumRefunded(ctx, r.pool, paymentID)
}

// SumSucceededByPaymentWithTx is the transactional variant, used while
// holding the payment row lock.
func (r *refundRepository) SumSucceededByPaymentWithTx(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID) (int64, error) {
	return r.sumRefunded(ctx, tx, paymentID)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *refundRepository) sumRefunded(ctx context.Context, q rowQuerier, paymentID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM refunds
		WHERE payment_id = $1
		AND status IN ('pending', 'processing', 'succeeded')
	`

	var total int64
	if err := q.QueryRow(ctx, query, paymentID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum refunds: %w", err)
	}

	return total, nil
}
