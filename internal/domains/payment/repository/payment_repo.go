package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"openpayflow/internal/domains/payment/model"
)

// =====================================================
// PAYMENT REPOSITORY IMPLEMENTATION
// =====================================================

type paymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepoInterface {
	return &paymentRepository{pool: pool}
}

const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// =====================================================
// TRANSACTION-AWARE METHODS
// =====================================================

// CreateWithTx inserts a payment within the provided transaction. A
// concurrent insert on the same (merchant_id, idempotency_key) pair
// surfaces as ErrDuplicateIdempotencyKey and leaves the winner's row
// untouched.
func (r *paymentRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, merchant_id, amount, currency, status, gateway,
			provider_payment_id, idempotency_key, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING created_at, updated_at
	`

	metadataJSON, err := json.Marshal(payment.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	err = tx.QueryRow(ctx, query,
		payment.ID,
		payment.MerchantID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.Gateway,
		payment.ProviderPaymentID,
		payment.IdempotencyKey,
		metadataJSON,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// UpdateStatusWithTx updates payment status within transaction
func (r *paymentRepository) UpdateStatusWithTx(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
	status string,
) error {
	query := `
		UPDATE payments
		SET status = $1,
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPaymentNotFound
	}

	return nil
}

// FinalizeWithTx records the gateway outcome on the payment row.
func (r *paymentRepository) FinalizeWithTx(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
	status string,
	providerPaymentID *string,
) error {
	query := `
		UPDATE payments
		SET status = $1,
			provider_payment_id = COALESCE($2, provider_payment_id),
			updated_at = NOW()
		WHERE id = $3
	`

	result, err := tx.Exec(ctx, query, status, providerPaymentID, id)
	if err != nil {
		return fmt.Errorf("failed to finalize payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPaymentNotFound
	}

	return nil
}

// LockWithTx takes a row lock on the payment for the duration of the
// transaction. The refund reservation locks before reading the refund
// sum so two concurrent refunds serialize on the bound check.
func (r *paymentRepository) LockWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `SELECT id FROM payments WHERE id = $1 FOR UPDATE`

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, query, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrPaymentNotFound
		}
		return fmt.Errorf("failed to lock payment: %w", err)
	}

	return nil
}

// =====================================================
// STANDALONE METHODS
// =====================================================

const paymentColumns = `
	id, merchant_id, amount, currency, status, gateway,
	provider_payment_id, idempotency_key, metadata,
	created_at, updated_at
`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	payment := &model.Payment{}
	var metadataJSON []byte

	err := row.Scan(
		&payment.ID,
		&payment.MerchantID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.Gateway,
		&payment.ProviderPaymentID,
		&payment.IdempotencyKey,
		&metadataJSON,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &payment.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return payment, nil
}

// GetByID gets payment by ID
func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// GetByMerchantAndKey resolves the idempotency pair to its payment.
func (r *paymentRepository) GetByMerchantAndKey(
	ctx context.Context,
	merchantID uuid.UUID,
	idempotencyKey string,
) (*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE merchant_id = $1 AND idempotency_key = $2
	`

	payment, err := scanPayment(r.pool.QueryRow(ctx, query, merchantID, idempotencyKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by idempotency key: %w", err)
	}

	return payment, nil
}

// ListByMerchant lists payments for a merchant with filters
func (r *paymentRepository) ListByMerchant(
	ctx context.Context,
	merchantID uuid.UUID,
	q *model.ListPaymentsQuery,
) ([]*model.Payment, int, error) {
	// Build dynamic query with filters
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE merchant_id = $1
	`

	args := []interface{}{merchantID}
	argIndex := 2

	if q.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, q.Status)
		argIndex++
	}

	if q.Gateway != "" {
		query += fmt.Sprintf(" AND gateway = $%d", argIndex)
		args = append(args, q.Gateway)
		argIndex++
	}

	if q.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *q.StartDate)
		argIndex++
	}

	if q.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *q.EndDate)
		argIndex++
	}

	// Count total
	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ("+query+") as count_query", args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	// Add pagination
	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, total, nil
}
