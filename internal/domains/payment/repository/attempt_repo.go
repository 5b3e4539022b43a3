package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"openpayflow/internal/domains/payment/model"
)

// =====================================================
// PAYMENT ATTEMPT REPOSITORY IMPLEMENTATION
// =====================================================

type attemptRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptRepository(pool *pgxpool.Pool) AttemptRepoInterface {
	return &attemptRepository{pool: pool}
}

// CreateWithTx inserts an attempt within the provided transaction
func (r *attemptRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, attempt *model.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (
			id, payment_id, attempt_no, status,
			error_code, error_message, provider_response
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at, updated_at
	`

	providerResponseJSON, err := json.Marshal(attempt.ProviderResponse)
	if err != nil {
		return fmt.Errorf("failed to marshal provider_response: %w", err)
	}

	err = tx.QueryRow(ctx, query,
		attempt.ID,
		attempt.PaymentID,
		attempt.AttemptNo,
		attempt.Status,
		attempt.ErrorCode,
		attempt.ErrorMessage,
		providerResponseJSON,
	).Scan(&attempt.CreatedAt, &attempt.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create payment attempt: %w", err)
	}

	return nil
}

// UpdateStatusWithTx updates attempt status within transaction
func (r *attemptRepository) UpdateStatusWithTx(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
	status string,
) error {
	query := `
		UPDATE payment_attempts
		SET status = $1,
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update attempt status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPaymentNotFound
	}

	return nil
}

// FinalizeWithTx records the gateway outcome on the attempt row.
func (r *attemptRepository) FinalizeWithTx(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
	status string,
	errorCode, errorMessage *string,
	providerResponse map[string]interface{},
) error {
	query := `
		UPDATE payment_attempts
		SET status = $1,
			error_code = $2,
			error_message = $3,
			provider_response = $4,
			updated_at = NOW()
		WHERE id = $5
	`

	providerResponseJSON, err := json.Marshal(providerResponse)
	if err != nil {
		return fmt.Errorf("failed to marshal provider_response: %w", err)
	}

	result, err := tx.Exec(ctx, query, status, errorCode, errorMessage, providerResponseJSON, id)
	if err != nil {
		return fmt.Errorf("failed to finalize attempt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPaymentNotFound
	}

	return nil
}

// ListRecentByPayment lists the newest attempts for a payment.
func (r *attemptRepository) ListRecentByPayment(
	ctx context.Context,
	paymentID uuid.UUID,
	limit int,
) ([]*model.PaymentAttempt, error) {
	query := `
		SELECT
			id, payment_id, attempt_no, status,
			error_code, error_message, provider_response,
			created_at, updated_at
		FROM payment_attempts
		WHERE payment_id = $1
		ORDER BY attempt_no DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, paymentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*model.PaymentAttempt
	for rows.Next() {
		attempt := &model.PaymentAttempt{}
		var providerResponseJSON []byte

		err := rows.Scan(
			&attempt.ID,
			&attempt.PaymentID,
			&attempt.AttemptNo,
			&attempt.Status,
			&attempt.ErrorCode,
			&attempt.ErrorMessage,
			&providerResponseJSON,
			&attempt.CreatedAt,
			&attempt.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}

		if providerResponseJSON != nil {
			if err := json.Unmarshal(providerResponseJSON, &attempt.ProviderResponse); err != nil {
				return nil, fmt.Errorf("failed to unmarshal provider_response: %w", err)
			}
		}

		attempts = append(attempts, attempt)
	}

	return attempts, nil
}

// NextAttemptNo returns the next attempt number for a payment. The row
// lock on the payment must already be held by the caller's transaction.
func (r *attemptRepository) NextAttemptNo(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(MAX(attempt_no), 0) + 1
		FROM payment_attempts
		WHERE payment_id = $1
	`

	var next int
	if err := tx.QueryRow(ctx, query, paymentID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next attempt number: %w", err)
	}

	return next, nil
}
