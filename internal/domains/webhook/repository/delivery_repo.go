package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"openpayflow/internal/domains/webhook/model"
)

// =====================================================
// WEBHOOK DELIVERY REPOSITORY IMPLEMENTATION
// =====================================================

type deliveryRepository struct {
	pool *pgxpool.Pool
}

func NewDeliveryRepository(pool *pgxpool.Pool) DeliveryRepoInterface {
	return &deliveryRepository{pool: pool}
}

const deliveryColumns = `
	id, event_id, endpoint_id, status, attempt_count,
	last_error, next_retry_at, created_at, updated_at
`

func scanDelivery(row pgx.Row) (*model.WebhookDelivery, error) {
	delivery := &model.WebhookDelivery{}
	err := row.Scan(
		&delivery.ID,
		&delivery.EventID,
		&delivery.EndpointID,
		&delivery.Status,
		&delivery.AttemptCount,
		&delivery.LastError,
		&delivery.NextRetryAt,
		&delivery.CreatedAt,
		&delivery.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

// CreateWithTx inserts one pending delivery inside the drainer's
// transaction.
func (r *deliveryRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, delivery *model.WebhookDelivery) error {
	query := `
		INSERT INTO webhook_deliveries (
			id, event_id, endpoint_id, status, attempt_count
		) VALUES (
			$1, $2, $3, $4, 0
		)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		delivery.ID,
		delivery.EventID,
		delivery.EndpointID,
		delivery.Status,
	).Scan(&delivery.CreatedAt, &delivery.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create webhook delivery: %w", err)
	}

	return nil
}

// GetByID gets delivery by ID
func (r *deliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WebhookDelivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE id = $1`

	delivery, err := scanDelivery(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("failed to get webhook delivery: %w", err)
	}

	return delivery, nil
}

// ClaimAttempt advances attempt_count before the HTTP request goes out,
// so a crash mid-request still counts the attempt. The update is
// predicated on the count the sender observed; losing the race means
// another sender owns this delivery.
func (r *deliveryRepository) ClaimAttempt(ctx context.Context, id uuid.UUID, observedCount int) error {
	query := `
		UPDATE webhook_deliveries
		SET attempt_count = attempt_count + 1,
			updated_at = NOW()
		WHERE id = $1 AND attempt_count = $2
	`

	result, err := r.pool.Exec(ctx, query, id, observedCount)
	if err != nil {
		return fmt.Errorf("failed to claim delivery attempt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrAttemptConflict
	}

	return nil
}

// MarkDelivered finalizes a delivery after a 2xx response
func (r *deliveryRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE webhook_deliveries
		SET status = 'delivered',
			last_error = NULL,
			next_retry_at = NULL,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark delivery delivered: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrDeliveryNotFound
	}

	return nil
}

// MarkFailed records the failure and schedules the retry
func (r *deliveryRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string, nextRetryAt time.Time) error {
	query := `
		UPDATE webhook_deliveries
		SET status = 'failed',
			last_error = $2,
			next_retry_at = $3,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, lastError, nextRetryAt)
	if err != nil {
		return fmt.Errorf("failed to mark delivery failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrDeliveryNotFound
	}

	return nil
}

// MarkAbandoned finalizes a delivery that exhausted its attempts
func (r *deliveryRepository) MarkAbandoned(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `
		UPDATE webhook_deliveries
		SET status = 'abandoned',
			last_error = $2,
			next_retry_at = NULL,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, lastError)
	if err != nil {
		return fmt.Errorf("failed to mark delivery abandoned: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrDeliveryNotFound
	}

	return nil
}

// SweepDue claims deliveries that need re-enqueueing: failed rows whose
// retry time has passed, and any pending row that sat unclaimed long
// enough that its queue entry was evidently lost (a fresh fan-out whose
// enqueue failed, or a swept row whose consumer crashed after the pop).
// Rows are locked with SKIP LOCKED so concurrent sweeps never
// double-claim, and flipped back to pending with next_retry_at cleared
// so the next sweep cannot re-enqueue them.
func (r *deliveryRepository) SweepDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		UPDATE webhook_deliveries
		SET status = 'pending',
			next_retry_at = NULL,
			updated_at = NOW()
		WHERE id IN (
			SELECT id
			FROM webhook_deliveries
			WHERE (status = 'failed' AND next_retry_at <= $1)
			OR (status = 'pending' AND updated_at < $1 - INTERVAL '5 minutes')
			ORDER BY next_retry_at ASC NULLS LAST
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep due deliveries: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan delivery id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// ListByEndpoint lists deliveries for an endpoint with filters
func (r *deliveryRepository) ListByEndpoint(
	ctx context.Context,
	endpointID uuid.UUID,
	q *model.ListDeliveriesQuery,
) ([]*model.WebhookDelivery, int, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM webhook_deliveries
		WHERE endpoint_id = $1
	`

	args := []interface{}{endpointID}
	argIndex := 2

	if q.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, q.Status)
		argIndex++
	}

	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ("+query+") as count_query", args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count deliveries: %w", err)
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*model.WebhookDelivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, delivery)
	}

	return deliveries, total, nil
}

// DeleteDeliveredBefore removes aged delivered rows in bounded batches
func (r *deliveryRepository) DeleteDeliveredBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	query := `
		DELETE FROM webhook_deliveries
		WHERE id IN (
			SELECT id
			FROM webhook_deliveries
			WHERE status = 'delivered' AND updated_at < $1
			LIMIT $2
		)
	`

	result, err := r.pool.Exec(ctx, query, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to purge deliveries: %w", err)
	}

	return result.RowsAffected(), nil
}
