package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"openpayflow/internal/domains/event/model"
)

// =====================================================
// OUTBOX REPOSITORY IMPLEMENTATION
// =====================================================

type outboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepoInterface {
	return &outboxRepository{pool: pool}
}

// CreateWithTx appends an outbox row inside the caller's transaction.
func (r *outboxRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, msg *model.OutboxMessage) error {
	query := `
		INSERT INTO outbox (
			id, aggregate_type, aggregate_id, event_type, payload, processed
		) VALUES (
			$1, $2, $3, $4, $5, FALSE
		)
		RETURNING created_at
	`

	payloadJSON, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	err = tx.QueryRow(ctx, query,
		msg.ID,
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		payloadJSON,
	).Scan(&msg.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

// ListUnprocessedIDs returns the oldest unprocessed rows, oldest first.
func (r *outboxRepository) ListUnprocessedIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM outbox
		WHERE processed = FALSE
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed outbox rows: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan outbox id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// ClaimWithTx re-reads one unprocessed row under FOR UPDATE SKIP LOCKED.
// A row another drainer holds, or one already processed, comes back as
// ErrOutboxNotFound and the caller moves on.
func (r *outboxRepository) ClaimWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.OutboxMessage, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, processed, created_at
		FROM outbox
		WHERE id = $1 AND processed = FALSE
		FOR UPDATE SKIP LOCKED
	`

	msg := &model.OutboxMessage{}
	var payloadJSON []byte

	err := tx.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.AggregateType,
		&msg.AggregateID,
		&msg.EventType,
		&payloadJSON,
		&msg.Processed,
		&msg.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOutboxNotFound
		}
		return nil, fmt.Errorf("failed to claim outbox row: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &msg.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal outbox payload: %w", err)
		}
	}

	return msg, nil
}

func (r *outboxRepository) MarkProcessedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `
		UPDATE outbox
		SET processed = TRUE
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox row processed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrOutboxNotFound
	}

	return nil
}

// DeleteProcessedBefore removes aged processed rows in bounded batches
func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	query := `
		DELETE FROM outbox
		WHERE id IN (
			SELECT id
			FROM outbox
			WHERE processed = TRUE AND created_at < $1
			LIMIT $2
		)
	`

	result, err := r.pool.Exec(ctx, query, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to purge outbox: %w", err)
	}

	return result.RowsAffected(), nil
}
