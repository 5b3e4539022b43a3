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
// EVENT REPOSITORY IMPLEMENTATION
// =====================================================

type eventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepoInterface {
	return &eventRepository{pool: pool}
}

// CreateWithTx inserts an event inside the drainer's transaction
func (r *eventRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, event *model.Event) error {
	query := `
		INSERT INTO events (id, type, payload)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	err = tx.QueryRow(ctx, query, event.ID, event.Type, payloadJSON).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// GetByID gets event by ID
func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `
		SELECT id, type, payload, created_at
		FROM events
		WHERE id = $1
	`

	event := &model.Event{}
	var payloadJSON []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Type,
		&payloadJSON,
		&event.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
		}
	}

	return event, nil
}

// ListRecent lists events newest first with pagination
func (r *eventRepository) ListRecent(ctx context.Context, limit, offset int) ([]*model.Event, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	query := `
		SELECT id, type, payload, created_at
		FROM events
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event := &model.Event{}
		var payloadJSON []byte

		if err := rows.Scan(&event.ID, &event.Type, &payloadJSON, &event.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		if payloadJSON != nil {
			if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal event payload: %w", err)
			}
		}
		events = append(events, event)
	}

	return events, total, nil
}

// DeleteAgedWithoutActiveDeliveries removes aged events no live delivery
// still points at. Delivered and abandoned deliveries do not pin events.
func (r *eventRepository) DeleteAgedWithoutActiveDeliveries(
	ctx context.Context,
	cutoff time.Time,
	batchSize int,
) (int64, error) {
	query := `
		DELETE FROM events
		WHERE id IN (
			SELECT e.id
			FROM events e
			WHERE e.created_at < $1
			AND NOT EXISTS (
				SELECT 1
				FROM webhook_deliveries d
				WHERE d.event_id = e.id
				AND d.status IN ('pending', 'failed')
			)
			LIMIT $2
		)
	`

	result, err := r.pool.Exec(ctx, query, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}

	return result.RowsAffected(), nil
}
