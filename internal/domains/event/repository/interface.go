package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"openpayflow/internal/domains/event/model"
)

// =====================================================
// REPOSITORY INTERFACES
// =====================================================

type OutboxRepoInterface interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, msg *model.OutboxMessage) error

	// ListUnprocessedIDs returns the oldest unprocessed row IDs.
	ListUnprocessedIDs(ctx context.Context, limit int) ([]uuid.UUID, error)

	// ClaimWithTx locks one unprocessed row for the caller's
	// transaction, skipping rows other drainers hold. Returns
	// ErrOutboxNotFound when the row is gone or already processed.
	ClaimWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.OutboxMessage, error)

	MarkProcessedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error

	// DeleteProcessedBefore removes aged processed rows in bounded
	// batches. Returns the number of rows deleted.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type EventRepoInterface interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, event *model.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*model.Event, int, error)

	// DeleteAgedWithoutActiveDeliveries removes aged events that no
	// pending or failed delivery still references.
	DeleteAgedWithoutActiveDeliveries(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}
