package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"openpayflow/internal/domains/webhook/model"
)

// =====================================================
// REPOSITORY INTERFACES
// =====================================================

type EndpointRepoInterface interface {
	Create(ctx context.Context, endpoint *model.WebhookEndpoint) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.WebhookEndpoint, error)
	GetByIDForMerchant(ctx context.Context, id, merchantID uuid.UUID) (*model.WebhookEndpoint, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]*model.WebhookEndpoint, error)
	Update(ctx context.Context, endpoint *model.WebhookEndpoint) error
	Deactivate(ctx context.Context, id, merchantID uuid.UUID) error

	// ListActiveByEventTypeWithTx returns active endpoints subscribed
	// to the event type, inside the drainer's transaction.
	ListActiveByEventTypeWithTx(ctx context.Context, tx pgx.Tx, eventType string) ([]*model.WebhookEndpoint, error)
}

type DeliveryRepoInterface interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, delivery *model.WebhookDelivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.WebhookDelivery, error)

	// ClaimAttempt advances attempt_count by one, predicated on the
	// observed count. ErrAttemptConflict means another sender got
	// there first.
	ClaimAttempt(ctx context.Context, id uuid.UUID, observedCount int) error

	MarkDelivered(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string, nextRetryAt time.Time) error
	MarkAbandoned(ctx context.Context, id uuid.UUID, lastError string) error

	// SweepDue claims failed deliveries whose retry time has passed,
	// flipping them back to pending so the queue consumer picks them
	// up exactly once.
	SweepDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	ListByEndpoint(ctx context.Context, endpointID uuid.UUID, q *model.ListDeliveriesQuery) ([]*model.WebhookDelivery, int, error)
	DeleteDeliveredBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}
