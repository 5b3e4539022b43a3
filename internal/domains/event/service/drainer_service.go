package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"openpayflow/internal/domains/event/model"
	"openpayflow/internal/domains/event/repository"
	webhookmodel "openpayflow/internal/domains/webhook/model"
	webhookrepo "openpayflow/internal/domains/webhook/repository"
	"openpayflow/pkg/database"
	"openpayflow/pkg/logger"
)

// =====================================================
// OUTBOX DRAINER
// =====================================================

type DrainerServiceInterface interface {
	// DrainOnce processes up to batchSize unprocessed outbox rows and
	// returns how many it drained.
	DrainOnce(ctx context.Context, batchSize int) (int, error)
}

// DeliveryEnqueuer is the slice of the delivery queue the drainer needs.
type DeliveryEnqueuer interface {
	Enqueue(ctx context.Context, deliveryIDs ...string) error
}

type drainerService struct {
	pool          database.TxStarter
	outboxRepo    repository.OutboxRepoInterface
	eventRepo     repository.EventRepoInterface
	endpointRepo  webhookrepo.EndpointRepoInterface
	deliveryRepo  webhookrepo.DeliveryRepoInterface
	deliveryQueue DeliveryEnqueuer
}

func NewDrainerService(
	pool database.TxStarter,
	outboxRepo repository.OutboxRepoInterface,
	eventRepo repository.EventRepoInterface,
	endpointRepo webhookrepo.EndpointRepoInterface,
	deliveryRepo webhookrepo.DeliveryRepoInterface,
	deliveryQueue DeliveryEnqueuer,
) DrainerServiceInterface {
	return &drainerService{
		pool:          pool,
		outboxRepo:    outboxRepo,
		eventRepo:     eventRepo,
		endpointRepo:  endpointRepo,
		deliveryRepo:  deliveryRepo,
		deliveryQueue: deliveryQueue,
	}
}

// DrainOnce reads a batch of unprocessed row IDs, then handles each row
// in its own transaction: re-claim under SKIP LOCKED, publish the
// event, fan out pending deliveries to subscribed endpoints, mark the
// row processed. Delivery IDs are enqueued only after the commit, so a
// consumer can never observe a delivery that was rolled back.
func (s *drainerService) DrainOnce(ctx context.Context, batchSize int) (int, error) {
	ids, err := s.outboxRepo.ListUnprocessedIDs(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	drained := 0
	for _, id := range ids {
		deliveryIDs, err := s.drainRow(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrOutboxNotFound) {
				// Claimed by a concurrent drainer, skip.
				continue
			}
			logger.Error("Failed to drain outbox row "+id.String(), err)
			continue
		}

		drained++
		s.enqueueDeliveries(ctx, deliveryIDs)
	}

	if drained > 0 {
		logger.Info("Outbox rows drained", map[string]interface{}{"count": drained})
	}

	return drained, nil
}

func (s *drainerService) drainRow(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var deliveryIDs []uuid.UUID

	err := database.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		msg, err := s.outboxRepo.ClaimWithTx(ctx, tx, id)
		if err != nil {
			return err
		}

		event := &model.Event{
			ID:      uuid.New(),
			Type:    msg.EventType,
			Payload: msg.Payload,
		}
		if err := s.eventRepo.CreateWithTx(ctx, tx, event); err != nil {
			return err
		}

		endpoints, err := s.endpointRepo.ListActiveByEventTypeWithTx(ctx, tx, msg.EventType)
		if err != nil {
			return err
		}

		deliveryIDs = deliveryIDs[:0]
		for _, endpoint := range endpoints {
			delivery := &webhookmodel.WebhookDelivery{
				ID:         uuid.New(),
				EventID:    event.ID,
				EndpointID: endpoint.ID,
				Status:     webhookmodel.DeliveryStatusPending,
			}
			if err := s.deliveryRepo.CreateWithTx(ctx, tx, delivery); err != nil {
				return err
			}
			deliveryIDs = append(deliveryIDs, delivery.ID)
		}

		return s.outboxRepo.MarkProcessedWithTx(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}

	return deliveryIDs, nil
}

// enqueueDeliveries pushes committed delivery IDs onto the work queue.
// Failures here are recoverable: the retry sweep re-enqueues anything
// the queue lost once its retry time comes due, and a pending delivery
// with no consumer claim stays visible to operators.
func (s *drainerService) enqueueDeliveries(ctx context.Context, ids []uuid.UUID) {
	for _, id := range ids {
		if err := s.deliveryQueue.Enqueue(ctx, id.String()); err != nil {
			logger.Error("Failed to enqueue webhook delivery "+id.String(), err)
		}
	}
}
