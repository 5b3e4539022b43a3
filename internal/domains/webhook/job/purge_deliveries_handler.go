package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"openpayflow/internal/config"
	"openpayflow/internal/domains/webhook/repository"
	"openpayflow/internal/shared"
	"openpayflow/internal/shared/utils"
	"openpayflow/pkg/logger"
)

// ================================================
// PURGE DELIVERED WEBHOOKS JOB HANDLER
// ================================================

type PurgeDeliveriesHandler struct {
	deliveryRepo repository.DeliveryRepoInterface
	jobConfig    config.JobConfig
}

func NewPurgeDeliveriesHandler(
	deliveryRepo repository.DeliveryRepoInterface,
	jobConfig config.JobConfig,
) *PurgeDeliveriesHandler {
	return &PurgeDeliveriesHandler{
		deliveryRepo: deliveryRepo,
		jobConfig:    jobConfig,
	}
}

func (h *PurgeDeliveriesHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.PurgePayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		logger.Error("Failed to unmarshal purge_deliveries payload, using default batch size", err)
	}

	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = h.jobConfig.PurgeBatchSize
	}

	cutoff := time.Now().AddDate(0, 0, -h.jobConfig.DeliveryRetentionDays)

	var total int64
	for {
		deleted, err := h.deliveryRepo.DeleteDeliveredBefore(ctx, cutoff, batchSize)
		if err != nil {
			return fmt.Errorf("purge deliveries: %w", err)
		}
		total += deleted
		if deleted < int64(batchSize) {
			break
		}
	}

	logger.Info("Completed PurgeDeliveries job", map[string]interface{}{
		"cutoff":        cutoff,
		"deleted_count": total,
	})

	return nil
}
