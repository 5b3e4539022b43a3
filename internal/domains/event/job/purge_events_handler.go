package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"openpayflow/internal/config"
	"openpayflow/internal/domains/event/repository"
	"openpayflow/internal/shared"
	"openpayflow/internal/shared/utils"
	"openpayflow/pkg/logger"
)

// ================================================
// PURGE AGED EVENTS JOB HANDLER
// ================================================

type PurgeEventsHandler struct {
	eventRepo repository.EventRepoInterface
	jobConfig config.JobConfig
}

func NewPurgeEventsHandler(
	eventRepo repository.EventRepoInterface,
	jobConfig config.JobConfig,
) *PurgeEventsHandler {
	return &PurgeEventsHandler{
		eventRepo: eventRepo,
		jobConfig: jobConfig,
	}
}

func (h *PurgeEventsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.PurgePayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		logger.Error("Failed to unmarshal purge_events payload, using default batch size", err)
	}

	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = h.jobConfig.PurgeBatchSize
	}

	cutoff := time.Now().AddDate(0, 0, -h.jobConfig.EventRetentionDays)

	var total int64
	for {
		deleted, err := h.eventRepo.DeleteAgedWithoutActiveDeliveries(ctx, cutoff, batchSize)
		if err != nil {
			return fmt.Errorf("purge events: %w", err)
		}
		total += deleted
		if deleted < int64(batchSize) {
			break
		}
	}

	logger.Info("Completed PurgeEvents job", map[string]interface{}{
		"cutoff":        cutoff,
		"deleted_count": total,
	})

	return nil
}
