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
// PURGE PROCESSED OUTBOX JOB HANDLER
// ================================================

type PurgeOutboxHandler struct {
	outboxRepo repository.OutboxRepoInterface
	jobConfig  config.JobConfig
}

func NewPurgeOutboxHandler(
	outboxRepo repository.OutboxRepoInterface,
	jobConfig config.JobConfig,
) *PurgeOutboxHandler {
	return &PurgeOutboxHandler{
		outboxRepo: outboxRepo,
		jobConfig:  jobConfig,
	}
}

func (h *PurgeOutboxHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.PurgePayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		logger.Error("Failed to unmarshal purge_outbox payload, using default batch size", err)
	}

	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = h.jobConfig.PurgeBatchSize
	}

	cutoff := time.Now().AddDate(0, 0, -h.jobConfig.OutboxRetentionDays)

	// Delete in bounded batches until the backlog for this run is gone.
	var total int64
	for {
		deleted, err := h.outboxRepo.DeleteProcessedBefore(ctx, cutoff, batchSize)
		if err != nil {
			return fmt.Errorf("purge outbox: %w", err)
		}
		total += deleted
		if deleted < int64(batchSize) {
			break
		}
	}

	logger.Info("Completed PurgeOutbox job", map[string]interface{}{
		"cutoff":        cutoff,
		"deleted_count": total,
	})

	return nil
}
