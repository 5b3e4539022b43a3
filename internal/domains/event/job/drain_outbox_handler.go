package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"openpayflow/internal/config"
	"openpayflow/internal/domains/event/service"
	"openpayflow/internal/shared"
	"openpayflow/internal/shared/utils"
	"openpayflow/pkg/logger"
)

// ================================================
// DRAIN OUTBOX JOB HANDLER
// ================================================

type DrainOutboxHandler struct {
	drainer   service.DrainerServiceInterface
	jobConfig config.JobConfig
}

func NewDrainOutboxHandler(
	drainer service.DrainerServiceInterface,
	jobConfig config.JobConfig,
) *DrainOutboxHandler {
	return &DrainOutboxHandler{
		drainer:   drainer,
		jobConfig: jobConfig,
	}
}

func (h *DrainOutboxHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.DrainOutboxPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		logger.Error("Failed to unmarshal drain_outbox payload, using default batch size", err)
	}

	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = h.jobConfig.DrainBatchSize
	}

	drained, err := h.drainer.DrainOnce(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("drain outbox: %w", err)
	}

	if drained > 0 {
		logger.Info("Completed DrainOutbox job", map[string]interface{}{
			"batch_size": batchSize,
			"drained":    drained,
		})
	}

	return nil
}
