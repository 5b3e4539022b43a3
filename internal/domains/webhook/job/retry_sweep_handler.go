package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"openpayflow/internal/config"
	"openpayflow/internal/domains/webhook/service"
	"openpayflow/internal/shared"
	"openpayflow/internal/shared/utils"
	"openpayflow/pkg/logger"
)

// ================================================
// RETRY SWEEP JOB HANDLER
// ================================================

type RetrySweepHandler struct {
	sender    service.SenderServiceInterface
	jobConfig config.JobConfig
}

func NewRetrySweepHandler(
	sender service.SenderServiceInterface,
	jobConfig config.JobConfig,
) *RetrySweepHandler {
	return &RetrySweepHandler{
		sender:    sender,
		jobConfig: jobConfig,
	}
}

func (h *RetrySweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.RetrySweepPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		logger.Error("Failed to unmarshal retry_sweep payload, using default limit", err)
	}

	limit := payload.Limit
	if limit <= 0 {
		limit = h.jobConfig.RetrySweepLimit
	}

	swept, err := h.sender.RetrySweep(ctx, limit)
	if err != nil {
		return fmt.Errorf("retry sweep: %w", err)
	}

	if swept > 0 {
		logger.Info("Completed RetrySweep job", map[string]interface{}{
			"limit": limit,
			"swept": swept,
		})
	}

	return nil
}
