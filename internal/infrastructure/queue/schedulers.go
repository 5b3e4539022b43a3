package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"openpayflow/internal/config"
	"openpayflow/internal/shared"
	"openpayflow/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redisAddress, redisPassword string, redisDB int, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddress, Password: redisPassword, DB: redisDB},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterJobs() error {
	if err := s.registerDrainOutboxJob(); err != nil {
		return err
	}

	if err := s.registerRetrySweepJob(); err != nil {
		return err
	}

	if err := s.registerPurgeOutboxJob(); err != nil {
		return err
	}

	if err := s.registerPurgeDeliveriesJob(); err != nil {
		return err
	}

	if err := s.registerPurgeEventsJob(); err != nil {
		return err
	}

	return nil
}

// ================================================
// JOB 1: Drain Outbox (every 5 seconds)
// ================================================
// The drainer is the only promoter of outbox rows into events. 5s keeps
// event latency low while keeping the poll load trivial.
func (s *Scheduler) registerDrainOutboxJob() error {
	payload, err := json.Marshal(shared.DrainOutboxPayload{BatchSize: s.jobConfig.DrainBatchSize})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeDrainOutbox, payload)

	_, err = s.scheduler.Register(
		"@every 5s",
		task,
		asynq.Queue(shared.QueueHigh),
		asynq.MaxRetry(0), // next tick retries naturally
		asynq.Timeout(time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register DrainOutbox job", err)
		return err
	}

	logger.Info("Registered DrainOutbox: every 5s", map[string]interface{}{})
	return nil
}

// ================================================
// JOB 2: Retry Sweep (every 30 seconds)
// ================================================
// Re-discovers FAILED deliveries whose nextRetryAt has passed. This is the
// durable path: even if the work queue loses everything, the sweep alone
// eventually drives every delivery to DELIVERED or ABANDONED.
func (s *Scheduler) registerRetrySweepJob() error {
	payload, err := json.Marshal(shared.RetrySweepPayload{Limit: s.jobConfig.RetrySweepLimit})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeRetrySweep, payload)

	_, err = s.scheduler.Register(
		"@every 30s",
		task,
		asynq.Queue(shared.QueueHigh),
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register RetrySweep job", err)
		return err
	}

	logger.Info("Registered RetrySweep: every 30s", map[string]interface{}{})
	return nil
}

// ================================================
// JOB 3: Purge Processed Outbox Rows (daily at 2 AM)
// ================================================
func (s *Scheduler) registerPurgeOutboxJob() error {
	payload, err := json.Marshal(shared.PurgePayload{BatchSize: s.jobConfig.PurgeBatchSize})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypePurgeOutbox, payload)

	_, err = s.scheduler.Register(
		"0 2 * * *",
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register PurgeOutbox job", err)
		return err
	}

	logger.Info("Registered PurgeOutbox: daily at 2 AM", map[string]interface{}{})
	return nil
}

// ================================================
// JOB 4: Purge Delivered Webhook Rows (daily at 3 AM)
// ================================================
// Staggered one hour after the outbox purge to avoid contending for the
// same low-traffic window.
func (s *Scheduler) registerPurgeDeliveriesJob() error {
	payload, err := json.Marshal(shared.PurgePayload{BatchSize: s.jobConfig.PurgeBatchSize})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypePurgeDeliveries, payload)

	_, err = s.scheduler.Register(
		"0 3 * * *",
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register PurgeDeliveries job", err)
		return err
	}

	logger.Info("Registered PurgeDeliveries: daily at 3 AM", map[string]interface{}{})
	return nil
}

// ================================================
// JOB 5: Purge Aged Events (daily at 4 AM)
// ================================================
// Events are only deleted once no non-terminal delivery references them.
func (s *Scheduler) registerPurgeEventsJob() error {
	payload, err := json.Marshal(shared.PurgePayload{BatchSize: s.jobConfig.PurgeBatchSize})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypePurgeEvents, payload)

	_, err = s.scheduler.Register(
		"0 4 * * *",
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register PurgeEvents job", err)
		return err
	}

	logger.Info("Registered PurgeEvents: daily at 4 AM", map[string]interface{}{})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
