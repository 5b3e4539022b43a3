package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"openpayflow/internal/config"
	eventrepo "openpayflow/internal/domains/event/repository"
	"openpayflow/internal/domains/webhook/model"
	"openpayflow/internal/domains/webhook/repository"
	"openpayflow/internal/domains/webhook/signature"
	"openpayflow/internal/infrastructure/queue"
	"openpayflow/internal/shared"
	"openpayflow/pkg/logger"
)

// =====================================================
// WEBHOOK SENDER
// =====================================================

type SenderServiceInterface interface {
	// Process executes one delivery attempt end to end.
	Process(ctx context.Context, deliveryID uuid.UUID) error

	// RetrySweep re-enqueues deliveries whose retry time has passed.
	RetrySweep(ctx context.Context, limit int) (int, error)
}

// DeliveryQueuer is the slice of the delivery queue the sender needs.
type DeliveryQueuer interface {
	Enqueue(ctx context.Context, deliveryIDs ...string) error
	PushDeadLetter(ctx context.Context, record queue.DeadLetterRecord) error
}

type senderService struct {
	deliveryRepo  repository.DeliveryRepoInterface
	endpointRepo  repository.EndpointRepoInterface
	eventRepo     eventrepo.EventRepoInterface
	deliveryQueue DeliveryQueuer
	httpClient    *http.Client

	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	jitter       float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSenderService(
	deliveryRepo repository.DeliveryRepoInterface,
	endpointRepo repository.EndpointRepoInterface,
	eventRepo eventrepo.EventRepoInterface,
	deliveryQueue DeliveryQueuer,
	cfg config.WebhookConfig,
) SenderServiceInterface {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = model.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = model.InitialRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = model.MaxRetryDelay
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = model.JitterFraction
	}
	return &senderService{
		deliveryRepo:  deliveryRepo,
		endpointRepo:  endpointRepo,
		eventRepo:     eventRepo,
		deliveryQueue: deliveryQueue,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		maxAttempts:   cfg.MaxRetries,
		initialDelay:  cfg.InitialDelay,
		maxDelay:      cfg.MaxRetryDelay,
		jitter:        cfg.Jitter,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// webhookBody is the JSON shape POSTed to endpoints.
type webhookBody struct {
	ID      uuid.UUID              `json:"id"`
	Type    string                 `json:"type"`
	Created int64                  `json:"created"`
	Data    map[string]interface{} `json:"data"`
}

// Process attempts one webhook delivery:
//  1. Load the delivery; terminal or missing rows are dropped silently
//     since stale queue entries are expected after sweeps.
//  2. Abandon if the attempt budget is already spent.
//  3. Claim the attempt (optimistic increment) BEFORE the HTTP call, so
//     a crash mid-request still burns the attempt.
//  4. POST the signed payload; 2xx settles the delivery, anything else
//     schedules a retry or abandons at the budget.
func (s *senderService) Process(ctx context.Context, deliveryID uuid.UUID) error {
	delivery, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, model.ErrDeliveryNotFound) {
			return nil
		}
		return err
	}
	if delivery.IsTerminal() {
		return nil
	}

	if delivery.AttemptCount >= s.maxAttempts {
		return s.abandon(ctx, delivery, delivery.AttemptCount, "attempt budget exhausted")
	}

	if err := s.deliveryRepo.ClaimAttempt(ctx, deliveryID, delivery.AttemptCount); err != nil {
		if errors.Is(err, model.ErrAttemptConflict) {
			// Another sender owns this delivery now.
			return nil
		}
		return err
	}
	attemptNo := delivery.AttemptCount + 1

	endpoint, err := s.endpointRepo.GetByID(ctx, delivery.EndpointID)
	if err != nil {
		return s.fail(ctx, delivery, attemptNo, "endpoint missing: "+err.Error())
	}
	if !endpoint.IsActive {
		return s.abandon(ctx, delivery, attemptNo, "endpoint deactivated")
	}

	event, err := s.eventRepo.GetByID(ctx, delivery.EventID)
	if err != nil {
		return s.fail(ctx, delivery, attemptNo, "event missing: "+err.Error())
	}

	body, err := json.Marshal(webhookBody{
		ID:      event.ID,
		Type:    event.Type,
		Created: event.CreatedAt.Unix(),
		Data:    event.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return s.fail(ctx, delivery, attemptNo, "invalid endpoint URL: "+err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", model.UserAgent)
	req.Header.Set(model.SignatureHeader, signature.Sign(body, endpoint.Secret))
	req.Header.Set(model.EventIDHeader, event.ID.String())
	req.Header.Set(model.EventTypeHeader, event.Type)
	req.Header.Set(model.DeliveryIDHeader, delivery.ID.String())
	if cid := shared.CorrelationID(ctx); cid != "" {
		req.Header.Set(model.CorrelationHeader, cid)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return s.fail(ctx, delivery, attemptNo, err.Error())
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := s.deliveryRepo.MarkDelivered(ctx, deliveryID); err != nil {
			return err
		}
		logger.Info("Webhook delivered", map[string]interface{}{
			"delivery_id": deliveryID.String(),
			"endpoint_id": endpoint.ID.String(),
			"attempt":     attemptNo,
		})
		return nil
	}

	return s.fail(ctx, delivery, attemptNo, fmt.Sprintf("endpoint returned HTTP %d", resp.StatusCode))
}

// fail records the failed attempt; the delivery is abandoned once the
// attempt budget is spent, otherwise scheduled for retry with backoff.
func (s *senderService) fail(ctx context.Context, delivery *model.WebhookDelivery, attemptNo int, reason string) error {
	if attemptNo >= s.maxAttempts {
		return s.abandon(ctx, delivery, attemptNo, reason)
	}

	nextRetryAt := time.Now().Add(s.Backoff(attemptNo))
	if cap := time.Now().Add(s.maxDelay); nextRetryAt.After(cap) {
		nextRetryAt = cap
	}

	if err := s.deliveryRepo.MarkFailed(ctx, delivery.ID, reason, nextRetryAt); err != nil {
		return err
	}

	logger.Warn("Webhook delivery failed, retry scheduled", map[string]interface{}{
		"delivery_id":   delivery.ID.String(),
		"attempt":       attemptNo,
		"next_retry_at": nextRetryAt,
		"reason":        reason,
	})

	return nil
}

// abandon finalizes the delivery and records it on the dead letter list.
// attempts is the count after the claim; the in-memory row still holds
// the pre-claim value.
func (s *senderService) abandon(ctx context.Context, delivery *model.WebhookDelivery, attempts int, reason string) error {
	if err := s.deliveryRepo.MarkAbandoned(ctx, delivery.ID, reason); err != nil {
		return err
	}

	record := queue.DeadLetterRecord{
		DeliveryID: delivery.ID.String(),
		EndpointID: delivery.EndpointID.String(),
		EventID:    delivery.EventID.String(),
		Attempts:   attempts,
		LastError:  reason,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.deliveryQueue.PushDeadLetter(ctx, record); err != nil {
		logger.Error("Failed to push dead letter record", err)
	}

	logger.Warn("Webhook delivery abandoned", map[string]interface{}{
		"delivery_id": delivery.ID.String(),
		"endpoint_id": delivery.EndpointID.String(),
		"reason":      reason,
	})

	return nil
}

// Backoff computes the delay before retry attempt n+1:
// min(cap, initial * 2^(n-1)) plus uniform jitter of up to the
// configured fraction of the delay.
func (s *senderService) Backoff(attemptNo int) time.Duration {
	if attemptNo < 1 {
		attemptNo = 1
	}

	delay := s.initialDelay << (attemptNo - 1)
	if delay > s.maxDelay || delay <= 0 {
		delay = s.maxDelay
	}

	s.mu.Lock()
	jitter := time.Duration(s.rng.Float64() * s.jitter * float64(delay))
	s.mu.Unlock()

	return delay + jitter
}

// RetrySweep claims due deliveries and puts them back on the work queue.
func (s *senderService) RetrySweep(ctx context.Context, limit int) (int, error) {
	ids, err := s.deliveryRepo.SweepDue(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := s.deliveryQueue.Enqueue(ctx, id.String()); err != nil {
			logger.Error("Failed to re-enqueue swept delivery "+id.String(), err)
		}
	}

	if len(ids) > 0 {
		logger.Info("Due deliveries re-enqueued", map[string]interface{}{"count": len(ids)})
	}

	return len(ids), nil
}
