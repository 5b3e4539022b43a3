package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"openpayflow/internal/shared"
)

// ErrQueueEmpty reports that a blocking pop timed out with no work.
var ErrQueueEmpty = errors.New("delivery queue is empty")

// DeliveryQueue is the FIFO work queue for webhook delivery ids, plus the
// dead-letter list for abandoned deliveries. Both are plain redis lists:
// LPUSH producers, BRPOP consumers. The queue only accelerates delivery;
// the retry sweep alone re-discovers due work from the store after a crash.
type DeliveryQueue struct {
	client *redis.Client
}

func NewDeliveryQueue(client *redis.Client) *DeliveryQueue {
	return &DeliveryQueue{client: client}
}

// Enqueue pushes delivery ids onto the live work list.
func (q *DeliveryQueue) Enqueue(ctx context.Context, deliveryIDs ...string) error {
	if len(deliveryIDs) == 0 {
		return nil
	}

	values := make([]interface{}, len(deliveryIDs))
	for i, id := range deliveryIDs {
		values[i] = id
	}

	if err := q.client.LPush(ctx, shared.DeliveryQueueKey, values...).Err(); err != nil {
		return fmt.Errorf("enqueue deliveries: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next delivery id.
func (q *DeliveryQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.client.BRPop(ctx, timeout, shared.DeliveryQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrQueueEmpty
		}
		return "", fmt.Errorf("dequeue delivery: %w", err)
	}

	// BRPop returns [key, value].
	if len(result) != 2 {
		return "", fmt.Errorf("unexpected BRPOP result: %v", result)
	}
	return result[1], nil
}

// DeadLetterRecord is appended when a delivery is abandoned.
type DeadLetterRecord struct {
	Type       string    `json:"type"`
	DeliveryID string    `json:"deliveryId"`
	EndpointID string    `json:"endpointId"`
	EventID    string    `json:"eventId"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"lastError"`
	Timestamp  time.Time `json:"timestamp"`
}

// PushDeadLetter appends an abandonment record to the dead-letter list.
func (q *DeliveryQueue) PushDeadLetter(ctx context.Context, record DeadLetterRecord) error {
	record.Type = "webhook_delivery_abandoned"

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	if err := q.client.LPush(ctx, shared.DeadLetterKey, data).Err(); err != nil {
		return fmt.Errorf("push dead letter: %w", err)
	}
	return nil
}

// PendingCount reports the live list length, for readiness reporting.
func (q *DeliveryQueue) PendingCount(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, shared.DeliveryQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("delivery queue length: %w", err)
	}
	return n, nil
}
