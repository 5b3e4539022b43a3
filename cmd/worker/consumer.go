package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"openpayflow/internal/infrastructure/queue"
	"openpayflow/pkg/container"
	"openpayflow/pkg/logger"
)

const (
	consumerWorkers = 4
	dequeueTimeout  = 2 * time.Second
)

// deliveryConsumer pops webhook delivery IDs off the Redis list and
// hands each one to the sender. A short blocking pop keeps the loop
// responsive to shutdown without hammering Redis.
type deliveryConsumer struct {
	wg sync.WaitGroup
}

// startDeliveryConsumer launches the consumer worker pool. Cancelling
// ctx stops the pool; Wait blocks until in-flight deliveries finish.
func startDeliveryConsumer(ctx context.Context, c *container.Container) *deliveryConsumer {
	consumer := &deliveryConsumer{}

	logger.Info("Delivery consumer starting", map[string]interface{}{
		"workers": consumerWorkers,
	})

	for i := 0; i < consumerWorkers; i++ {
		consumer.wg.Add(1)
		go func(workerID int) {
			defer consumer.wg.Done()
			consumeLoop(ctx, c, workerID)
		}(i)
	}

	return consumer
}

// Wait blocks until every consumer worker has exited.
func (dc *deliveryConsumer) Wait() {
	dc.wg.Wait()
}

func consumeLoop(ctx context.Context, c *container.Container, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rawID, err := c.DeliveryQueue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrQueueEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			logger.Error("Delivery dequeue failed", err)
			// Back off briefly so a broken Redis does not spin the loop
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		deliveryID, err := uuid.Parse(rawID)
		if err != nil {
			logger.Error("Dropping malformed delivery ID: "+rawID, err)
			continue
		}

		if err := c.SenderService.Process(ctx, deliveryID); err != nil {
			logger.Error("Delivery processing failed", err)
		}
	}
}
