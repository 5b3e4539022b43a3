package main

import (
	"github.com/hibiken/asynq"

	eventJob "openpayflow/internal/domains/event/job"
	webhookJob "openpayflow/internal/domains/webhook/job"
	"openpayflow/internal/shared"
	"openpayflow/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Outbox handlers
	drainOutbox *eventJob.DrainOutboxHandler

	// Webhook handlers
	retrySweep *webhookJob.RetrySweepHandler

	// Housekeeping handlers
	purgeOutbox     *eventJob.PurgeOutboxHandler
	purgeDeliveries *webhookJob.PurgeDeliveriesHandler
	purgeEvents     *eventJob.PurgeEventsHandler
}

// initializeHandlers wires all job handlers from the container
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		// Outbox handlers
		drainOutbox: c.DrainOutboxJob,

		// Webhook handlers
		retrySweep: c.RetrySweepJob,

		// Housekeeping handlers
		purgeOutbox:     c.PurgeOutboxJob,
		purgeDeliveries: c.PurgeDeliveriesJob,
		purgeEvents:     c.PurgeEventsJob,
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	// Outbox tasks
	mux.HandleFunc(shared.TypeDrainOutbox, h.drainOutbox.ProcessTask)

	// Webhook tasks
	mux.HandleFunc(shared.TypeRetrySweep, h.retrySweep.ProcessTask)

	// Housekeeping tasks
	mux.HandleFunc(shared.TypePurgeOutbox, h.purgeOutbox.ProcessTask)
	mux.HandleFunc(shared.TypePurgeDeliveries, h.purgeDeliveries.ProcessTask)
	mux.HandleFunc(shared.TypePurgeEvents, h.purgeEvents.ProcessTask)
}
