package shared

// Asynq task type names.
const (
	TypeDrainOutbox     = "outbox:drain"
	TypeRetrySweep      = "webhook:retry_sweep"
	TypePurgeOutbox     = "housekeeper:purge_outbox"
	TypePurgeDeliveries = "housekeeper:purge_deliveries"
	TypePurgeEvents     = "housekeeper:purge_events"
)

// Asynq queue names by priority.
const (
	QueueHigh    = "high"
	QueueDefault = "default"
	QueueLow     = "low"
)

// Redis list names for the delivery work queue and the dead-letter log.
// The lists are a hint that accelerates delivery; the store stays
// authoritative and the retry sweep re-discovers due work after a crash.
const (
	DeliveryQueueKey = "webhook:delivery"
	DeadLetterKey    = "dead:letter"
)

// DrainOutboxPayload bounds one drainer pass.
type DrainOutboxPayload struct {
	BatchSize int `json:"batchSize"`
}

// RetrySweepPayload bounds one retry sweep pass.
type RetrySweepPayload struct {
	Limit int `json:"limit"`
}

// PurgePayload bounds one housekeeping delete batch.
type PurgePayload struct {
	BatchSize int `json:"batchSize"`
}
