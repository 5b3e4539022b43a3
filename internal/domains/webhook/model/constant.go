package model

import "time"

// =====================================================
// DELIVERY STATUSES
// =====================================================

const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
	DeliveryStatusAbandoned = "abandoned"
)

// =====================================================
// RETRY POLICY
// =====================================================

const (
	// MaxAttempts is the delivery attempt ceiling. The attempt that
	// would exceed it abandons the delivery instead.
	MaxAttempts = 10

	// InitialRetryDelay seeds the exponential backoff schedule.
	InitialRetryDelay = 1 * time.Second

	// MaxRetryDelay caps both the computed delay and how far into the
	// future a retry may be scheduled.
	MaxRetryDelay = 24 * time.Hour

	// JitterFraction is the upper bound of the uniform jitter added to
	// each backoff delay, as a fraction of the delay.
	JitterFraction = 0.1
)

// =====================================================
// SIGNATURE
// =====================================================

const (
	SignatureHeader   = "X-OpenPayFlow-Signature"
	EventIDHeader     = "X-OpenPayFlow-Event-Id"
	EventTypeHeader   = "X-OpenPayFlow-Event-Type"
	DeliveryIDHeader  = "X-OpenPayFlow-Delivery-Id"
	CorrelationHeader = "X-OpenPayFlow-Correlation-Id"

	UserAgent = "OpenPayFlow/1.0"
)
