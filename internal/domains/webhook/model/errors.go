package model

import "errors"

var (
	ErrEndpointNotFound = errors.New("webhook endpoint not found")
	ErrDeliveryNotFound = errors.New("webhook delivery not found")

	// ErrAttemptConflict signals that another sender advanced the
	// delivery's attempt count first.
	ErrAttemptConflict = errors.New("delivery attempt count changed concurrently")
)
