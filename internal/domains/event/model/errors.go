package model

import "errors"

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrOutboxNotFound = errors.New("outbox message not found")
)
