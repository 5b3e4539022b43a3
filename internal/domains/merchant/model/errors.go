package model

import "errors"

var (
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrInvalidAPIKey    = errors.New("invalid API key")
)
