package service

import (
	"context"

	"openpayflow/internal/domains/merchant/model"
)

// MerchantService authenticates merchants by API key.
type MerchantService interface {
	// Authenticate resolves a raw API key to its merchant.
	// Returns model.ErrInvalidAPIKey when the key is unknown or inactive.
	Authenticate(ctx context.Context, apiKey string) (*model.Merchant, error)
}
