package repository

import (
	"context"

	"github.com/google/uuid"

	"openpayflow/internal/domains/merchant/model"
)

// MerchantRepoInterface is the data access contract for merchants.
type MerchantRepoInterface interface {
	// Create inserts a merchant (seeding, tests).
	Create(ctx context.Context, merchant *model.Merchant) error

	// GetByID gets a merchant by id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Merchant, error)

	// GetByAPIKeyHash gets an active merchant by the SHA-256 of its API key.
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*model.Merchant, error)
}
