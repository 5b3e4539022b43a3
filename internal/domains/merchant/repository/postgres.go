package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"openpayflow/internal/domains/merchant/model"
)

type merchantRepository struct {
	pool *pgxpool.Pool
}

func NewMerchantRepository(pool *pgxpool.Pool) MerchantRepoInterface {
	return &merchantRepository{pool: pool}
}

func (r *merchantRepository) Create(ctx context.Context, merchant *model.Merchant) error {
	query := `
		INSERT INTO merchants (id, name, api_key_hash, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		merchant.ID,
		merchant.Name,
		merchant.APIKeyHash,
		merchant.IsActive,
	).Scan(&merchant.CreatedAt, &merchant.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create merchant: %w", err)
	}

	return nil
}

func (r *merchantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Merchant, error) {
	query := `
		SELECT id, name, api_key_hash, is_active, created_at, updated_at
		FROM merchants
		WHERE id = $1
	`

	merchant := &model.Merchant{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&merchant.ID,
		&merchant.Name,
		&merchant.APIKeyHash,
		&merchant.IsActive,
		&merchant.CreatedAt,
		&merchant.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMerchantNotFound
		}
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	return merchant, nil
}

func (r *merchantRepository) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*model.Merchant, error) {
	query := `
		SELECT id, name, api_key_hash, is_active, created_at, updated_at
		FROM merchants
		WHERE api_key_hash = $1 AND is_active = true
	`

	merchant := &model.Merchant{}
	err := r.pool.QueryRow(ctx, query, apiKeyHash).Scan(
		&merchant.ID,
		&merchant.Name,
		&merchant.APIKeyHash,
		&merchant.IsActive,
		&merchant.CreatedAt,
		&merchant.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMerchantNotFound
		}
		return nil, fmt.Errorf("failed to get merchant by api key hash: %w", err)
	}

	return merchant, nil
}
