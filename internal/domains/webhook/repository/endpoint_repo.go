package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"openpayflow/internal/domains/webhook/model"
)

// =====================================================
// WEBHOOK ENDPOINT REPOSITORY IMPLEMENTATION
// =====================================================

type endpointRepository struct {
	pool *pgxpool.Pool
}

func NewEndpointRepository(pool *pgxpool.Pool) EndpointRepoInterface {
	return &endpointRepository{pool: pool}
}

const endpointColumns = `
	id, merchant_id, url, secret, events, is_active, created_at, updated_at
`

func scanEndpoint(row pgx.Row) (*model.WebhookEndpoint, error) {
	endpoint := &model.WebhookEndpoint{}
	err := row.Scan(
		&endpoint.ID,
		&endpoint.MerchantID,
		&endpoint.URL,
		&endpoint.Secret,
		&endpoint.Events,
		&endpoint.IsActive,
		&endpoint.CreatedAt,
		&endpoint.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return endpoint, nil
}

// Create registers a new endpoint
func (r *endpointRepository) Create(ctx context.Context, endpoint *model.WebhookEndpoint) error {
	query := `
		INSERT INTO webhook_endpoints (
			id, merchant_id, url, secret, events, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		endpoint.ID,
		endpoint.MerchantID,
		endpoint.URL,
		endpoint.Secret,
		endpoint.Events,
		endpoint.IsActive,
	).Scan(&endpoint.CreatedAt, &endpoint.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create webhook endpoint: %w", err)
	}

	return nil
}

// GetByID gets endpoint by ID
func (r *endpointRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WebhookEndpoint, error) {
	query := `SELECT ` + endpointColumns + ` FROM webhook_endpoints WHERE id = $1`

	endpoint, err := scanEndpoint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEndpointNotFound
		}
		return nil, fmt.Errorf("failed to get webhook endpoint: %w", err)
	}

	return endpoint, nil
}

// GetByIDForMerchant gets endpoint by ID scoped to its owner
func (r *endpointRepository) GetByIDForMerchant(ctx context.Context, id, merchantID uuid.UUID) (*model.WebhookEndpoint, error) {
	query := `
		SELECT ` + endpointColumns + `
		FROM webhook_endpoints
		WHERE id = $1 AND merchant_id = $2
	`

	endpoint, err := scanEndpoint(r.pool.QueryRow(ctx, query, id, merchantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEndpointNotFound
		}
		return nil, fmt.Errorf("failed to get webhook endpoint: %w", err)
	}

	return endpoint, nil
}

// ListByMerchant lists a merchant's endpoints, newest first
func (r *endpointRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]*model.WebhookEndpoint, error) {
	query := `
		SELECT ` + endpointColumns + `
		FROM webhook_endpoints
		WHERE merchant_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*model.WebhookEndpoint
	for rows.Next() {
		endpoint, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook endpoint: %w", err)
		}
		endpoints = append(endpoints, endpoint)
	}

	return endpoints, nil
}

// Update persists URL, secret, events and active flag changes
func (r *endpointRepository) Update(ctx context.Context, endpoint *model.WebhookEndpoint) error {
	query := `
		UPDATE webhook_endpoints
		SET url = $1,
			secret = $2,
			events = $3,
			is_active = $4,
			updated_at = NOW()
		WHERE id = $5 AND merchant_id = $6
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		endpoint.URL,
		endpoint.Secret,
		endpoint.Events,
		endpoint.IsActive,
		endpoint.ID,
		endpoint.MerchantID,
	).Scan(&endpoint.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrEndpointNotFound
		}
		return fmt.Errorf("failed to update webhook endpoint: %w", err)
	}

	return nil
}

// Deactivate soft-removes an endpoint. Existing deliveries keep their
// history; no new deliveries are fanned out to it.
func (r *endpointRepository) Deactivate(ctx context.Context, id, merchantID uuid.UUID) error {
	query := `
		UPDATE webhook_endpoints
		SET is_active = FALSE,
			updated_at = NOW()
		WHERE id = $1 AND merchant_id = $2
	`

	result, err := r.pool.Exec(ctx, query, id, merchantID)
	if err != nil {
		return fmt.Errorf("failed to deactivate webhook endpoint: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrEndpointNotFound
	}

	return nil
}

// ListActiveByEventTypeWithTx returns active endpoints subscribed to the
// event type. An empty events array subscribes to everything.
func (r *endpointRepository) ListActiveByEventTypeWithTx(
	ctx context.Context,
	tx pgx.Tx,
	eventType string,
) ([]*model.WebhookEndpoint, error) {
	query := `
		SELECT ` + endpointColumns + `
		FROM webhook_endpoints
		WHERE is_active = TRUE
		AND (events = '{}' OR $1 = ANY(events))
	`

	rows, err := tx.Query(ctx, query, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribed endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*model.WebhookEndpoint
	for rows.Next() {
		endpoint, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook endpoint: %w", err)
		}
		endpoints = append(endpoints, endpoint)
	}

	return endpoints, nil
}
