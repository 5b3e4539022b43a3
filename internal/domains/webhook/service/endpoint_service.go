package service

import (
	"context"

	"github.com/google/uuid"

	paymentmodel "openpayflow/internal/domains/payment/model"
	"openpayflow/internal/domains/webhook/model"
	"openpayflow/internal/domains/webhook/repository"
	"openpayflow/pkg/logger"
)

// =====================================================
// WEBHOOK ENDPOINT SERVICE IMPLEMENTATION
// =====================================================

type endpointService struct {
	endpointRepo repository.EndpointRepoInterface
	deliveryRepo repository.DeliveryRepoInterface
}

func NewEndpointService(
	endpointRepo repository.EndpointRepoInterface,
	deliveryRepo repository.DeliveryRepoInterface,
) EndpointServiceInterface {
	return &endpointService{
		endpointRepo: endpointRepo,
		deliveryRepo: deliveryRepo,
	}
}

func (s *endpointService) CreateEndpoint(
	ctx context.Context,
	merchantID uuid.UUID,
	req *model.CreateEndpointRequest,
) (*model.WebhookEndpoint, error) {
	if err := req.Validate(); err != nil {
		return nil, paymentmodel.NewValidationError(err.Error(), err)
	}

	endpoint := &model.WebhookEndpoint{
		ID:         uuid.New(),
		MerchantID: merchantID,
		URL:        req.URL,
		Secret:     req.Secret,
		Events:     req.Events,
		IsActive:   true,
	}

	if err := s.endpointRepo.Create(ctx, endpoint); err != nil {
		return nil, err
	}

	logger.Info("Webhook endpoint created", map[string]interface{}{
		"endpoint_id": endpoint.ID.String(),
		"merchant_id": merchantID.String(),
		"url":         endpoint.URL,
	})

	return endpoint, nil
}

func (s *endpointService) GetEndpoint(ctx context.Context, merchantID, endpointID uuid.UUID) (*model.WebhookEndpoint, error) {
	return s.endpointRepo.GetByIDForMerchant(ctx, endpointID, merchantID)
}

func (s *endpointService) ListEndpoints(ctx context.Context, merchantID uuid.UUID) ([]*model.WebhookEndpoint, error) {
	return s.endpointRepo.ListByMerchant(ctx, merchantID)
}

func (s *endpointService) UpdateEndpoint(
	ctx context.Context,
	merchantID, endpointID uuid.UUID,
	req *model.UpdateEndpointRequest,
) (*model.WebhookEndpoint, error) {
	if err := req.Validate(); err != nil {
		return nil, paymentmodel.NewValidationError(err.Error(), err)
	}

	endpoint, err := s.endpointRepo.GetByIDForMerchant(ctx, endpointID, merchantID)
	if err != nil {
		return nil, err
	}

	if req.URL != nil {
		endpoint.URL = *req.URL
	}
	if req.Secret != nil {
		endpoint.Secret = *req.Secret
	}
	if req.Events != nil {
		endpoint.Events = req.Events
	}
	if req.IsActive != nil {
		endpoint.IsActive = *req.IsActive
	}

	if err := s.endpointRepo.Update(ctx, endpoint); err != nil {
		return nil, err
	}

	return endpoint, nil
}

// DeleteEndpoint deactivates rather than removes, preserving the
// delivery history attached to the endpoint.
func (s *endpointService) DeleteEndpoint(ctx context.Context, merchantID, endpointID uuid.UUID) error {
	return s.endpointRepo.Deactivate(ctx, endpointID, merchantID)
}

func (s *endpointService) ListDeliveries(
	ctx context.Context,
	merchantID, endpointID uuid.UUID,
	query *model.ListDeliveriesQuery,
) ([]*model.WebhookDelivery, int, error) {
	// Ownership check before touching the delivery log.
	if _, err := s.endpointRepo.GetByIDForMerchant(ctx, endpointID, merchantID); err != nil {
		return nil, 0, err
	}

	query.Normalize()
	return s.deliveryRepo.ListByEndpoint(ctx, endpointID, query)
}
