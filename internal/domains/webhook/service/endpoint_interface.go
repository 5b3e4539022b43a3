package service

import (
	"context"

	"github.com/google/uuid"

	"openpayflow/internal/domains/webhook/model"
)

type EndpointServiceInterface interface {
	CreateEndpoint(ctx context.Context, merchantID uuid.UUID, req *model.CreateEndpointRequest) (*model.WebhookEndpoint, error)
	GetEndpoint(ctx context.Context, merchantID, endpointID uuid.UUID) (*model.WebhookEndpoint, error)
	ListEndpoints(ctx context.Context, merchantID uuid.UUID) ([]*model.WebhookEndpoint, error)
	UpdateEndpoint(ctx context.Context, merchantID, endpointID uuid.UUID, req *model.UpdateEndpointRequest) (*model.WebhookEndpoint, error)
	DeleteEndpoint(ctx context.Context, merchantID, endpointID uuid.UUID) error
	ListDeliveries(ctx context.Context, merchantID, endpointID uuid.UUID, query *model.ListDeliveriesQuery) ([]*model.WebhookDelivery, int, error)
}
