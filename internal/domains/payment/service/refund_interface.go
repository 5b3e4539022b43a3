package service

import (
	"context"

	"github.com/google/uuid"

	"openpayflow/internal/domains/payment/model"
)

type RefundServiceInterface interface {
	CreateRefund(ctx context.Context, merchantID uuid.UUID, req *model.CreateRefundRequest) (*model.Refund, error)
	GetRefund(ctx context.Context, merchantID, refundID uuid.UUID) (*model.Refund, error)
}
