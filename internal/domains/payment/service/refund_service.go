package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	eventmodel "openpayflow/internal/domains/event/model"
	eventrepo "openpayflow/internal/domains/event/repository"
	"openpayflow/internal/domains/payment/gateway"
	"openpayflow/internal/domains/payment/model"
	"openpayflow/internal/domains/payment/repository"
	"openpayflow/internal/shared"
	"openpayflow/pkg/logger"
)

// =====================================================
// REFUND SERVICE IMPLEMENTATION
// =====================================================

type refundService struct {
	paymentRepo repository.PaymentRepoInterface
	refundRepo  repository.RefundRepoInterface
	outboxRepo  eventrepo.OutboxRepoInterface
	txManager   repository.TransactionManager
	gateways    map[string]gateway.PaymentGateway
}

func NewRefundService(
	paymentRepo repository.PaymentRepoInterface,
	refundRepo repository.RefundRepoInterface,
	outboxRepo eventrepo.OutboxRepoInterface,
	txManager repository.TransactionManager,
	gateways map[string]gateway.PaymentGateway,
) RefundServiceInterface {
	return &refundService{
		paymentRepo: paymentRepo,
		refundRepo:  refundRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		gateways:    gateways,
	}
}

// CreateRefund validates the refund against the parent payment,
// reserves the amount by inserting a pending refund row (the sum bound
// is checked inside the same transaction), then calls the gateway and
// finalizes together with the refund.created outbox row.
func (s *refundService) CreateRefund(
	ctx context.Context,
	merchantID uuid.UUID,
	req *model.CreateRefundRequest,
) (*model.Refund, error) {
	// Step 1: Validate
	if err := req.Validate(); err != nil {
		return nil, model.NewValidationError(err.Error(), err)
	}

	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		return nil, model.NewValidationError("paymentId must be a valid UUID", err)
	}

	// Step 2: Load and check the parent payment
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, model.ErrPaymentNotFound) {
			return nil, model.NewPaymentNotFoundError(req.PaymentID)
		}
		return nil, err
	}
	if payment.MerchantID != merchantID {
		return nil, model.NewPaymentNotFoundError(req.PaymentID)
	}
	if !payment.CanBeRefunded() {
		return nil, model.NewPaymentNotRefundableError(payment.Status)
	}

	gw, ok := s.gateways[payment.Gateway]
	if !ok {
		return nil, model.NewGatewayDisabledError(payment.Gateway)
	}

	// Omitted amount means refund the full remaining balance.
	amount := payment.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}

	refund := &model.Refund{
		ID:        uuid.New(),
		PaymentID: paymentID,
		Amount:    amount,
		Reason:    req.Reason,
		Status:    model.RefundStatusPending,
	}

	// Step 3: Reserve the amount. The payment row is locked first so
	// concurrent refunds serialize; the sum of live refunds is then read
	// in the same transaction as the insert, and the pair cannot jointly
	// exceed the payment.
	err = runInTx(ctx, s.txManager, func(tx txHandle) error {
		if err := s.paymentRepo.LockWithTx(ctx, tx, paymentID); err != nil {
			return err
		}

		alreadyRefunded, err := s.refundRepo.SumSucceededByPaymentWithTx(ctx, tx, paymentID)
		if err != nil {
			return err
		}

		remaining := payment.Amount - alreadyRefunded
		if req.Amount == nil {
			if remaining <= 0 {
				return model.NewRefundExceedsPaymentError(0, 0)
			}
			refund.Amount = remaining
		} else if refund.Amount > remaining {
			return model.NewRefundExceedsPaymentError(refund.Amount, remaining)
		}

		return s.refundRepo.CreateWithTx(ctx, tx, refund)
	})
	if err != nil {
		return nil, err
	}

	// Step 4: Gateway call
	gwCtx, cancel := context.WithTimeout(ctx, gatewayCallTimeout)
	defer cancel()

	providerPaymentID := ""
	if payment.ProviderPaymentID != nil {
		providerPaymentID = *payment.ProviderPaymentID
	}
	reason := ""
	if refund.Reason != nil {
		reason = *refund.Reason
	}

	result, gwErr := gw.RefundPayment(gwCtx, gateway.RefundRequest{
		RefundID:          refund.ID.String(),
		ProviderPaymentID: providerPaymentID,
		Amount:            refund.Amount,
		Currency:          payment.Currency,
		Reason:            reason,
	})

	// Step 5: Finalize + outbox
	if gwErr != nil {
		if finErr := s.finalizeRefund(ctx, refund, model.RefundStatusFailed, nil); finErr != nil {
			return nil, finErr
		}
		logger.Error("Gateway refund failed", gwErr)
		return refund, nil
	}

	status := model.RefundStatusFailed
	switch result.Status {
	case gateway.StatusSucceeded:
		status = model.RefundStatusSucceeded
	case gateway.StatusProcessing:
		status = model.RefundStatusProcessing
	}

	if finErr := s.finalizeRefund(ctx, refund, status, &result.ProviderRefundID); finErr != nil {
		return nil, finErr
	}

	logger.Info("Refund created", map[string]interface{}{
		"refund_id":  refund.ID.String(),
		"payment_id": paymentID.String(),
		"amount":     refund.Amount,
		"status":     refund.Status,
	})

	return refund, nil
}

func (s *refundService) finalizeRefund(
	ctx context.Context,
	refund *model.Refund,
	status string,
	providerRefundID *string,
) error {
	err := runInTx(ctx, s.txManager, func(tx txHandle) error {
		if err := s.refundRepo.FinalizeWithTx(ctx, tx, refund.ID, status, providerRefundID); err != nil {
			return err
		}

		snapshot := model.SnapshotOfRefund(refund)
		snapshot.Status = status
		snapshot.ProviderRefundID = providerRefundID

		return s.outboxRepo.CreateWithTx(ctx, tx, &eventmodel.OutboxMessage{
			ID:            uuid.New(),
			AggregateType: model.AggregateRefund,
			AggregateID:   refund.ID,
			EventType:     model.EventRefundCreated,
			Payload: map[string]interface{}{
				"refundSnapshot": snapshotPayload(snapshot),
				"correlationId":  shared.CorrelationID(ctx),
			},
		})
	})
	if err != nil {
		return err
	}

	refund.Status = status
	refund.ProviderRefundID = providerRefundID
	return nil
}

// GetRefund returns a refund scoped to its payment's merchant.
func (s *refundService) GetRefund(ctx context.Context, merchantID, refundID uuid.UUID) (*model.Refund, error) {
	refund, err := s.refundRepo.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetByID(ctx, refund.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.MerchantID != merchantID {
		return nil, model.ErrRefundNotFound
	}

	return refund, nil
}
