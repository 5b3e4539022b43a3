package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	eventmodel "openpayflow/internal/domains/event/model"
	eventrepo "openpayflow/internal/domains/event/repository"
	"openpayflow/internal/domains/payment/gateway"
	"openpayflow/internal/domains/payment/model"
	"openpayflow/internal/domains/payment/repository"
	"openpayflow/internal/shared"
	"openpayflow/pkg/cache"
	"openpayflow/pkg/logger"
)

// =====================================================
// PAYMENT SERVICE IMPLEMENTATION
// =====================================================

const (
	idempotencyCacheTTL = 24 * time.Hour
	gatewayCallTimeout  = 30 * time.Second
	recentAttemptsLimit = 5
)

func idempotencyCacheKey(merchantID uuid.UUID, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", merchantID, key)
}

type paymentService struct {
	paymentRepo repository.PaymentRepoInterface
	attemptRepo repository.AttemptRepoInterface
	refundRepo  repository.RefundRepoInterface
	outboxRepo  eventrepo.OutboxRepoInterface
	txManager   repository.TransactionManager
	gateways    map[string]gateway.PaymentGateway
	cacheStore  cache.Cache
}

func NewPaymentService(
	paymentRepo repository.PaymentRepoInterface,
	attemptRepo repository.AttemptRepoInterface,
	refundRepo repository.RefundRepoInterface,
	outboxRepo eventrepo.OutboxRepoInterface,
	txManager repository.TransactionManager,
	gateways map[string]gateway.PaymentGateway,
	cacheStore cache.Cache,
) PaymentServiceInterface {
	return &paymentService{
		paymentRepo: paymentRepo,
		attemptRepo: attemptRepo,
		refundRepo:  refundRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		gateways:    gateways,
		cacheStore:  cacheStore,
	}
}

// =====================================================
// CREATE PAYMENT
// =====================================================

// CreatePayment runs the intake flow:
//  1. Replay check: cache first, then the store, keyed by
//     (merchant, idempotency key). A hit returns the stored payment.
//  2. Insert payment and attempt #1 as pending in one transaction. A
//     unique violation means a concurrent request won the race; the
//     winner's row is read back and replayed.
//  3. Transition both rows to processing.
//  4. Call the gateway with a bounded timeout.
//  5. Record the outcome and the payment.created outbox row in one
//     final transaction.
func (s *paymentService) CreatePayment(
	ctx context.Context,
	merchantID uuid.UUID,
	idempotencyKey string,
	req *model.CreatePaymentRequest,
) (*model.Payment, bool, error) {
	// Step 1: Validate
	if err := req.Validate(); err != nil {
		return nil, false, model.NewValidationError(err.Error(), err)
	}

	gw, ok := s.gateways[req.Gateway]
	if !ok {
		return nil, false, model.NewGatewayDisabledError(req.Gateway)
	}

	// Step 2: Replay check
	if prior, found := s.lookupReplay(ctx, merchantID, idempotencyKey); found {
		return prior, true, nil
	}

	// Step 3: Insert payment + attempt #1 as pending
	payment := &model.Payment{
		ID:             uuid.New(),
		MerchantID:     merchantID,
		Amount:         req.Amount,
		Currency:       req.NormalizedCurrency(),
		Status:         model.PaymentStatusPending,
		Gateway:        req.Gateway,
		IdempotencyKey: idempotencyKey,
		Metadata:       req.Metadata,
	}
	attempt := &model.PaymentAttempt{
		ID:        uuid.New(),
		PaymentID: payment.ID,
		AttemptNo: 1,
		Status:    model.PaymentStatusPending,
	}

	err := s.inTx(ctx, func(tx txHandle) error {
		if err := s.paymentRepo.CreateWithTx(ctx, tx, payment); err != nil {
			return err
		}
		return s.attemptRepo.CreateWithTx(ctx, tx, attempt)
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateIdempotencyKey) {
			// Lost the insert race: replay the winner's payment.
			winner, getErr := s.paymentRepo.GetByMerchantAndKey(ctx, merchantID, idempotencyKey)
			if getErr != nil {
				return nil, false, fmt.Errorf("failed to load concurrent payment: %w", getErr)
			}
			s.cachePaymentID(ctx, merchantID, idempotencyKey, winner.ID)
			return winner, true, nil
		}
		return nil, false, err
	}

	// Step 4: Transition to processing
	err = s.inTx(ctx, func(tx txHandle) error {
		if err := s.paymentRepo.UpdateStatusWithTx(ctx, tx, payment.ID, model.PaymentStatusProcessing); err != nil {
			return err
		}
		return s.attemptRepo.UpdateStatusWithTx(ctx, tx, attempt.ID, model.PaymentStatusProcessing)
	})
	if err != nil {
		return nil, false, err
	}
	payment.Status = model.PaymentStatusProcessing

	// Step 5: Gateway call
	gwCtx, cancel := context.WithTimeout(ctx, gatewayCallTimeout)
	defer cancel()

	result, gwErr := gw.CreatePayment(gwCtx, gateway.ChargeRequest{
		PaymentID:      payment.ID.String(),
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		IdempotencyKey: idempotencyKey,
		Metadata:       payment.Metadata,
	})

	// Step 6: Record outcome + outbox row
	if gwErr != nil {
		if finErr := s.finalizeFailure(ctx, payment, attempt, gwErr); finErr != nil {
			logger.Error("Failed to record gateway failure", finErr)
			return nil, false, finErr
		}
		s.cachePaymentID(ctx, merchantID, idempotencyKey, payment.ID)

		// The payment settles to failed but the fault itself is re-raised
		// so the caller sees the provider's code and status.
		logger.Error("Gateway call failed", gwErr)
		code, msg, httpStatus := "", gwErr.Error(), 0
		if ge, ok := gateway.AsGatewayError(gwErr); ok {
			code, msg, httpStatus = ge.ProviderCode, ge.Message, ge.HTTPStatus
		}
		return nil, false, model.NewGatewayFaultError(code, msg, httpStatus, gwErr)
	}

	if finErr := s.finalizeSuccess(ctx, payment, attempt, result); finErr != nil {
		return nil, false, finErr
	}
	s.cachePaymentID(ctx, merchantID, idempotencyKey, payment.ID)

	logger.Info("Payment created", map[string]interface{}{
		"payment_id": payment.ID.String(),
		"status":     payment.Status,
		"gateway":    payment.Gateway,
		"amount":     payment.Amount,
	})

	return payment, false, nil
}

// lookupReplay resolves an idempotency key to its prior payment, cache
// first, store second. Cache misses are back-populated.
func (s *paymentService) lookupReplay(ctx context.Context, merchantID uuid.UUID, key string) (*model.Payment, bool) {
	cacheKey := idempotencyCacheKey(merchantID, key)

	var paymentID uuid.UUID
	found, err := s.cacheStore.Get(ctx, cacheKey, &paymentID)
	if err != nil {
		logger.Debug("Idempotency cache lookup failed: " + err.Error())
	}
	if found {
		if payment, err := s.paymentRepo.GetByID(ctx, paymentID); err == nil {
			return payment, true
		}
	}

	payment, err := s.paymentRepo.GetByMerchantAndKey(ctx, merchantID, key)
	if err != nil {
		return nil, false
	}

	s.cachePaymentID(ctx, merchantID, key, payment.ID)
	return payment, true
}

func (s *paymentService) cachePaymentID(ctx context.Context, merchantID uuid.UUID, key string, paymentID uuid.UUID) {
	cacheKey := idempotencyCacheKey(merchantID, key)
	if err := s.cacheStore.Set(ctx, cacheKey, paymentID, idempotencyCacheTTL); err != nil {
		logger.Debug("Failed to cache idempotency key: " + err.Error())
	}
}

// finalizeSuccess maps the normalized gateway status onto the payment
// and writes everything plus the outbox row in one transaction.
func (s *paymentService) finalizeSuccess(
	ctx context.Context,
	payment *model.Payment,
	attempt *model.PaymentAttempt,
	result *gateway.ChargeResult,
) error {
	status := model.PaymentStatusFailed
	switch result.Status {
	case gateway.StatusSucceeded:
		status = model.PaymentStatusSucceeded
	case gateway.StatusProcessing:
		status = model.PaymentStatusProcessing
	case gateway.StatusRequiresAction:
		status = model.PaymentStatusRequiresAction
	}

	providerID := &result.ProviderPaymentID

	err := s.inTx(ctx, func(tx txHandle) error {
		if err := s.paymentRepo.FinalizeWithTx(ctx, tx, payment.ID, status, providerID); err != nil {
			return err
		}
		if err := s.attemptRepo.FinalizeWithTx(ctx, tx, attempt.ID, status, nil, nil, result.Raw); err != nil {
			return err
		}
		return s.appendPaymentCreatedWithTx(ctx, tx, payment, status, providerID)
	})
	if err != nil {
		return err
	}

	payment.Status = status
	payment.ProviderPaymentID = providerID
	return nil
}

// finalizeFailure marks payment and attempt failed and still announces
// the payment via the outbox, so subscribers learn about declines too.
func (s *paymentService) finalizeFailure(
	ctx context.Context,
	payment *model.Payment,
	attempt *model.PaymentAttempt,
	gwErr error,
) error {
	errCode := model.ErrCodeGatewayError
	errMsg := gwErr.Error()
	if ge, ok := gateway.AsGatewayError(gwErr); ok && ge.ProviderCode != "" {
		errCode = ge.ProviderCode
		errMsg = ge.Message
	}

	err := s.inTx(ctx, func(tx txHandle) error {
		if err := s.paymentRepo.FinalizeWithTx(ctx, tx, payment.ID, model.PaymentStatusFailed, nil); err != nil {
			return err
		}
		if err := s.attemptRepo.FinalizeWithTx(ctx, tx, attempt.ID, model.PaymentStatusFailed, &errCode, &errMsg, nil); err != nil {
			return err
		}
		return s.appendPaymentCreatedWithTx(ctx, tx, payment, model.PaymentStatusFailed, nil)
	})
	if err != nil {
		return err
	}

	payment.Status = model.PaymentStatusFailed
	return nil
}

func (s *paymentService) appendPaymentCreatedWithTx(
	ctx context.Context,
	tx txHandle,
	payment *model.Payment,
	status string,
	providerID *string,
) error {
	snapshot := model.SnapshotOf(payment)
	snapshot.Status = status
	snapshot.ProviderPaymentID = providerID

	return s.outboxRepo.CreateWithTx(ctx, tx, &eventmodel.OutboxMessage{
		ID:            uuid.New(),
		AggregateType: model.AggregatePayment,
		AggregateID:   payment.ID,
		EventType:     model.EventPaymentCreated,
		Payload: map[string]interface{}{
			"paymentSnapshot": snapshotPayload(snapshot),
			"correlationId":   shared.CorrelationID(ctx),
		},
	})
}

// =====================================================
// READ PATHS
// =====================================================

// GetPayment returns the payment with its recent attempts and refunds.
func (s *paymentService) GetPayment(ctx context.Context, merchantID, paymentID uuid.UUID) (*model.PaymentDetailResponse, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, model.ErrPaymentNotFound) {
			return nil, model.NewPaymentNotFoundError(paymentID.String())
		}
		return nil, err
	}

	// Cross-merchant reads look identical to missing payments.
	if payment.MerchantID != merchantID {
		return nil, model.NewPaymentNotFoundError(paymentID.String())
	}

	attempts, err := s.attemptRepo.ListRecentByPayment(ctx, paymentID, recentAttemptsLimit)
	if err != nil {
		return nil, err
	}

	refunds, err := s.refundRepo.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	return &model.PaymentDetailResponse{
		Payment:  payment,
		Attempts: attempts,
		Refunds:  refunds,
	}, nil
}

func (s *paymentService) ListPayments(
	ctx context.Context,
	merchantID uuid.UUID,
	query *model.ListPaymentsQuery,
) ([]*model.Payment, int, error) {
	query.Normalize()
	return s.paymentRepo.ListByMerchant(ctx, merchantID, query)
}
