package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openpayflow/internal/config"
	"openpayflow/internal/domains/payment/gateway"
	"openpayflow/internal/domains/payment/gateway/mock"
	"openpayflow/internal/domains/payment/model"
	"openpayflow/internal/shared"
)

// =====================================================
// FIXTURE
// =====================================================

type paymentFixture struct {
	paymentRepo *fakePaymentRepo
	attemptRepo *fakeAttemptRepo
	refundRepo  *fakeRefundRepo
	outboxRepo  *fakeOutboxRepo
	txManager   *fakeTxManager
	cache       *fakeCache
	mockGateway *mock.Gateway

	payments PaymentServiceInterface
	refunds  RefundServiceInterface
}

func newPaymentFixture(successRate float64) *paymentFixture {
	f := &paymentFixture{
		paymentRepo: newFakePaymentRepo(),
		attemptRepo: newFakeAttemptRepo(),
		refundRepo:  newFakeRefundRepo(),
		outboxRepo:  &fakeOutboxRepo{},
		txManager:   &fakeTxManager{},
		cache:       newFakeCache(),
		mockGateway: mock.NewGateway(config.MockConfig{SuccessRate: successRate}),
	}

	gateways := map[string]gateway.PaymentGateway{
		model.GatewayMock: f.mockGateway,
	}

	f.payments = NewPaymentService(
		f.paymentRepo, f.attemptRepo, f.refundRepo, f.outboxRepo,
		f.txManager, gateways, f.cache,
	)
	f.refunds = NewRefundService(
		f.paymentRepo, f.refundRepo, f.outboxRepo, f.txManager, gateways,
	)
	return f
}

func validCreateRequest() *model.CreatePaymentRequest {
	return &model.CreatePaymentRequest{
		Amount:         2500,
		Currency:       "usd",
		Gateway:        model.GatewayMock,
		MerchantAPIKey: "sk_test_merchant",
	}
}

// =====================================================
// CREATE PAYMENT
// =====================================================

func TestCreatePayment_SucceedsAndWritesOutbox(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()

	payment, replayed, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.NoError(t, err)
	assert.False(t, replayed)

	assert.Equal(t, model.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, "USD", payment.Currency)
	assert.Equal(t, int64(2500), payment.Amount)
	require.NotNil(t, payment.ProviderPaymentID)

	// Exactly one payment.created row, carrying the final status inside
	// the snapshot.
	msgs := f.outboxRepo.byEventType(model.EventPaymentCreated)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.AggregatePayment, msgs[0].AggregateType)
	assert.Equal(t, payment.ID, msgs[0].AggregateID)
	snapshot, ok := msgs[0].Payload["paymentSnapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, model.PaymentStatusSucceeded, snapshot["status"])

	// Attempt #1 settled with the payment.
	attempts, err := f.attemptRepo.ListRecentByPayment(context.Background(), payment.ID, 5)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 1, attempts[0].AttemptNo)
	assert.Equal(t, model.PaymentStatusSucceeded, attempts[0].Status)
}

func TestCreatePayment_SameKeyReplaysWithoutNewCharge(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()

	first, replayed, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.NoError(t, err)
	require.False(t, replayed)

	second, replayed, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	// No second charge, no second outbox row.
	assert.Len(t, f.outboxRepo.byEventType(model.EventPaymentCreated), 1)
}

func TestCreatePayment_SameKeyDifferentMerchantsAreIndependent(t *testing.T) {
	f := newPaymentFixture(1.0)

	first, _, err := f.payments.CreatePayment(context.Background(), uuid.New(), "key-1", validCreateRequest())
	require.NoError(t, err)

	second, replayed, err := f.payments.CreatePayment(context.Background(), uuid.New(), "key-1", validCreateRequest())
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreatePayment_ReplaySurvivesColdCache(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()

	first, _, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.NoError(t, err)

	// Simulate a cache flush; the store lookup must still replay.
	f.cache.items = map[string][]byte{}

	second, replayed, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreatePayment_DeclineFailsPaymentAndRaisesFault(t *testing.T) {
	f := newPaymentFixture(0.0)
	merchantID := uuid.New()

	_, _, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.Error(t, err)

	// The fault reaches the caller with the provider code and the
	// default 500 mapping.
	var pErr *model.PaymentError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "card_declined", pErr.Code)
	assert.Equal(t, 500, pErr.HTTPStatus)

	// The payment still settles to failed and the decline is announced.
	stored, getErr := f.paymentRepo.GetByMerchantAndKey(context.Background(), merchantID, "key-1")
	require.NoError(t, getErr)
	assert.Equal(t, model.PaymentStatusFailed, stored.Status)

	msgs := f.outboxRepo.byEventType(model.EventPaymentCreated)
	require.Len(t, msgs, 1)
	snapshot, ok := msgs[0].Payload["paymentSnapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, model.PaymentStatusFailed, snapshot["status"])

	// The attempt carries the provider decline code.
	attempts, attErr := f.attemptRepo.ListRecentByPayment(context.Background(), stored.ID, 5)
	require.NoError(t, attErr)
	require.Len(t, attempts, 1)
	require.NotNil(t, attempts[0].ErrorCode)
	assert.Equal(t, "card_declined", *attempts[0].ErrorCode)
}

func TestCreatePayment_DeclineIsReplayedOnRetry(t *testing.T) {
	f := newPaymentFixture(0.0)
	merchantID := uuid.New()

	_, _, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.Error(t, err)

	// The retry replays the settled failed payment instead of charging
	// again.
	second, replayed, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, model.PaymentStatusFailed, second.Status)
	assert.Len(t, f.outboxRepo.byEventType(model.EventPaymentCreated), 1)
}

func TestCreatePayment_OutboxCarriesCorrelationID(t *testing.T) {
	f := newPaymentFixture(1.0)
	ctx := shared.WithCorrelationID(context.Background(), "req-42")

	_, _, err := f.payments.CreatePayment(ctx, uuid.New(), "key-1", validCreateRequest())
	require.NoError(t, err)

	msgs := f.outboxRepo.byEventType(model.EventPaymentCreated)
	require.Len(t, msgs, 1)
	assert.Equal(t, "req-42", msgs[0].Payload["correlationId"])
}

func TestCreatePayment_AcceptsLowerAndUpperCaseCurrency(t *testing.T) {
	f := newPaymentFixture(1.0)

	lower := validCreateRequest()
	lower.Currency = "eur"
	payment, _, err := f.payments.CreatePayment(context.Background(), uuid.New(), "key-lower", lower)
	require.NoError(t, err)
	assert.Equal(t, "EUR", payment.Currency)

	upper := validCreateRequest()
	upper.Currency = "EUR"
	payment, _, err = f.payments.CreatePayment(context.Background(), uuid.New(), "key-upper", upper)
	require.NoError(t, err)
	assert.Equal(t, "EUR", payment.Currency)

	unknown := validCreateRequest()
	unknown.Currency = "zzz"
	_, _, err = f.payments.CreatePayment(context.Background(), uuid.New(), "key-bad", unknown)
	var pErr *model.PaymentError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, model.ErrCodeValidationFailed, pErr.Code)
}

func TestCreatePayment_RejectsInvalidRequest(t *testing.T) {
	f := newPaymentFixture(1.0)

	cases := []struct {
		name   string
		mutate func(req *model.CreatePaymentRequest)
	}{
		{"zero amount", func(r *model.CreatePaymentRequest) { r.Amount = 0 }},
		{"negative amount", func(r *model.CreatePaymentRequest) { r.Amount = -100 }},
		{"bad currency", func(r *model.CreatePaymentRequest) { r.Currency = "dollars" }},
		{"unknown gateway", func(r *model.CreatePaymentRequest) { r.Gateway = "paypal" }},
		{"missing api key", func(r *model.CreatePaymentRequest) { r.MerchantAPIKey = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(req)

			_, _, err := f.payments.CreatePayment(context.Background(), uuid.New(), "key-1", req)
			require.Error(t, err)

			var pErr *model.PaymentError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, model.ErrCodeValidationFailed, pErr.Code)
		})
	}
}

func TestCreatePayment_DisabledGatewayRejected(t *testing.T) {
	f := newPaymentFixture(1.0)

	req := validCreateRequest()
	req.Gateway = model.GatewayStripe // valid name, not wired in this fixture

	_, _, err := f.payments.CreatePayment(context.Background(), uuid.New(), "key-1", req)
	require.Error(t, err)

	var pErr *model.PaymentError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, model.ErrCodeGatewayDisabled, pErr.Code)
}

// =====================================================
// READ PATHS
// =====================================================

func TestGetPayment_ScopedToMerchant(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()

	payment, _, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.NoError(t, err)

	detail, err := f.payments.GetPayment(context.Background(), merchantID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, detail.Payment.ID)
	assert.Len(t, detail.Attempts, 1)

	// Another merchant sees nothing.
	_, err = f.payments.GetPayment(context.Background(), uuid.New(), payment.ID)
	require.Error(t, err)

	var pErr *model.PaymentError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, model.ErrCodePaymentNotFound, pErr.Code)
}

func TestListPayments_NormalizesPagination(t *testing.T) {
	q := &model.ListPaymentsQuery{Limit: 0, Offset: -5}
	q.Normalize()
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, 0, q.Offset)

	q = &model.ListPaymentsQuery{Limit: 500}
	q.Normalize()
	assert.Equal(t, 100, q.Limit)
}
