package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openpayflow/internal/domains/payment/model"
)

// chargedPayment runs a real intake through the fixture's mock gateway
// so refunds have a provider-side charge to settle against.
func chargedPayment(t *testing.T, f *paymentFixture, merchantID uuid.UUID) *model.Payment {
	t.Helper()
	payment, _, err := f.payments.CreatePayment(context.Background(), merchantID, uuid.NewString(), validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusSucceeded, payment.Status)
	return payment
}

func refundAmount(v int64) *int64 { return &v }

func TestCreateRefund_PartialRefundSucceeds(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()
	payment := chargedPayment(t, f, merchantID)

	refund, err := f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		Amount:         refundAmount(1000),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RefundStatusSucceeded, refund.Status)
	assert.Equal(t, int64(1000), refund.Amount)
	require.NotNil(t, refund.ProviderRefundID)

	msgs := f.outboxRepo.byEventType(model.EventRefundCreated)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.AggregateRefund, msgs[0].AggregateType)
	assert.Equal(t, refund.ID, msgs[0].AggregateID)
	snapshot, ok := msgs[0].Payload["refundSnapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, model.RefundStatusSucceeded, snapshot["status"])

	// The bound check serializes on the payment row.
	assert.GreaterOrEqual(t, f.paymentRepo.locks, 1)
}

func TestCreateRefund_OmittedAmountRefundsRemainingBalance(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()
	payment := chargedPayment(t, f, merchantID)

	_, err := f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		Amount:         refundAmount(1000),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.NoError(t, err)

	refund, err := f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.NoError(t, err)
	assert.Equal(t, payment.Amount-1000, refund.Amount)
}

func TestCreateRefund_OverRefundRejected(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()
	payment := chargedPayment(t, f, merchantID)

	_, err := f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		Amount:         refundAmount(payment.Amount + 1),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.Error(t, err)

	var pErr *model.PaymentError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, model.ErrCodeRefundExceedsPayment, pErr.Code)
}

func TestCreateRefund_CumulativeRefundsBoundedByPayment(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()
	payment := chargedPayment(t, f, merchantID)

	_, err := f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		Amount:         refundAmount(2000),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.NoError(t, err)

	// 2000 already refunded of 2500; another 1000 must not fit.
	_, err = f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		Amount:         refundAmount(1000),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.Error(t, err)

	var pErr *model.PaymentError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, model.ErrCodeRefundExceedsPayment, pErr.Code)
}

func TestCreateRefund_FullyRefundedPaymentRejectsMore(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()
	payment := chargedPayment(t, f, merchantID)

	_, err := f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.NoError(t, err)

	// Remaining balance is zero; an open-amount refund has nothing left.
	_, err = f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.Error(t, err)

	var pErr *model.PaymentError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, model.ErrCodeRefundExceedsPayment, pErr.Code)
}

func TestCreateRefund_FailedPaymentNotRefundable(t *testing.T) {
	f := newPaymentFixture(0.0)
	merchantID := uuid.New()

	_, _, err := f.payments.CreatePayment(context.Background(), merchantID, "key-1", validCreateRequest())
	require.Error(t, err)

	payment, err := f.paymentRepo.GetByMerchantAndKey(context.Background(), merchantID, "key-1")
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusFailed, payment.Status)

	_, err = f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		Amount:         refundAmount(100),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.Error(t, err)

	var pErr *model.PaymentError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, model.ErrCodePaymentNotRefundable, pErr.Code)
}

func TestCreateRefund_CrossMerchantLooksLikeMissingPayment(t *testing.T) {
	f := newPaymentFixture(1.0)
	payment := chargedPayment(t, f, uuid.New())

	_, err := f.refunds.CreateRefund(context.Background(), uuid.New(), &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		Amount:         refundAmount(100),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.Error(t, err)

	var pErr *model.PaymentError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, model.ErrCodePaymentNotFound, pErr.Code)
}

func TestCreateRefund_RejectsInvalidRequest(t *testing.T) {
	f := newPaymentFixture(1.0)

	cases := []struct {
		name string
		req  *model.CreateRefundRequest
	}{
		{"missing payment id", &model.CreateRefundRequest{MerchantAPIKey: "sk_test"}},
		{"malformed payment id", &model.CreateRefundRequest{PaymentID: "not-a-uuid", MerchantAPIKey: "sk_test"}},
		{"zero amount", &model.CreateRefundRequest{PaymentID: uuid.NewString(), Amount: refundAmount(0), MerchantAPIKey: "sk_test"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.refunds.CreateRefund(context.Background(), uuid.New(), tc.req)
			require.Error(t, err)

			var pErr *model.PaymentError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, model.ErrCodeValidationFailed, pErr.Code)
		})
	}
}

func TestGetRefund_ScopedToMerchant(t *testing.T) {
	f := newPaymentFixture(1.0)
	merchantID := uuid.New()
	payment := chargedPayment(t, f, merchantID)

	created, err := f.refunds.CreateRefund(context.Background(), merchantID, &model.CreateRefundRequest{
		PaymentID:      payment.ID.String(),
		Amount:         refundAmount(500),
		MerchantAPIKey: "sk_test_merchant",
	})
	require.NoError(t, err)

	got, err := f.refunds.GetRefund(context.Background(), merchantID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = f.refunds.GetRefund(context.Background(), uuid.New(), created.ID)
	assert.ErrorIs(t, err, model.ErrRefundNotFound)
}
