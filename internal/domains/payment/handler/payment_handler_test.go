package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merchantmodel "openpayflow/internal/domains/merchant/model"
	"openpayflow/internal/domains/payment/model"
	"openpayflow/internal/shared/response"
)

// =====================================================
// STUBS
// =====================================================

// stubMerchantService accepts exactly one API key.
type stubMerchantService struct {
	merchant *merchantmodel.Merchant
	apiKey   string
}

func (s *stubMerchantService) Authenticate(_ context.Context, apiKey string) (*merchantmodel.Merchant, error) {
	if apiKey != s.apiKey {
		return nil, merchantmodel.ErrInvalidAPIKey
	}
	return s.merchant, nil
}

type stubPaymentService struct {
	payment  *model.Payment
	replayed bool
	err      error
}

func (s *stubPaymentService) CreatePayment(_ context.Context, merchantID uuid.UUID, _ string, _ *model.CreatePaymentRequest) (*model.Payment, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return s.payment, s.replayed, nil
}

func (s *stubPaymentService) GetPayment(_ context.Context, _, _ uuid.UUID) (*model.PaymentDetailResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.PaymentDetailResponse{Payment: s.payment}, nil
}

func (s *stubPaymentService) ListPayments(_ context.Context, _ uuid.UUID, q *model.ListPaymentsQuery) ([]*model.Payment, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return []*model.Payment{s.payment}, 1, nil
}

// =====================================================
// FIXTURE
// =====================================================

func newHandlerRouter(payments *stubPaymentService) (*gin.Engine, *merchantmodel.Merchant) {
	gin.SetMode(gin.TestMode)

	merchant := &merchantmodel.Merchant{ID: uuid.New(), Name: "Acme", IsActive: true}
	h := NewPaymentHandler(payments, &stubMerchantService{merchant: merchant, apiKey: "sk_test_acme"})

	r := gin.New()
	r.POST("/v1/payments", h.CreatePayment)
	r.GET("/v1/payments", h.ListPayments)
	r.GET("/v1/payments/:id", h.GetPayment)
	return r, merchant
}

func paymentBody() []byte {
	raw, _ := json.Marshal(map[string]interface{}{
		"amount":         2500,
		"currency":       "USD",
		"gateway":        "mock",
		"merchantApiKey": "sk_test_acme",
	})
	return raw
}

func doRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// =====================================================
// TESTS
// =====================================================

func TestCreatePayment_Returns201OnFirstRequest(t *testing.T) {
	payment := &model.Payment{ID: uuid.New(), Amount: 2500, Currency: "USD", Status: model.PaymentStatusSucceeded}
	r, _ := newHandlerRouter(&stubPaymentService{payment: payment})

	req := httptest.NewRequest(http.MethodPost, "/v1/payments", bytes.NewReader(paymentBody()))
	req.Header.Set("Idempotency-Key", "key-1")
	w := doRequest(r, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Nil(t, envelope.Error)
}

func TestCreatePayment_ReplayAnswers201LikeTheOriginal(t *testing.T) {
	payment := &model.Payment{ID: uuid.New(), Amount: 2500, Currency: "USD", Status: model.PaymentStatusSucceeded}
	r, _ := newHandlerRouter(&stubPaymentService{payment: payment, replayed: true})

	req := httptest.NewRequest(http.MethodPost, "/v1/payments", bytes.NewReader(paymentBody()))
	req.Header.Set("Idempotency-Key", "key-1")
	w := doRequest(r, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreatePayment_MissingIdempotencyKeyRejected(t *testing.T) {
	r, _ := newHandlerRouter(&stubPaymentService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/payments", bytes.NewReader(paymentBody()))
	w := doRequest(r, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, model.ErrCodeMissingIdempotency, envelope.Error.Code)
}

func TestCreatePayment_InvalidAPIKeyRejected(t *testing.T) {
	r, _ := newHandlerRouter(&stubPaymentService{})

	raw, _ := json.Marshal(map[string]interface{}{
		"amount":         2500,
		"currency":       "USD",
		"gateway":        "mock",
		"merchantApiKey": "sk_test_wrong",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/payments", bytes.NewReader(raw))
	req.Header.Set("Idempotency-Key", "key-1")
	w := doRequest(r, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, model.ErrCodeInvalidAPIKey, envelope.Error.Code)
}

func TestCreatePayment_ServiceErrorsMappedToEnvelope(t *testing.T) {
	r, _ := newHandlerRouter(&stubPaymentService{
		err: model.NewGatewayDisabledError("stripe"),
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/payments", bytes.NewReader(paymentBody()))
	req.Header.Set("Idempotency-Key", "key-1")
	w := doRequest(r, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, model.ErrCodeGatewayDisabled, envelope.Error.Code)
}

func TestGetPayment_RequiresAuth(t *testing.T) {
	payment := &model.Payment{ID: uuid.New(), Status: model.PaymentStatusSucceeded}
	r, _ := newHandlerRouter(&stubPaymentService{payment: payment})

	// No key at all.
	req := httptest.NewRequest(http.MethodGet, "/v1/payments/"+payment.ID.String(), nil)
	w := doRequest(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Key in the query string.
	req = httptest.NewRequest(http.MethodGet, "/v1/payments/"+payment.ID.String()+"?merchantApiKey=sk_test_acme", nil)
	w = doRequest(r, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Key in the fallback header.
	req = httptest.NewRequest(http.MethodGet, "/v1/payments/"+payment.ID.String(), nil)
	req.Header.Set(apiKeyHeader, "sk_test_acme")
	w = doRequest(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPayments_AcceptsQueryParamKey(t *testing.T) {
	payment := &model.Payment{ID: uuid.New(), Status: model.PaymentStatusSucceeded}
	r, _ := newHandlerRouter(&stubPaymentService{payment: payment})

	req := httptest.NewRequest(http.MethodGet, "/v1/payments?merchantApiKey=sk_test_acme", nil)
	w := doRequest(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetPayment_MalformedIDRejected(t *testing.T) {
	r, _ := newHandlerRouter(&stubPaymentService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/not-a-uuid", nil)
	req.Header.Set(apiKeyHeader, "sk_test_acme")
	w := doRequest(r, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPayments_ReturnsPagination(t *testing.T) {
	payment := &model.Payment{ID: uuid.New(), Status: model.PaymentStatusSucceeded}
	r, _ := newHandlerRouter(&stubPaymentService{payment: payment})

	req := httptest.NewRequest(http.MethodGet, "/v1/payments?limit=10", nil)
	req.Header.Set(apiKeyHeader, "sk_test_acme")
	w := doRequest(r, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope response.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.Total)
	assert.Equal(t, 10, envelope.Pagination.Limit)
	assert.False(t, envelope.Pagination.HasMore)
}

func TestListPayments_RejectsBadQueryParams(t *testing.T) {
	r, _ := newHandlerRouter(&stubPaymentService{})

	for _, target := range []string{
		"/v1/payments?limit=abc",
		"/v1/payments?offset=-1",
		"/v1/payments?startDate=yesterday",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set(apiKeyHeader, "sk_test_acme")
		w := doRequest(r, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}
