package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	merchantservice "openpayflow/internal/domains/merchant/service"
	"openpayflow/internal/domains/payment/model"
	"openpayflow/internal/domains/payment/service"
	res "openpayflow/internal/shared/response"
	"openpayflow/internal/shared/utils"
)

type PaymentHandler struct {
	paymentService  service.PaymentServiceInterface
	merchantService merchantservice.MerchantService
}

// NewPaymentHandler creates new payment handler
func NewPaymentHandler(
	paymentService service.PaymentServiceInterface,
	merchantService merchantservice.MerchantService,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService:  paymentService,
		merchantService: merchantService,
	}
}

// =====================================================
// CREATE PAYMENT
// =====================================================

// CreatePayment creates a payment
// POST /v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	// Step 1: Idempotency key is mandatory
	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey == "" {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeMissingIdempotency, "Idempotency-Key header is required")
		return
	}

	// Step 2: Bind request body
	var req model.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidationFailed, err.Error())
		return
	}
	req.Metadata = utils.SanitizeMetadata(req.Metadata)

	// Step 3: Authenticate merchant
	merchant, ok := authenticate(c, h.merchantService, req.MerchantAPIKey)
	if !ok {
		return
	}

	// Step 4: Call service. A replay answers 201 exactly like the first
	// request did; the client cannot tell a retry from the original.
	payment, _, err := h.paymentService.CreatePayment(c.Request.Context(), merchant.ID, idempotencyKey, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	res.Success(c, http.StatusCreated, payment)
}

// =====================================================
// GET PAYMENT
// =====================================================

// GetPayment returns a payment with recent attempts and refunds
// GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	merchant, ok := authenticate(c, h.merchantService, requestAPIKey(c))
	if !ok {
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidationFailed, "Invalid payment ID")
		return
	}

	detail, err := h.paymentService.GetPayment(c.Request.Context(), merchant.ID, paymentID)
	if err != nil {
		writeError(c, err)
		return
	}

	res.Success(c, http.StatusOK, detail)
}

// =====================================================
// LIST PAYMENTS
// =====================================================

// ListPayments lists the merchant's payments with filters
// GET /v1/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	merchant, ok := authenticate(c, h.merchantService, requestAPIKey(c))
	if !ok {
		return
	}

	query, err := parseListQuery(c)
	if err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidationFailed, err.Error())
		return
	}

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), merchant.ID, query)
	if err != nil {
		writeError(c, err)
		return
	}

	if payments == nil {
		payments = []*model.Payment{}
	}

	res.SuccessWithPagination(c, http.StatusOK, payments, &res.Pagination{
		Total:   total,
		Limit:   query.Limit,
		Offset:  query.Offset,
		HasMore: query.Offset+len(payments) < total,
	})
}

func parseListQuery(c *gin.Context) (*model.ListPaymentsQuery, error) {
	query := &model.ListPaymentsQuery{
		Status:  c.Query("status"),
		Gateway: c.Query("gateway"),
	}

	if v := c.Query("limit"); v != "" {
		n, err := parsePositiveInt(v, "limit")
		if err != nil {
			return nil, err
		}
		query.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := parsePositiveInt(v, "offset")
		if err != nil {
			return nil, err
		}
		query.Offset = n
	}
	if v := c.Query("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errInvalidDate("startDate")
		}
		query.StartDate = &t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errInvalidDate("endDate")
		}
		query.EndDate = &t
	}

	query.Normalize()
	return query, nil
}
