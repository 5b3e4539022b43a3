package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	merchantservice "openpayflow/internal/domains/merchant/service"
	"openpayflow/internal/domains/payment/model"
	"openpayflow/internal/domains/payment/service"
	res "openpayflow/internal/shared/response"
)

type RefundHandler struct {
	refundService   service.RefundServiceInterface
	merchantService merchantservice.MerchantService
}

// NewRefundHandler creates new refund handler
func NewRefundHandler(
	refundService service.RefundServiceInterface,
	merchantService merchantservice.MerchantService,
) *RefundHandler {
	return &RefundHandler{
		refundService:   refundService,
		merchantService: merchantService,
	}
}

// CreateRefund creates a refund against a succeeded payment
// POST /v1/refunds
func (h *RefundHandler) CreateRefund(c *gin.Context) {
	var req model.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidationFailed, err.Error())
		return
	}

	merchant, ok := authenticate(c, h.merchantService, req.MerchantAPIKey)
	if !ok {
		return
	}

	refund, err := h.refundService.CreateRefund(c.Request.Context(), merchant.ID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	res.Success(c, http.StatusCreated, refund)
}

// GetRefund returns a refund
// GET /v1/refunds/:id
func (h *RefundHandler) GetRefund(c *gin.Context) {
	merchant, ok := authenticate(c, h.merchantService, requestAPIKey(c))
	if !ok {
		return
	}

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidationFailed, "Invalid refund ID")
		return
	}

	refund, err := h.refundService.GetRefund(c.Request.Context(), merchant.ID, refundID)
	if err != nil {
		writeError(c, err)
		return
	}

	res.Success(c, http.StatusOK, refund)
}
