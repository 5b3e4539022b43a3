package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	merchantmodel "openpayflow/internal/domains/merchant/model"
	merchantservice "openpayflow/internal/domains/merchant/service"
	"openpayflow/internal/domains/payment/model"
	res "openpayflow/internal/shared/response"
)

// apiKeyHeader is the fallback header for the merchant key on read
// endpoints; the documented form is the merchantApiKey query parameter.
const apiKeyHeader = "X-Api-Key"

// requestAPIKey resolves the merchant key on endpoints without a request
// body: the merchantApiKey query parameter first, then the headers.
func requestAPIKey(c *gin.Context) string {
	if key := c.Query("merchantApiKey"); key != "" {
		return key
	}
	if key := c.GetHeader("merchantApiKey"); key != "" {
		return key
	}
	return c.GetHeader(apiKeyHeader)
}

// authenticate resolves the merchant from the given API key and writes
// the error response itself on failure.
func authenticate(c *gin.Context, merchants merchantservice.MerchantService, apiKey string) (*merchantmodel.Merchant, bool) {
	if apiKey == "" {
		res.ErrorResponse(c, http.StatusUnauthorized, model.ErrCodeInvalidAPIKey, "Missing API key")
		return nil, false
	}

	merchant, err := merchants.Authenticate(c.Request.Context(), apiKey)
	if err != nil {
		if errors.Is(err, merchantmodel.ErrInvalidAPIKey) {
			res.ErrorResponse(c, http.StatusUnauthorized, model.ErrCodeInvalidAPIKey, "Invalid API key")
			return nil, false
		}
		res.ErrorResponse(c, http.StatusInternalServerError, model.ErrCodeInternalError, "Authentication failed")
		return nil, false
	}

	return merchant, true
}

// writeError maps service errors onto the wire envelope.
func writeError(c *gin.Context, err error) {
	var pe *model.PaymentError
	if errors.As(err, &pe) {
		res.ErrorResponse(c, pe.HTTPStatus, pe.Code, pe.Message)
		return
	}

	switch {
	case errors.Is(err, model.ErrPaymentNotFound):
		res.ErrorResponse(c, http.StatusNotFound, model.ErrCodePaymentNotFound, "Payment not found")
	case errors.Is(err, model.ErrRefundNotFound):
		res.NotFound(c, "Refund not found")
	default:
		res.ErrorResponse(c, http.StatusInternalServerError, model.ErrCodeInternalError, "Internal error")
	}
}
