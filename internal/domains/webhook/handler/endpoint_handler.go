package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	merchantmodel "openpayflow/internal/domains/merchant/model"
	merchantservice "openpayflow/internal/domains/merchant/service"
	paymentmodel "openpayflow/internal/domains/payment/model"
	"openpayflow/internal/domains/webhook/model"
	"openpayflow/internal/domains/webhook/service"
	res "openpayflow/internal/shared/response"
)

type EndpointHandler struct {
	endpointService service.EndpointServiceInterface
	merchantService merchantservice.MerchantService
}

// NewEndpointHandler creates new webhook endpoint handler
func NewEndpointHandler(
	endpointService service.EndpointServiceInterface,
	merchantService merchantservice.MerchantService,
) *EndpointHandler {
	return &EndpointHandler{
		endpointService: endpointService,
		merchantService: merchantService,
	}
}

// fallbackKeyHeader is accepted alongside the documented merchantApiKey
// header and query parameter.
const fallbackKeyHeader = "X-Api-Key"

// requestAPIKey resolves the merchant key from the query parameter or
// headers, for routes without a request body field.
func requestAPIKey(c *gin.Context) string {
	if key := c.Query("merchantApiKey"); key != "" {
		return key
	}
	if key := c.GetHeader("merchantApiKey"); key != "" {
		return key
	}
	return c.GetHeader(fallbackKeyHeader)
}

func (h *EndpointHandler) authenticate(c *gin.Context) (uuid.UUID, bool) {
	return h.authenticateKey(c, requestAPIKey(c))
}

func (h *EndpointHandler) authenticateKey(c *gin.Context, apiKey string) (uuid.UUID, bool) {
	if apiKey == "" {
		res.ErrorResponse(c, http.StatusUnauthorized, paymentmodel.ErrCodeInvalidAPIKey, "Missing API key")
		return uuid.Nil, false
	}

	merchant, err := h.merchantService.Authenticate(c.Request.Context(), apiKey)
	if err != nil {
		if errors.Is(err, merchantmodel.ErrInvalidAPIKey) {
			res.ErrorResponse(c, http.StatusUnauthorized, paymentmodel.ErrCodeInvalidAPIKey, "Invalid API key")
			return uuid.Nil, false
		}
		res.InternalServerError(c, "Authentication failed")
		return uuid.Nil, false
	}

	return merchant.ID, true
}

func (h *EndpointHandler) writeError(c *gin.Context, err error) {
	var pe *paymentmodel.PaymentError
	if errors.As(err, &pe) {
		res.ErrorResponse(c, pe.HTTPStatus, pe.Code, pe.Message)
		return
	}
	if errors.Is(err, model.ErrEndpointNotFound) {
		res.NotFound(c, "Webhook endpoint not found")
		return
	}
	res.InternalServerError(c, "Internal error")
}

// =====================================================
// ENDPOINT CRUD
// =====================================================

// CreateEndpoint registers a webhook endpoint
// POST /v1/webhook-endpoints
func (h *EndpointHandler) CreateEndpoint(c *gin.Context) {
	var req model.CreateEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, paymentmodel.ErrCodeValidationFailed, err.Error())
		return
	}

	apiKey := req.MerchantAPIKey
	if apiKey == "" {
		apiKey = requestAPIKey(c)
	}
	merchantID, ok := h.authenticateKey(c, apiKey)
	if !ok {
		return
	}

	endpoint, err := h.endpointService.CreateEndpoint(c.Request.Context(), merchantID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res.Success(c, http.StatusCreated, endpoint)
}

// GetEndpoint returns one endpoint
// GET /v1/webhook-endpoints/:id
func (h *EndpointHandler) GetEndpoint(c *gin.Context) {
	merchantID, ok := h.authenticate(c)
	if !ok {
		return
	}

	endpointID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		res.BadRequest(c, "Invalid endpoint ID")
		return
	}

	endpoint, err := h.endpointService.GetEndpoint(c.Request.Context(), merchantID, endpointID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res.Success(c, http.StatusOK, endpoint)
}

// ListEndpoints lists the merchant's endpoints
// GET /v1/webhook-endpoints
func (h *EndpointHandler) ListEndpoints(c *gin.Context) {
	merchantID, ok := h.authenticate(c)
	if !ok {
		return
	}

	endpoints, err := h.endpointService.ListEndpoints(c.Request.Context(), merchantID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if endpoints == nil {
		endpoints = []*model.WebhookEndpoint{}
	}
	res.Success(c, http.StatusOK, endpoints)
}

// UpdateEndpoint patches URL, secret, subscriptions or active flag
// PATCH /v1/webhook-endpoints/:id
func (h *EndpointHandler) UpdateEndpoint(c *gin.Context) {
	merchantID, ok := h.authenticate(c)
	if !ok {
		return
	}

	endpointID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		res.BadRequest(c, "Invalid endpoint ID")
		return
	}

	var req model.UpdateEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, paymentmodel.ErrCodeValidationFailed, err.Error())
		return
	}

	endpoint, err := h.endpointService.UpdateEndpoint(c.Request.Context(), merchantID, endpointID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res.Success(c, http.StatusOK, endpoint)
}

// DeleteEndpoint deactivates an endpoint
// DELETE /v1/webhook-endpoints/:id
func (h *EndpointHandler) DeleteEndpoint(c *gin.Context) {
	merchantID, ok := h.authenticate(c)
	if !ok {
		return
	}

	endpointID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		res.BadRequest(c, "Invalid endpoint ID")
		return
	}

	if err := h.endpointService.DeleteEndpoint(c.Request.Context(), merchantID, endpointID); err != nil {
		h.writeError(c, err)
		return
	}

	res.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// =====================================================
// DELIVERY LOG
// =====================================================

// ListDeliveries returns the endpoint's delivery log
// GET /v1/webhook-endpoints/:id/deliveries
func (h *EndpointHandler) ListDeliveries(c *gin.Context) {
	merchantID, ok := h.authenticate(c)
	if !ok {
		return
	}

	endpointID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		res.BadRequest(c, "Invalid endpoint ID")
		return
	}

	query := &model.ListDeliveriesQuery{Status: c.Query("status")}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.Offset = n
		}
	}

	deliveries, total, err := h.endpointService.ListDeliveries(c.Request.Context(), merchantID, endpointID, query)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if deliveries == nil {
		deliveries = []*model.WebhookDelivery{}
	}

	res.SuccessWithPagination(c, http.StatusOK, deliveries, &res.Pagination{
		Total:   total,
		Limit:   query.Limit,
		Offset:  query.Offset,
		HasMore: query.Offset+len(deliveries) < total,
	})
}
