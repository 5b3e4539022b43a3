package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"openpayflow/internal/domains/payment/gateway"
)

// =====================================================
// STRIPE CLIENT IMPLEMENTATION
// =====================================================

type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates new Stripe client
func NewClient(config *Config) (gateway.PaymentGateway, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) Name() string {
	return "stripe"
}

// =====================================================
// CREATE PAYMENT
// =====================================================

// CreatePayment creates a confirmed PaymentIntent.
func (c *Client) CreatePayment(
	ctx context.Context,
	req gateway.ChargeRequest,
) (*gateway.ChargeResult, error) {
	// Step 1: Build form parameters
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("confirm", "true")
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("automatic_payment_methods[allow_redirects]", "never")
	form.Set("metadata[payment_id]", req.PaymentID)

	// Step 2: Call Stripe API
	respData, err := c.post(ctx, "/v1/payment_intents", form, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	// Step 3: Normalize response
	id, _ := respData["id"].(string)
	status, _ := respData["status"].(string)

	return &gateway.ChargeResult{
		ProviderPaymentID: id,
		Status:            mapIntentStatus(status),
		Raw:               respData,
	}, nil
}

// =====================================================
// REFUND PAYMENT
// =====================================================

func (c *Client) RefundPayment(
	ctx context.Context,
	req gateway.RefundRequest,
) (*gateway.RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", req.ProviderPaymentID)
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	if req.Reason != "" {
		form.Set("metadata[reason]", req.Reason)
	}

	respData, err := c.post(ctx, "/v1/refunds", form, req.RefundID)
	if err != nil {
		return nil, err
	}

	id, _ := respData["id"].(string)
	status, _ := respData["status"].(string)

	return &gateway.RefundResult{
		ProviderRefundID: id,
		Status:           mapRefundStatus(status),
		Raw:              respData,
	}, nil
}

// =====================================================
// GET PAYMENT STATUS
// =====================================================

func (c *Client) GetPaymentStatus(ctx context.Context, providerPaymentID string) (*gateway.StatusResult, error) {
	endpoint := c.config.BaseURL() + "/v1/payment_intents/" + url.PathEscape(providerPaymentID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.SecretKey)

	respData, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	status, _ := respData["status"].(string)
	amount, _ := respData["amount"].(float64)
	currency, _ := respData["currency"].(string)
	metadata, _ := respData["metadata"].(map[string]interface{})

	return &gateway.StatusResult{
		Status:   mapIntentStatus(status),
		Amount:   int64(amount),
		Currency: currency,
		Metadata: metadata,
		Raw:      respData,
	}, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := c.config.BaseURL() + "/v1/balance"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.SecretKey)

	_, err = c.do(httpReq)
	return err
}

// =====================================================
// HTTP HELPERS
// =====================================================

func (c *Client) post(ctx context.Context, path string, form url.Values, idempotencyKey string) (map[string]interface{}, error) {
	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.config.BaseURL()+path,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	return c.do(httpReq)
}

func (c *Client) do(httpReq *http.Request) (map[string]interface{}, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &gateway.GatewayError{
			Gateway: "stripe",
			Message: "request failed",
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gateway.GatewayError{
			Gateway: "stripe",
			Message: "failed to read response",
			Cause:   err,
		}
	}

	var respData map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &respData); err != nil {
		return nil, &gateway.GatewayError{
			Gateway:    "stripe",
			Message:    "failed to decode response",
			HTTPStatus: resp.StatusCode,
			Cause:      err,
		}
	}

	if resp.StatusCode >= 400 {
		message := "unexpected error"
		code := ""
		if errObj, ok := respData["error"].(map[string]interface{}); ok {
			if m, ok := errObj["message"].(string); ok {
				message = m
			}
			if cc, ok := errObj["code"].(string); ok {
				code = cc
			}
		}
		return nil, &gateway.GatewayError{
			Gateway:      "stripe",
			Message:      message,
			ProviderCode: code,
			HTTPStatus:   resp.StatusCode,
		}
	}

	return respData, nil
}

// =====================================================
// STATUS MAPPING
// =====================================================

func mapIntentStatus(s string) string {
	switch s {
	case "succeeded":
		return gateway.StatusSucceeded
	case "processing":
		return gateway.StatusProcessing
	case "requires_action", "requires_confirmation", "requires_payment_method":
		return gateway.StatusRequiresAction
	default:
		return gateway.StatusFailed
	}
}

func mapRefundStatus(s string) string {
	switch s {
	case "succeeded":
		return gateway.StatusSucceeded
	case "pending":
		return gateway.StatusProcessing
	default:
		return gateway.StatusFailed
	}
}
