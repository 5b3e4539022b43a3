package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"openpayflow/internal/domains/payment/gateway"
)

// =====================================================
// RAZORPAY CLIENT IMPLEMENTATION
// =====================================================

type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates new Razorpay client
func NewClient(config *Config) (gateway.PaymentGateway, error) {
	if config.KeyID == "" || config.KeySecret == "" {
		return nil, fmt.Errorf("razorpay key id and secret are required")
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) Name() string {
	return "razorpay"
}

// =====================================================
// CREATE PAYMENT
// =====================================================

// CreatePayment creates a Razorpay order. Orders wait for the customer
// to complete checkout, so the normalized status is requires_action.
func (c *Client) CreatePayment(
	ctx context.Context,
	req gateway.ChargeRequest,
) (*gateway.ChargeResult, error) {
	body := map[string]interface{}{
		"amount":   req.Amount,
		"currency": strings.ToUpper(req.Currency),
		"receipt":  req.PaymentID,
		"notes": map[string]interface{}{
			"payment_id": req.PaymentID,
		},
	}

	respData, err := c.post(ctx, "/v1/orders", body)
	if err != nil {
		return nil, err
	}

	id, _ := respData["id"].(string)
	status, _ := respData["status"].(string)

	return &gateway.ChargeResult{
		ProviderPaymentID: id,
		Status:            mapOrderStatus(status),
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
	body := map[string]interface{}{
		"amount": req.Amount,
	}
	if req.Reason != "" {
		body["notes"] = map[string]interface{}{"reason": req.Reason}
	}

	path := "/v1/payments/" + url.PathEscape(req.ProviderPaymentID) + "/refund"
	respData, err := c.post(ctx, path, body)
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
	endpoint := c.config.BaseURL() + "/v1/orders/" + url.PathEscape(providerPaymentID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.SetBasicAuth(c.config.KeyID, c.config.KeySecret)

	respData, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	status, _ := respData["status"].(string)
	amount, _ := respData["amount"].(float64)
	currency, _ := respData["currency"].(string)
	notes, _ := respData["notes"].(map[string]interface{})

	return &gateway.StatusResult{
		Status:   mapOrderStatus(status),
		Amount:   int64(amount),
		Currency: currency,
		Metadata: notes,
		Raw:      respData,
	}, nil
}

// =====================================================
// HTTP HELPERS
// =====================================================

func (c *Client) post(ctx context.Context, path string, body map[string]interface{}) (map[string]interface{}, error) {
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.config.BaseURL()+path,
		bytes.NewReader(bodyJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.SetBasicAuth(c.config.KeyID, c.config.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq)
}

func (c *Client) do(httpReq *http.Request) (map[string]interface{}, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &gateway.GatewayError{
			Gateway: "razorpay",
			Message: "request failed",
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gateway.GatewayError{
			Gateway: "razorpay",
			Message: "failed to read response",
			Cause:   err,
		}
	}

	var respData map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &respData); err != nil {
		return nil, &gateway.GatewayError{
			Gateway:    "razorpay",
			Message:    "failed to decode response",
			HTTPStatus: resp.StatusCode,
			Cause:      err,
		}
	}

	if resp.StatusCode >= 400 {
		message := "unexpected error"
		code := ""
		if errObj, ok := respData["error"].(map[string]interface{}); ok {
			if d, ok := errObj["description"].(string); ok {
				message = d
			}
			if cc, ok := errObj["code"].(string); ok {
				code = cc
			}
		}
		return nil, &gateway.GatewayError{
			Gateway:      "razorpay",
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

func mapOrderStatus(s string) string {
	switch s {
	case "paid":
		return gateway.StatusSucceeded
	case "attempted":
		return gateway.StatusProcessing
	case "created":
		return gateway.StatusRequiresAction
	default:
		return gateway.StatusFailed
	}
}

func mapRefundStatus(s string) string {
	switch s {
	case "processed":
		return gateway.StatusSucceeded
	case "pending", "created":
		return gateway.StatusProcessing
	default:
		return gateway.StatusFailed
	}
}
