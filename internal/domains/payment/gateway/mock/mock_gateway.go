package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"openpayflow/internal/config"
	"openpayflow/internal/domains/payment/gateway"
	"openpayflow/pkg/logger"
)

// =====================================================
// MOCK GATEWAY
// =====================================================

// Gateway is a deterministic-enough in-process provider used by the
// sandbox. Outcomes are drawn from a tunable success rate, latency is
// simulated around a configured average, and an optional chaos mode
// injects provider 5xx faults.
type Gateway struct {
	cfg config.MockConfig

	mu       sync.Mutex
	rng      *rand.Rand
	payments map[string]*record
	refunds  map[string]*refundRecord

	// simple observability counters, read via Stats
	charges  int64
	declines int64
	faults   int64
}

type record struct {
	PaymentID string
	Amount    int64
	Currency  string
	Status    string
	CreatedAt time.Time
}

type refundRecord struct {
	ProviderPaymentID string
	Amount            int64
	Status            string
	CreatedAt         time.Time
}

func NewGateway(cfg config.MockConfig) *Gateway {
	return &Gateway{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		payments: make(map[string]*record),
		refunds:  make(map[string]*refundRecord),
	}
}

func (g *Gateway) Name() string {
	return "mock"
}

func (g *Gateway) CreatePayment(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.charges++

	if g.cfg.EnableChaos && g.rng.Float64() < g.cfg.ChaosRate {
		g.faults++
		return nil, &gateway.GatewayError{
			Gateway:      "mock",
			Message:      "simulated provider outage",
			ProviderCode: "service_unavailable",
			HTTPStatus:   503,
		}
	}

	providerID := "mock_pi_" + uuid.NewString()

	if g.rng.Float64() >= g.cfg.SuccessRate {
		g.declines++
		logger.Debug("Mock gateway declined charge " + providerID)
		// No HTTP status: declines surface to the intake caller with the
		// default 500 mapping, like any other provider fault.
		return nil, &gateway.GatewayError{
			Gateway:      "mock",
			Message:      "your card was declined",
			ProviderCode: "card_declined",
		}
	}

	g.payments[providerID] = &record{
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    gateway.StatusSucceeded,
		CreatedAt: time.Now(),
	}

	return &gateway.ChargeResult{
		ProviderPaymentID: providerID,
		Status:            gateway.StatusSucceeded,
		Raw: map[string]interface{}{
			"id":       providerID,
			"object":   "mock.charge",
			"amount":   req.Amount,
			"currency": req.Currency,
			"status":   "succeeded",
		},
	}, nil
}

func (g *Gateway) RefundPayment(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	parent, ok := g.payments[req.ProviderPaymentID]
	if !ok {
		return nil, &gateway.GatewayError{
			Gateway:      "mock",
			Message:      "no such charge: " + req.ProviderPaymentID,
			ProviderCode: "resource_missing",
			HTTPStatus:   404,
		}
	}
	if req.Amount > parent.Amount {
		return nil, &gateway.GatewayError{
			Gateway:      "mock",
			Message:      fmt.Sprintf("refund amount %d exceeds charge amount %d", req.Amount, parent.Amount),
			ProviderCode: "amount_too_large",
			HTTPStatus:   400,
		}
	}

	providerRefundID := "mock_re_" + uuid.NewString()
	g.refunds[providerRefundID] = &refundRecord{
		ProviderPaymentID: req.ProviderPaymentID,
		Amount:            req.Amount,
		Status:            gateway.StatusSucceeded,
		CreatedAt:         time.Now(),
	}

	return &gateway.RefundResult{
		ProviderRefundID: providerRefundID,
		Status:           gateway.StatusSucceeded,
		Raw: map[string]interface{}{
			"id":     providerRefundID,
			"object": "mock.refund",
			"amount": req.Amount,
			"status": "succeeded",
		},
	}, nil
}

func (g *Gateway) GetPaymentStatus(ctx context.Context, providerPaymentID string) (*gateway.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.payments[providerPaymentID]
	if !ok {
		return nil, &gateway.GatewayError{
			Gateway:      "mock",
			Message:      "no such charge: " + providerPaymentID,
			ProviderCode: "resource_missing",
			HTTPStatus:   404,
		}
	}

	return &gateway.StatusResult{
		Status:   rec.Status,
		Amount:   rec.Amount,
		Currency: rec.Currency,
		Raw: map[string]interface{}{
			"id":       providerPaymentID,
			"object":   "mock.charge",
			"amount":   rec.Amount,
			"currency": rec.Currency,
			"status":   rec.Status,
		},
	}, nil
}

func (g *Gateway) HealthCheck(ctx context.Context) error {
	return nil
}

// Stats exposes the counters for the readiness and debug surfaces.
func (g *Gateway) Stats() (charges, declines, faults int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.charges, g.declines, g.faults
}

func (g *Gateway) simulateLatency(ctx context.Context) error {
	if g.cfg.AverageLatencyMs <= 0 {
		return nil
	}

	g.mu.Lock()
	// uniform around the average, 50% to 150%
	ms := g.cfg.AverageLatencyMs/2 + g.rng.Intn(g.cfg.AverageLatencyMs+1)
	g.mu.Unlock()

	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return &gateway.GatewayError{
			Gateway: "mock",
			Message: "request cancelled",
			Cause:   ctx.Err(),
		}
	}
}
