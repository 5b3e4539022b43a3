package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	eventmodel "openpayflow/internal/domains/event/model"
	"openpayflow/internal/domains/payment/model"
)

// =====================================================
// TEST FAKES
// =====================================================

// fakeTx satisfies pgx.Tx so the in-memory repos below can flow through
// the service's transaction plumbing.
type fakeTx struct{}

func (fakeTx) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }
func (fakeTx) Commit(context.Context) error          { return nil }
func (fakeTx) Rollback(context.Context) error        { return nil }
func (fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (fakeTx) Conn() *pgx.Conn                                         { return nil }

type fakeTxManager struct {
	begins    int
	commits   int
	rollbacks int
}

func (m *fakeTxManager) BeginTx(context.Context) (pgx.Tx, error) {
	m.begins++
	return fakeTx{}, nil
}

func (m *fakeTxManager) CommitTx(context.Context, pgx.Tx) error {
	m.commits++
	return nil
}

func (m *fakeTxManager) RollbackTx(context.Context, pgx.Tx) error {
	m.rollbacks++
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*model.Payment
	locks    int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[uuid.UUID]*model.Payment{}}
}

func (r *fakePaymentRepo) CreateWithTx(_ context.Context, _ pgx.Tx, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.MerchantID == p.MerchantID && existing.IdempotencyKey == p.IdempotencyKey {
			return model.ErrDuplicateIdempotencyKey
		}
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	copied := *p
	r.payments[p.ID] = &copied
	return nil
}

func (r *fakePaymentRepo) UpdateStatusWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return model.ErrPaymentNotFound
	}
	p.Status = status
	return nil
}

func (r *fakePaymentRepo) FinalizeWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string, providerPaymentID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return model.ErrPaymentNotFound
	}
	p.Status = status
	if providerPaymentID != nil {
		p.ProviderPaymentID = providerPaymentID
	}
	return nil
}

func (r *fakePaymentRepo) LockWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return model.ErrPaymentNotFound
	}
	r.locks++
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, model.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePaymentRepo) GetByMerchantAndKey(_ context.Context, merchantID uuid.UUID, key string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.MerchantID == merchantID && p.IdempotencyKey == key {
			copied := *p
			return &copied, nil
		}
	}
	return nil, model.ErrPaymentNotFound
}

func (r *fakePaymentRepo) ListByMerchant(_ context.Context, merchantID uuid.UUID, _ *model.ListPaymentsQuery) ([]*model.Payment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.payments {
		if p.MerchantID == merchantID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, len(out), nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.PaymentAttempt
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: map[uuid.UUID]*model.PaymentAttempt{}}
}

func (r *fakeAttemptRepo) CreateWithTx(_ context.Context, _ pgx.Tx, a *model.PaymentAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *a
	r.attempts[a.ID] = &copied
	return nil
}

func (r *fakeAttemptRepo) UpdateStatusWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return model.ErrPaymentNotFound
	}
	a.Status = status
	return nil
}

func (r *fakeAttemptRepo) FinalizeWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string, errorCode, errorMessage *string, providerResponse map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return model.ErrPaymentNotFound
	}
	a.Status = status
	a.ErrorCode = errorCode
	a.ErrorMessage = errorMessage
	a.ProviderResponse = providerResponse
	return nil
}

func (r *fakeAttemptRepo) ListRecentByPayment(_ context.Context, paymentID uuid.UUID, _ int) ([]*model.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentAttempt
	for _, a := range r.attempts {
		if a.PaymentID == paymentID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) NextAttemptNo(_ context.Context, _ pgx.Tx, paymentID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, a := range r.attempts {
		if a.PaymentID == paymentID && a.AttemptNo > max {
			max = a.AttemptNo
		}
	}
	return max + 1, nil
}

type fakeRefundRepo struct {
	mu      sync.Mutex
	refunds map[uuid.UUID]*model.Refund
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{refunds: map[uuid.UUID]*model.Refund{}}
}

func (r *fakeRefundRepo) CreateWithTx(_ context.Context, _ pgx.Tx, refund *model.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *refund
	r.refunds[refund.ID] = &copied
	return nil
}

func (r *fakeRefundRepo) FinalizeWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string, providerRefundID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.refunds[id]
	if !ok {
		return model.ErrRefundNotFound
	}
	ref.Status = status
	ref.ProviderRefundID = providerRefundID
	return nil
}

func (r *fakeRefundRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.refunds[id]
	if !ok {
		return nil, model.ErrRefundNotFound
	}
	copied := *ref
	return &copied, nil
}

func (r *fakeRefundRepo) ListByPayment(_ context.Context, paymentID uuid.UUID) ([]*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Refund
	for _, ref := range r.refunds {
		if ref.PaymentID == paymentID {
			copied := *ref
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRefundRepo) sum(paymentID uuid.UUID) int64 {
	var total int64
	for _, ref := range r.refunds {
		if ref.PaymentID != paymentID {
			continue
		}
		switch ref.Status {
		case model.RefundStatusPending, model.RefundStatusProcessing, model.RefundStatusSucceeded:
			total += ref.Amount
		}
	}
	return total
}

func (r *fakeRefundRepo) SumSucceededByPayment(_ context.Context, paymentID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum(paymentID), nil
}

func (r *fakeRefundRepo) SumSucceededByPaymentWithTx(_ context.Context, _ pgx.Tx, paymentID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum(paymentID), nil
}

type fakeOutboxRepo struct {
	mu       sync.Mutex
	messages []*eventmodel.OutboxMessage
}

func (r *fakeOutboxRepo) CreateWithTx(_ context.Context, _ pgx.Tx, msg *eventmodel.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *fakeOutboxRepo) ListUnprocessedIDs(context.Context, int) ([]uuid.UUID, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) ClaimWithTx(context.Context, pgx.Tx, uuid.UUID) (*eventmodel.OutboxMessage, error) {
	return nil, eventmodel.ErrOutboxNotFound
}

func (r *fakeOutboxRepo) MarkProcessedWithTx(context.Context, pgx.Tx, uuid.UUID) error { return nil }

func (r *fakeOutboxRepo) DeleteProcessedBefore(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) byEventType(eventType string) []*eventmodel.OutboxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*eventmodel.OutboxMessage
	for _, m := range r.messages {
		if m.EventType == eventType {
			out = append(out, m)
		}
	}
	return out
}

// fakeCache round-trips values through JSON the way the Redis cache does.
type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *fakeCache) Ping(context.Context) error { return nil }

func (c *fakeCache) Increment(context.Context, string) (int64, error) { return 1, nil }

func (c *fakeCache) Expire(context.Context, string, time.Duration) error { return nil }

func (c *fakeCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok, nil
}

func (c *fakeCache) TTL(context.Context, string) (time.Duration, error) { return 0, nil }
