package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openpayflow/internal/domains/event/model"
	webhookmodel "openpayflow/internal/domains/webhook/model"
)

// =====================================================
// TEST FAKES
// =====================================================

type stubTx struct{}

func (stubTx) Begin(context.Context) (pgx.Tx, error) { return stubTx{}, nil }
func (stubTx) Commit(context.Context) error          { return nil }
func (stubTx) Rollback(context.Context) error        { return nil }
func (stubTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (stubTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (stubTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (stubTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (stubTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (stubTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (stubTx) Conn() *pgx.Conn                                         { return nil }

type stubTxStarter struct{}

func (stubTxStarter) Begin(context.Context) (pgx.Tx, error) { return stubTx{}, nil }

type memOutboxRepo struct {
	rows map[uuid.UUID]*model.OutboxMessage
}

func (r *memOutboxRepo) CreateWithTx(_ context.Context, _ pgx.Tx, msg *model.OutboxMessage) error {
	copied := *msg
	r.rows[msg.ID] = &copied
	return nil
}

func (r *memOutboxRepo) ListUnprocessedIDs(_ context.Context, limit int) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, row := range r.rows {
		if !row.Processed {
			out = append(out, id)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memOutboxRepo) ClaimWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID) (*model.OutboxMessage, error) {
	row, ok := r.rows[id]
	if !ok || row.Processed {
		return nil, model.ErrOutboxNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *memOutboxRepo) MarkProcessedWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	row, ok := r.rows[id]
	if !ok {
		return model.ErrOutboxNotFound
	}
	row.Processed = true
	return nil
}

func (r *memOutboxRepo) DeleteProcessedBefore(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

type memEventRepo struct {
	events []*model.Event
}

func (r *memEventRepo) CreateWithTx(_ context.Context, _ pgx.Tx, e *model.Event) error {
	copied := *e
	r.events = append(r.events, &copied)
	return nil
}

func (r *memEventRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Event, error) {
	for _, e := range r.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, model.ErrEventNotFound
}

func (r *memEventRepo) ListRecent(context.Context, int, int) ([]*model.Event, int, error) {
	return r.events, len(r.events), nil
}

func (r *memEventRepo) DeleteAgedWithoutActiveDeliveries(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

type memEndpointRepo struct {
	endpoints []*webhookmodel.WebhookEndpoint
}

func (r *memEndpointRepo) Create(_ context.Context, e *webhookmodel.WebhookEndpoint) error {
	r.endpoints = append(r.endpoints, e)
	return nil
}

func (r *memEndpointRepo) GetByID(_ context.Context, id uuid.UUID) (*webhookmodel.WebhookEndpoint, error) {
	for _, e := range r.endpoints {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, webhookmodel.ErrEndpointNotFound
}

func (r *memEndpointRepo) GetByIDForMerchant(ctx context.Context, id, _ uuid.UUID) (*webhookmodel.WebhookEndpoint, error) {
	return r.GetByID(ctx, id)
}

func (r *memEndpointRepo) ListByMerchant(context.Context, uuid.UUID) ([]*webhookmodel.WebhookEndpoint, error) {
	return r.endpoints, nil
}

func (r *memEndpointRepo) Update(context.Context, *webhookmodel.WebhookEndpoint) error { return nil }

func (r *memEndpointRepo) Deactivate(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (r *memEndpointRepo) ListActiveByEventTypeWithTx(_ context.Context, _ pgx.Tx, eventType string) ([]*webhookmodel.WebhookEndpoint, error) {
	var out []*webhookmodel.WebhookEndpoint
	for _, e := range r.endpoints {
		if e.IsActive && e.SubscribesTo(eventType) {
			out = append(out, e)
		}
	}
	return out, nil
}

type memDeliveryRepo struct {
	deliveries []*webhookmodel.WebhookDelivery
}

func (r *memDeliveryRepo) CreateWithTx(_ context.Context, _ pgx.Tx, d *webhookmodel.WebhookDelivery) error {
	copied := *d
	r.deliveries = append(r.deliveries, &copied)
	return nil
}

func (r *memDeliveryRepo) GetByID(context.Context, uuid.UUID) (*webhookmodel.WebhookDelivery, error) {
	return nil, webhookmodel.ErrDeliveryNotFound
}

func (r *memDeliveryRepo) ClaimAttempt(context.Context, uuid.UUID, int) error { return nil }

func (r *memDeliveryRepo) MarkDelivered(context.Context, uuid.UUID) error { return nil }

func (r *memDeliveryRepo) MarkFailed(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (r *memDeliveryRepo) MarkAbandoned(context.Context, uuid.UUID, string) error { return nil }

func (r *memDeliveryRepo) SweepDue(context.Context, time.Time, int) ([]uuid.UUID, error) {
	return nil, nil
}

func (r *memDeliveryRepo) ListByEndpoint(context.Context, uuid.UUID, *webhookmodel.ListDeliveriesQuery) ([]*webhookmodel.WebhookDelivery, int, error) {
	return nil, 0, nil
}

func (r *memDeliveryRepo) DeleteDeliveredBefore(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

type memEnqueuer struct {
	ids []string
}

func (q *memEnqueuer) Enqueue(_ context.Context, deliveryIDs ...string) error {
	q.ids = append(q.ids, deliveryIDs...)
	return nil
}

// =====================================================
// FIXTURE
// =====================================================

type drainerFixture struct {
	outboxRepo   *memOutboxRepo
	eventRepo    *memEventRepo
	endpointRepo *memEndpointRepo
	deliveryRepo *memDeliveryRepo
	queue        *memEnqueuer
	drainer      DrainerServiceInterface
}

func newDrainerFixture() *drainerFixture {
	f := &drainerFixture{
		outboxRepo:   &memOutboxRepo{rows: map[uuid.UUID]*model.OutboxMessage{}},
		eventRepo:    &memEventRepo{},
		endpointRepo: &memEndpointRepo{},
		deliveryRepo: &memDeliveryRepo{},
		queue:        &memEnqueuer{},
	}
	f.drainer = NewDrainerService(
		stubTxStarter{}, f.outboxRepo, f.eventRepo, f.endpointRepo, f.deliveryRepo, f.queue,
	)
	return f
}

func (f *drainerFixture) addOutboxRow(eventType string) uuid.UUID {
	id := uuid.New()
	f.outboxRepo.rows[id] = &model.OutboxMessage{
		ID:            id,
		AggregateType: "payment",
		AggregateID:   uuid.New(),
		EventType:     eventType,
		Payload:       map[string]interface{}{"amount": float64(1000)},
	}
	return id
}

func (f *drainerFixture) addEndpoint(events []string, active bool) uuid.UUID {
	id := uuid.New()
	f.endpointRepo.endpoints = append(f.endpointRepo.endpoints, &webhookmodel.WebhookEndpoint{
		ID:       id,
		URL:      "https://example.com/hooks",
		Events:   events,
		IsActive: active,
	})
	return id
}

// =====================================================
// TESTS
// =====================================================

func TestDrainOnce_PublishesEventAndFansOut(t *testing.T) {
	f := newDrainerFixture()
	f.addOutboxRow("payment.created")
	subscribed := f.addEndpoint([]string{"payment.created"}, true)
	catchAll := f.addEndpoint(nil, true)

	drained, err := f.drainer.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, drained)

	// One event published with the outbox payload.
	require.Len(t, f.eventRepo.events, 1)
	assert.Equal(t, "payment.created", f.eventRepo.events[0].Type)
	assert.Equal(t, float64(1000), f.eventRepo.events[0].Payload["amount"])

	// One delivery per subscribed endpoint, all enqueued after commit.
	require.Len(t, f.deliveryRepo.deliveries, 2)
	endpointIDs := []uuid.UUID{f.deliveryRepo.deliveries[0].EndpointID, f.deliveryRepo.deliveries[1].EndpointID}
	assert.Contains(t, endpointIDs, subscribed)
	assert.Contains(t, endpointIDs, catchAll)
	assert.Len(t, f.queue.ids, 2)

	for _, d := range f.deliveryRepo.deliveries {
		assert.Equal(t, webhookmodel.DeliveryStatusPending, d.Status)
		assert.Equal(t, f.eventRepo.events[0].ID, d.EventID)
	}
}

func TestDrainOnce_SkipsUnsubscribedAndInactiveEndpoints(t *testing.T) {
	f := newDrainerFixture()
	f.addOutboxRow("payment.created")
	f.addEndpoint([]string{"refund.created"}, true)
	f.addEndpoint([]string{"payment.created"}, false)

	drained, err := f.drainer.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, drained)

	// Event still published; nobody to deliver to.
	assert.Len(t, f.eventRepo.events, 1)
	assert.Empty(t, f.deliveryRepo.deliveries)
	assert.Empty(t, f.queue.ids)
}

func TestDrainOnce_MarksRowsProcessed(t *testing.T) {
	f := newDrainerFixture()
	id := f.addOutboxRow("payment.created")

	_, err := f.drainer.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, f.outboxRepo.rows[id].Processed)

	// A second drain finds nothing.
	drained, err := f.drainer.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, drained)
	assert.Len(t, f.eventRepo.events, 1)
}

func TestDrainOnce_SkipsRowsClaimedElsewhere(t *testing.T) {
	f := newDrainerFixture()
	id := f.addOutboxRow("payment.created")

	// Simulate a concurrent drainer winning between list and claim.
	ids, err := f.outboxRepo.ListUnprocessedIDs(context.Background(), 10)
	require.NoError(t, err)
	require.Contains(t, ids, id)
	f.outboxRepo.rows[id].Processed = true

	drained, err := f.drainer.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, drained)
	assert.Empty(t, f.eventRepo.events)
}

func TestDrainOnce_HonorsBatchSize(t *testing.T) {
	f := newDrainerFixture()
	for i := 0; i < 5; i++ {
		f.addOutboxRow("payment.created")
	}

	drained, err := f.drainer.DrainOnce(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, drained)
}
