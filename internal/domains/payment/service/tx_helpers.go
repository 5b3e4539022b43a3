package service

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

type txHandle = pgx.Tx

// inTx runs fn inside a transaction owned by the service's manager.
func (s *paymentService) inTx(ctx context.Context, fn func(tx txHandle) error) error {
	return runInTx(ctx, s.txManager, fn)
}

type txBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

func runInTx(ctx context.Context, mgr txBeginner, fn func(tx txHandle) error) error {
	tx, err := mgr.BeginTx(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = mgr.RollbackTx(ctx, tx)
		return err
	}

	return mgr.CommitTx(ctx, tx)
}

// snapshotPayload converts a typed snapshot into the generic payload
// shape outbox rows carry.
func snapshotPayload(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
