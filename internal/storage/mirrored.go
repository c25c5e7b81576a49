// Package storage composes order stores.
package storage

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

var _ order.Store = (*Mirrored)(nil)

// Mirrored is an order.Store that reads from the in-memory primary and
// writes through to a durable mirror. A failed mirror write is logged and
// otherwise ignored: the primary stays authoritative and the reconciliation
// loop must not die because the mirror is down.
type Mirrored struct {
	primary order.Store
	mirror  order.Store
}

// NewMirrored wraps primary with write-through to mirror.
func NewMirrored(primary, mirror order.Store) *Mirrored {
	return &Mirrored{primary: primary, mirror: mirror}
}

// List implements order.Store against the primary.
func (m *Mirrored) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	return m.primary.List(ctx, f)
}

// GetByID implements order.Store against the primary.
func (m *Mirrored) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return m.primary.GetByID(ctx, id)
}

// Upsert implements order.Store: the primary write must succeed, the mirror
// write is best effort.
func (m *Mirrored) Upsert(ctx context.Context, o order.Order) error {
	if err := m.primary.Upsert(ctx, o); err != nil {
		return err
	}
	if err := m.mirror.Upsert(ctx, o); err != nil {
		zctx.From(ctx).Error("mirror upsert failed",
			zap.String("order_id", o.ID),
			zap.Error(err))
	}
	return nil
}

// Load copies every order from the mirror into the primary. Called once at
// boot to rehydrate the in-memory store.
func Load(ctx context.Context, mirror, primary order.Store) (int, error) {
	orders, err := mirror.List(ctx, order.Filter{})
	if err != nil {
		return 0, err
	}
	for _, o := range orders {
		if err := primary.Upsert(ctx, o); err != nil {
			return 0, err
		}
	}
	return len(orders), nil
}
