package storage

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/topup-reconciler/internal/domain/order"
	"github.com/xenking/topup-reconciler/internal/storage/memory"
)

// failingStore is an order.Store whose writes always fail.
type failingStore struct {
	order.Store
}

func (f *failingStore) Upsert(context.Context, order.Order) error {
	return errors.New("mirror is down")
}

func TestMirrored_WriteThrough(t *testing.T) {
	primary := memory.NewOrderStore()
	mirror := memory.NewOrderStore()
	m := NewMirrored(primary, mirror)
	ctx := context.Background()

	o := order.Order{ID: "1", Provider: "airtel", Status: order.StatusPending}
	require.NoError(t, m.Upsert(ctx, o))

	got, err := mirror.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, o, *got)
}

func TestMirrored_MirrorFailureIsNotFatal(t *testing.T) {
	primary := memory.NewOrderStore()
	m := NewMirrored(primary, &failingStore{})
	ctx := context.Background()

	o := order.Order{ID: "1", Status: order.StatusPending}
	require.NoError(t, m.Upsert(ctx, o))

	got, err := primary.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, o, *got)
}

func TestLoad_RehydratesPrimary(t *testing.T) {
	primary := memory.NewOrderStore()
	mirror := memory.NewOrderStore()
	ctx := context.Background()

	require.NoError(t, mirror.Upsert(ctx, order.Order{ID: "1", Status: order.StatusPending}))
	require.NoError(t, mirror.Upsert(ctx, order.Order{ID: "2", Status: order.StatusCompleted}))

	n, err := Load(ctx, mirror, primary)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, primary.Len())
}
