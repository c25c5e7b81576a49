package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

func TestOrderStore_UpsertAndGet(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()

	_, err := s.GetByID(ctx, "1")
	require.ErrorIs(t, err, order.ErrNotFound)

	o := order.Order{ID: "1", Provider: "airtel", Status: order.StatusPending}
	require.NoError(t, s.Upsert(ctx, o))

	got, err := s.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, o, *got)

	// Upsert replaces the whole record.
	o.Status = order.StatusCompleted
	require.NoError(t, s.Upsert(ctx, o))
	got, err = s.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, got.Status)
	assert.Equal(t, 1, s.Len())
}

func TestOrderStore_GetReturnsCopy(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, order.Order{ID: "1", Status: order.StatusPending}))

	got, err := s.GetByID(ctx, "1")
	require.NoError(t, err)
	got.Status = order.StatusFailed

	again, err := s.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, again.Status)
}

func TestOrderStore_ListFiltersAndSorts(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Upsert(ctx, order.Order{
		ID: "old", Provider: "airtel", Status: order.StatusCompleted,
		Phone: "0788111111", CreatedAt: base,
	}))
	require.NoError(t, s.Upsert(ctx, order.Order{
		ID: "new", Provider: "mtn", Status: order.StatusPending,
		Phone: "0788222222", CreatedAt: base.Add(time.Hour),
	}))

	all, err := s.List(ctx, order.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].ID, "newest first")

	pending, err := s.List(ctx, order.Filter{Status: order.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "new", pending[0].ID)

	byPhone, err := s.List(ctx, order.Filter{Query: "111"})
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "old", byPhone[0].ID)
}
