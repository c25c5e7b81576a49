package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/topup-reconciler/internal/domain/order"
	"github.com/xenking/topup-reconciler/internal/domain/provider"
	"github.com/xenking/topup-reconciler/internal/reconcile"
	"github.com/xenking/topup-reconciler/internal/storage/memory"
)

// fixedChecker always reports the same status.
type fixedChecker struct {
	key    order.ProviderKey
	status order.Status
}

func (f *fixedChecker) Key() order.ProviderKey { return f.key }

func (f *fixedChecker) CheckStatus(context.Context, string) (order.Status, error) {
	return f.status, nil
}

func newTestHandler(t *testing.T, store order.Store, adapters ...provider.Checker) *Handler {
	t.Helper()
	checker := reconcile.NewChecker(provider.NewRegistry(adapters...))
	reconciler, err := reconcile.NewReconciler(store, checker, noop.NewMeterProvider(), 4)
	require.NoError(t, err)
	scheduler := reconcile.NewScheduler(reconciler, checker, store, time.Hour)
	return NewHandler(store, scheduler)
}

func seedStore(t *testing.T, store order.Store) {
	t.Helper()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	orders := []order.Order{
		{ID: "1", Provider: "airtel", ProviderRef: "R1", Status: order.StatusPending, Phone: "0788111111", CreatedAt: base.Add(time.Hour)},
		{ID: "2", Provider: "mtn", ProviderRef: "R2", Status: order.StatusCompleted, Phone: "0788222222", CreatedAt: base},
	}
	for _, o := range orders {
		require.NoError(t, store.Upsert(context.Background(), o))
	}
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func decodeOrderIDs(t *testing.T, body []byte) []string {
	t.Helper()
	var ids []string
	d := jx.DecodeBytes(body)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "orders" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				if string(key) != "id" {
					return d.Skip()
				}
				id, err := d.Str()
				ids = append(ids, id)
				return err
			})
		})
	})
	require.NoError(t, err)
	return ids
}

func TestListOrders(t *testing.T) {
	store := memory.NewOrderStore()
	seedStore(t, store)
	srv := httptest.NewServer(newTestHandler(t, store).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := readAll(t, resp)
	assert.Equal(t, []string{"1", "2"}, decodeOrderIDs(t, body))
}

func TestListOrders_StatusFilter(t *testing.T) {
	store := memory.NewOrderStore()
	seedStore(t, store)
	srv := httptest.NewServer(newTestHandler(t, store).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/orders?status=completed")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"2"}, decodeOrderIDs(t, readAll(t, resp)))

	resp, err = http.Get(srv.URL + "/orders?status=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListOrders_FreeTextFilter(t *testing.T) {
	store := memory.NewOrderStore()
	seedStore(t, store)
	srv := httptest.NewServer(newTestHandler(t, store).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/orders?q=222")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, []string{"2"}, decodeOrderIDs(t, readAll(t, resp)))
}

func TestGetOrder(t *testing.T) {
	store := memory.NewOrderStore()
	seedStore(t, store)
	srv := httptest.NewServer(newTestHandler(t, store).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/orders/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/orders/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerBatch(t *testing.T) {
	store := memory.NewOrderStore()
	srv := httptest.NewServer(newTestHandler(t, store).Routes())
	defer srv.Close()

	// First trigger queues a run.
	resp, err := http.Post(srv.URL+"/checks/batch", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// With the queued trigger not yet consumed, another one is dropped.
	resp, err = http.Post(srv.URL+"/checks/batch", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCheckOrder_Manual(t *testing.T) {
	store := memory.NewOrderStore()
	seedStore(t, store)
	adapter := &fixedChecker{key: "mtn", status: order.StatusRefunded}
	srv := httptest.NewServer(newTestHandler(t, store, adapter).Routes())
	defer srv.Close()

	// Order 2 is terminal; the manual path checks it anyway.
	resp, err := http.Post(srv.URL+"/orders/2/check", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := store.GetByID(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, order.StatusRefunded, got.Status)
}

func TestCheckOrder_NotFound(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t, memory.NewOrderStore()).Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orders/nope/check", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckStatusEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t, memory.NewOrderStore()).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/checks/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var (
		running      = true
		sawCountdown bool
	)
	d := jx.DecodeBytes(readAll(t, resp))
	err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "running":
			v, err := d.Bool()
			running = v
			return err
		case "nextCheckIn":
			_, err := d.Int64()
			sawCountdown = true
			return err
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	assert.False(t, running)
	assert.True(t, sawCountdown)
}
