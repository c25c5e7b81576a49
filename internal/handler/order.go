package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

// listOrders handles GET /orders with optional status, provider and q
// filters.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := order.Filter{
		Status:   order.Status(q.Get("status")),
		Provider: order.ProviderKey(q.Get("provider")),
		Query:    q.Get("q"),
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status value")
		return
	}

	orders, err := h.store.List(r.Context(), f)
	if err != nil {
		zctx.From(r.Context()).Error("list orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orders", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range orders {
					encodeOrder(e, &orders[i])
				}
			})
		})
	})
	writeJSON(w, http.StatusOK, &e)
}

// getOrder handles GET /orders/{id}.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("get order", zap.String("order_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

// encodeOrder writes one order object onto the encoder.
func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("provider", func(e *jx.Encoder) { e.Str(string(o.Provider)) })
		e.Field("providerRef", func(e *jx.Encoder) { e.Str(o.ProviderRef) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(o.Phone) })
		e.Field("capacity", func(e *jx.Encoder) { e.Str(o.Capacity) })
		e.Field("amount", func(e *jx.Encoder) { e.Str(o.Amount.StringFixed(2)) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format(time.RFC3339)) })
		if !o.LastCheckedAt.IsZero() {
			e.Field("lastCheckedAt", func(e *jx.Encoder) { e.Str(o.LastCheckedAt.Format(time.RFC3339)) })
		}
	})
}
