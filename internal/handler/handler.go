// Package handler exposes the reconciliation engine over a small HTTP API:
// read-only order views, manual check triggers, and scheduler status.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/topup-reconciler/internal/domain/order"
	"github.com/xenking/topup-reconciler/internal/reconcile"
)

// Handler serves the order and check endpoints. It reads orders through the
// store interface and drives checks through the scheduler; it never writes
// order state itself.
type Handler struct {
	store     order.Store
	scheduler *reconcile.Scheduler
}

// NewHandler constructs a Handler.
func NewHandler(store order.Store, scheduler *reconcile.Scheduler) *Handler {
	return &Handler{store: store, scheduler: scheduler}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/check", h.checkOrder)
	r.Post("/checks/batch", h.triggerBatch)
	r.Get("/checks/status", h.checkStatus)
	return r
}

// writeJSON sends the encoder's buffer with the given status code.
func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, code int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, code, &e)
}
