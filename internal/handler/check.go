package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

// triggerBatch handles POST /checks/batch. A trigger arriving while a batch
// is already running is an informational no-op, not an error.
func (h *Handler) triggerBatch(w http.ResponseWriter, r *http.Request) {
	started := h.scheduler.TriggerBatch()

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("started", func(e *jx.Encoder) { e.Bool(started) })
	})

	code := http.StatusAccepted
	if !started {
		code = http.StatusConflict
	}
	writeJSON(w, code, &e)
}

// checkOrder handles POST /orders/{id}/check: an immediate single-order
// re-check that bypasses the batch eligibility filter.
func (h *Handler) checkOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := h.scheduler.CheckOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("manual order check", zap.String("order_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

// checkStatus handles GET /checks/status: whether a batch is in flight and
// the countdown to the next automatic run.
func (h *Handler) checkStatus(w http.ResponseWriter, r *http.Request) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("running", func(e *jx.Encoder) { e.Bool(h.scheduler.Running()) })
		e.Field("nextCheckIn", func(e *jx.Encoder) { e.Int64(int64(h.scheduler.Remaining().Seconds())) })
	})
	writeJSON(w, http.StatusOK, &e)
}
