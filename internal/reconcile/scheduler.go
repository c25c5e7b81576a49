package reconcile

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

// DefaultInterval is the period between automatic batch runs.
const DefaultInterval = 5 * time.Minute

// Scheduler drives the batch reconciler on a fixed interval and exposes the
// manual trigger paths. It is a two-state machine, Idle and Running, with the
// running flag as the sole write-concurrency control for batch runs: a timer
// fire or manual trigger only starts a batch from Idle, so batches never
// overlap.
type Scheduler struct {
	reconciler *Reconciler
	checker    *Checker
	store      order.Store
	interval   time.Duration

	running atomic.Bool
	// remaining is the countdown in whole seconds until the next automatic
	// run. Display state only, decremented by a 1s tick; the period timer is
	// the scheduling truth.
	remaining atomic.Int64
	manualC   chan struct{}
}

// NewScheduler builds a Scheduler. interval falls back to DefaultInterval
// when non-positive.
func NewScheduler(reconciler *Reconciler, checker *Checker, store order.Store, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		reconciler: reconciler,
		checker:    checker,
		store:      store,
		interval:   interval,
		manualC:    make(chan struct{}, 1),
	}
}

// Run owns the period timer and the countdown tick until ctx is cancelled.
// Batches run on this goroutine, so a manual trigger arriving mid-run finds
// the Running flag set and is dropped. After each run the period timer is
// reset, so the next automatic fire is one full interval after the run
// finished regardless of how long it took.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	s.remaining.Store(int64(s.interval / time.Second))
	zctx.From(ctx).Info("scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			zctx.From(ctx).Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runBatch(ctx)
			timer.Reset(s.interval)
			s.remaining.Store(int64(s.interval / time.Second))
		case <-s.manualC:
			s.runBatch(ctx)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.interval)
			s.remaining.Store(int64(s.interval / time.Second))
		case <-tick.C:
			if v := s.remaining.Load(); v > 0 {
				s.remaining.Store(v - 1)
			}
		}
	}
}

// runBatch executes one batch behind the Idle/Running gate.
func (s *Scheduler) runBatch(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	s.remaining.Store(int64(s.interval / time.Second))
	lg := zctx.From(ctx)

	start := time.Now()
	sum, err := s.reconciler.Run(ctx)
	if err != nil {
		lg.Error("batch reconciliation aborted", zap.Error(err))
		return
	}

	lg.Info("batch reconciliation finished",
		zap.Int("eligible", sum.Eligible),
		zap.Int("updated", sum.Updated),
		zap.Int("unchanged", sum.Unchanged),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("took", time.Since(start)))

	if sum.Stalled > 0 {
		// These orders are never picked up automatically again; without this
		// they could sit in unknown/error-checking forever unnoticed.
		lg.Warn("orders stalled awaiting manual re-check", zap.Int("count", sum.Stalled))
	}
}

// TriggerBatch requests an immediate batch run. It reports false when a batch
// is already running or a trigger is already queued; the dropped trigger is
// informational, not an error.
func (s *Scheduler) TriggerBatch() bool {
	if s.running.Load() {
		return false
	}
	select {
	case s.manualC <- struct{}{}:
		return true
	default:
		return false
	}
}

// CheckOrder re-checks a single order by id immediately, bypassing the batch
// eligibility filter: any status may be re-checked, which is how an
// error-checking or unknown order gets recovered by hand. The check still
// goes through the single-order checker, so failures settle into the order's
// status instead of propagating. Runs on the caller's goroutine, independent
// of the batch gate.
func (s *Scheduler) CheckOrder(ctx context.Context, id string) (*order.Order, error) {
	stored, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	res := s.checker.Check(ctx, *stored)
	if res.Outcome == OutcomeSkipped {
		return stored, nil
	}

	if err := mergeResult(ctx, s.store, res); err != nil {
		return nil, err
	}

	merged := *stored
	merged.Status = res.Order.Status
	merged.LastCheckedAt = res.Order.LastCheckedAt
	return &merged, nil
}

// Running reports whether a batch is currently in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Remaining returns the best-effort time until the next automatic run.
func (s *Scheduler) Remaining() time.Duration {
	return time.Duration(s.remaining.Load()) * time.Second
}
