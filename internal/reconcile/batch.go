package reconcile

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

// Summary aggregates what one batch run did.
type Summary struct {
	Eligible  int
	Updated   int
	Unchanged int
	Failed    int
	Skipped   int
	// Stalled counts orders left in unknown or error-checking state after the
	// run. Such orders are only recoverable through a manual re-check, so the
	// scheduler surfaces this count after every batch.
	Stalled int
}

// Reconciler refreshes every eligible order in one concurrent pass and merges
// the settled results back into the store.
type Reconciler struct {
	store   order.Store
	checker *Checker
	limit   int

	checks metric.Int64Counter
}

// NewReconciler builds a Reconciler. limit bounds how many provider calls run
// concurrently within a batch; values below 1 mean unbounded.
func NewReconciler(store order.Store, checker *Checker, mp metric.MeterProvider, limit int) (*Reconciler, error) {
	meter := mp.Meter("github.com/xenking/topup-reconciler/internal/reconcile")
	checks, err := meter.Int64Counter("reconcile.checks",
		metric.WithDescription("Settled single-order status checks, by outcome"))
	if err != nil {
		return nil, errors.Wrap(err, "create checks counter")
	}
	return &Reconciler{
		store:   store,
		checker: checker,
		limit:   limit,
		checks:  checks,
	}, nil
}

// Run performs one batch: select orders in a pollable state, fan the checker
// out over all of them, wait for every check to settle, then merge.
//
// Merge happens strictly after the fan-in, and takes only Status and
// LastCheckedAt from each result; every other field comes from the store's
// record at merge time, so a record that changed shape between selection and
// merge keeps its other fields intact. If ctx is done by the time the checks
// have settled, the results are discarded and nothing is written.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	lg := zctx.From(ctx)

	all, err := r.store.List(ctx, order.Filter{})
	if err != nil {
		return Summary{}, errors.Wrap(err, "list orders")
	}

	var eligible []order.Order
	for _, o := range all {
		if o.Status.Pollable() {
			eligible = append(eligible, o)
		}
	}

	sum := Summary{Eligible: len(eligible)}
	if len(eligible) == 0 {
		sum.Stalled = countStalled(all)
		return sum, nil
	}

	results := make([]Result, len(eligible))
	g, groupCtx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, o := range eligible {
		g.Go(func() error {
			// Check never returns an error: failures settle into the result.
			results[i] = r.checker.Check(groupCtx, o)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		lg.Info("context done before merge, discarding batch results", zap.Error(err))
		return sum, err
	}

	for _, res := range results {
		r.checks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", res.Outcome.String())))
		switch res.Outcome {
		case OutcomeSkipped:
			sum.Skipped++
			continue
		case OutcomeUnchanged:
			sum.Unchanged++
		case OutcomeUpdated:
			sum.Updated++
		case OutcomeFailed:
			sum.Failed++
		}
		if err := mergeResult(ctx, r.store, res); err != nil {
			lg.Error("merge check result",
				zap.String("order_id", res.Order.ID),
				zap.Error(err))
		}
	}

	after, err := r.store.List(ctx, order.Filter{})
	if err == nil {
		sum.Stalled = countStalled(after)
	}

	return sum, nil
}

// mergeResult writes one settled check back into the store, preserving every
// field except Status and LastCheckedAt from the stored record. An order that
// vanished from the store between selection and merge is dropped silently.
func mergeResult(ctx context.Context, store order.Store, res Result) error {
	stored, err := store.GetByID(ctx, res.Order.ID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "get stored order")
	}

	merged := *stored
	merged.Status = res.Order.Status
	merged.LastCheckedAt = res.Order.LastCheckedAt

	if err := store.Upsert(ctx, merged); err != nil {
		return errors.Wrap(err, "upsert order")
	}
	return nil
}

func countStalled(orders []order.Order) int {
	n := 0
	for _, o := range orders {
		if o.Status == order.StatusUnknown || o.Status == order.StatusErrorChecking {
			n++
		}
	}
	return n
}
