// Package reconcile implements the order status reconciliation engine: a
// single-order checker with hard failure isolation, a concurrent batch
// reconciler, and the interval scheduler that drives it.
package reconcile

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/topup-reconciler/internal/domain/order"
	"github.com/xenking/topup-reconciler/internal/domain/provider"
)

// Outcome classifies what a single check did to an order.
type Outcome int

const (
	// OutcomeSkipped means the order was excluded: no provider reference, or
	// no adapter registered for its provider key. Zero network calls.
	OutcomeSkipped Outcome = iota
	// OutcomeUnchanged means the provider confirmed the current status.
	OutcomeUnchanged
	// OutcomeUpdated means the provider reported a different status.
	OutcomeUpdated
	// OutcomeFailed means the adapter call failed; the order carries
	// StatusErrorChecking so it can be retried manually later.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeUpdated:
		return "updated"
	case OutcomeFailed:
		return "failed"
	}
	return "invalid"
}

// Result is the settled value of one check. Checks always settle: adapter
// failures are folded into the returned order's status, never raised, which
// is what lets the batch reconciler wait on every order without a single
// failing provider cancelling the rest.
type Result struct {
	Order   order.Order
	Outcome Outcome
	// Err holds the underlying adapter error for OutcomeFailed, for logging
	// only. It never propagates.
	Err error
}

// Checker refreshes the status of one order through its provider adapter.
type Checker struct {
	registry *provider.Registry
	now      func() time.Time
}

// NewChecker builds a Checker over the given adapter registry.
func NewChecker(registry *provider.Registry) *Checker {
	return &Checker{registry: registry, now: time.Now}
}

// Check attempts one status refresh for o and returns a settled Result.
//
// Orders without a provider reference, or whose provider key has no
// registered adapter, come back unchanged (OutcomeSkipped) with no network
// call and no LastCheckedAt stamp. Every queried order gets LastCheckedAt
// stamped whether the call succeeded or not.
func (c *Checker) Check(ctx context.Context, o order.Order) Result {
	if !o.Checkable() {
		return Result{Order: o, Outcome: OutcomeSkipped}
	}
	checker, ok := c.registry.Lookup(o.Provider)
	if !ok {
		zctx.From(ctx).Debug("no adapter for provider, skipping order",
			zap.String("order_id", o.ID),
			zap.String("provider", string(o.Provider)))
		return Result{Order: o, Outcome: OutcomeSkipped}
	}

	status, err := checker.CheckStatus(ctx, o.ProviderRef)
	o.LastCheckedAt = c.now()
	if err != nil {
		zctx.From(ctx).Debug("status check failed",
			zap.String("order_id", o.ID),
			zap.String("provider", string(o.Provider)),
			zap.Error(err))
		o.Status = order.StatusErrorChecking
		return Result{Order: o, Outcome: OutcomeFailed, Err: err}
	}

	if status == o.Status {
		return Result{Order: o, Outcome: OutcomeUnchanged}
	}
	o.Status = status
	return Result{Order: o, Outcome: OutcomeUpdated}
}
