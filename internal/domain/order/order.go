package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the requested order does not exist in the store.
var ErrNotFound = fmt.Errorf("order not found")

// Status is the canonical order status vocabulary. Provider responses are
// normalized into this set before they touch the store.
type Status string

const (
	StatusPending       Status = "pending"
	StatusProcessing    Status = "processing"
	StatusWaiting       Status = "waiting"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusRefunded      Status = "refunded"
	StatusUnknown       Status = "unknown"
	StatusErrorChecking Status = "error-checking"
)

// Terminal reports whether s is a final state. Terminal orders are never
// polled again but stay in the store for history.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Pollable reports whether s makes an order eligible for automatic batch
// polling. Unknown and error-checking orders are deliberately excluded: they
// indicate a provider that is already failing or ambiguous, and are only
// re-checked through the manual single-order path.
func (s Status) Pollable() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusWaiting:
		return true
	}
	return false
}

// Valid reports whether s is part of the canonical vocabulary.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusWaiting, StatusCompleted,
		StatusFailed, StatusRefunded, StatusUnknown, StatusErrorChecking:
		return true
	}
	return false
}

// ProviderKey identifies which external network provider fulfills an order,
// and therefore which status adapter applies to it.
type ProviderKey string

// Order is a purchased data-bundle top-up whose delivery status is tracked
// against the fulfilling provider over time.
//
// Status and LastCheckedAt are owned by the reconciliation pipeline; every
// other field is written once at creation and read-only afterwards.
type Order struct {
	ID          string
	Provider    ProviderKey
	ProviderRef string // external reference, empty when the provider never issued one
	Status      Status
	Phone       string
	Capacity    string
	Amount      decimal.Decimal
	CreatedAt   time.Time

	// LastCheckedAt is the zero time until the first poll attempt.
	LastCheckedAt time.Time
}

// Checkable reports whether the order carries enough provider identity to be
// queried at all. Orders without a reference are excluded from polling, not
// errored.
func (o *Order) Checkable() bool {
	return o.ProviderRef != ""
}

// Filter narrows a listing of orders. Zero values match everything.
type Filter struct {
	Status   Status
	Provider ProviderKey
	// Query is matched case-insensitively against the phone number and the
	// provider reference.
	Query string
}

// Match reports whether o passes every set field of f.
func (f Filter) Match(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Provider != "" && o.Provider != f.Provider {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(o.Phone), q) &&
			!strings.Contains(strings.ToLower(o.ProviderRef), q) {
			return false
		}
	}
	return true
}

// Store is the authoritative order collection. Writes are whole-record
// replacements keyed by id; the reconciler's merge step and the manual check
// path are the only writers once an order exists.
type Store interface {
	// List returns orders passing the filter, newest first.
	List(ctx context.Context, f Filter) ([]Order, error)
	// GetByID returns the order with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)
	// Upsert inserts or replaces the order keyed by its ID.
	Upsert(ctx context.Context, o Order) error
}
