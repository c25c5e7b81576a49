// Package provider defines the status-adapter contract between the
// reconciliation engine and external network-provider APIs. One Checker
// exists per provider; the Registry selects the right one by provider key so
// adding a provider never touches existing adapters.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

// Checker queries one external provider for the authoritative status of a
// single order reference. Implementations must normalize the provider's own
// status vocabulary into the canonical order.Status set and must not be
// called with an empty reference.
type Checker interface {
	// Key identifies the provider this checker serves.
	Key() order.ProviderKey
	// CheckStatus resolves the provider's current status for ref. It returns
	// an error when the call fails, the response cannot be parsed, or the
	// provider reports a request-level error; unrecognized status strings are
	// not errors and map to order.StatusUnknown.
	CheckStatus(ctx context.Context, ref string) (order.Status, error)
}

// StatusError is a request-level failure reported by a provider API, as
// opposed to a transport or parse failure.
type StatusError struct {
	Provider order.ProviderKey
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider %s returned %d: %s", e.Provider, e.Code, e.Message)
}

// Registry maps provider keys to their checkers. It is populated once during
// wiring and read-only afterwards, so it needs no locking.
type Registry struct {
	checkers map[order.ProviderKey]Checker
}

// NewRegistry builds a registry from the given checkers.
func NewRegistry(checkers ...Checker) *Registry {
	r := &Registry{checkers: make(map[order.ProviderKey]Checker, len(checkers))}
	for _, c := range checkers {
		r.checkers[c.Key()] = c
	}
	return r
}

// Lookup returns the checker for key, or false when no adapter is registered.
// A missing adapter is a configuration gap, not an error: callers skip the
// order instead of failing.
func (r *Registry) Lookup(key order.ProviderKey) (Checker, bool) {
	c, ok := r.checkers[key]
	return c, ok
}

// Keys returns the registered provider keys, for diagnostics.
func (r *Registry) Keys() []order.ProviderKey {
	keys := make([]order.ProviderKey, 0, len(r.checkers))
	for k := range r.checkers {
		keys = append(keys, k)
	}
	return keys
}

// NormalizeStatus maps a provider's raw status string through vocab into the
// canonical set. Matching is case-insensitive; anything outside the vocab
// passes through as StatusUnknown rather than raising.
func NormalizeStatus(vocab map[string]order.Status, raw string) order.Status {
	if s, ok := vocab[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return order.StatusUnknown
}
