package app

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

// seedOrder is the JSON shape of one seed file entry.
type seedOrder struct {
	ID          string          `json:"id"`
	Provider    string          `json:"provider"`
	ProviderRef string          `json:"providerRef"`
	Status      string          `json:"status"`
	Phone       string          `json:"phone"`
	Capacity    string          `json:"capacity"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// seedOrders loads orders from a JSON file into the store. Entries without an
// id get a fresh UUID; entries without a status start as pending, the same
// initial state the checkout flow would assign.
func seedOrders(ctx context.Context, store order.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "read seed file")
	}

	var seeds []seedOrder
	if err := json.Unmarshal(data, &seeds); err != nil {
		return 0, errors.Wrap(err, "parse seed file")
	}

	for i, s := range seeds {
		o := order.Order{
			ID:          s.ID,
			Provider:    order.ProviderKey(s.Provider),
			ProviderRef: s.ProviderRef,
			Status:      order.Status(s.Status),
			Phone:       s.Phone,
			Capacity:    s.Capacity,
			Amount:      s.Amount,
			CreatedAt:   s.CreatedAt,
		}
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		if o.Status == "" {
			o.Status = order.StatusPending
		}
		if !o.Status.Valid() {
			return 0, errors.Errorf("seed entry %d: invalid status %q", i, s.Status)
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = time.Now()
		}
		if err := store.Upsert(ctx, o); err != nil {
			return 0, errors.Wrapf(err, "seed entry %d", i)
		}
	}
	return len(seeds), nil
}
