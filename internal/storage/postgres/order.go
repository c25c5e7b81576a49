package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL. It serves as the
// durable mirror behind the in-memory authoritative store: loaded at boot,
// written through on every merge.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const listOrdersSQL = `
SELECT id, provider, provider_ref, status, phone, capacity, amount, created_at, last_checked_at
FROM orders
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR provider = $2)
  AND ($3 = '' OR phone ILIKE '%' || $3 || '%' OR provider_ref ILIKE '%' || $3 || '%')
ORDER BY created_at DESC, id`

// List implements order.Store.
func (s *OrderStore) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, listOrdersSQL, string(f.Status), string(f.Provider), f.Query)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetByID implements order.Store.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, provider, provider_ref, status, phone, capacity, amount, created_at, last_checked_at
FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// Upsert implements order.Store as a whole-record replacement keyed by id.
func (s *OrderStore) Upsert(ctx context.Context, o order.Order) error {
	var lastChecked *time.Time
	if !o.LastCheckedAt.IsZero() {
		lastChecked = &o.LastCheckedAt
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO orders (id, provider, provider_ref, status, phone, capacity, amount, created_at, last_checked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  provider = EXCLUDED.provider,
  provider_ref = EXCLUDED.provider_ref,
  status = EXCLUDED.status,
  phone = EXCLUDED.phone,
  capacity = EXCLUDED.capacity,
  amount = EXCLUDED.amount,
  created_at = EXCLUDED.created_at,
  last_checked_at = EXCLUDED.last_checked_at`,
		o.ID, string(o.Provider), o.ProviderRef, string(o.Status),
		o.Phone, o.Capacity, o.Amount, o.CreatedAt, lastChecked)
	if err != nil {
		return fmt.Errorf("upserting order %q: %w", o.ID, err)
	}
	return nil
}

// scanOrder maps one row onto the domain order.
func scanOrder(row pgx.Row) (order.Order, error) {
	var (
		o           order.Order
		provider    string
		status      string
		amount      decimal.Decimal
		lastChecked *time.Time
	)
	err := row.Scan(&o.ID, &provider, &o.ProviderRef, &status,
		&o.Phone, &o.Capacity, &amount, &o.CreatedAt, &lastChecked)
	if err != nil {
		return order.Order{}, err
	}
	o.Provider = order.ProviderKey(provider)
	o.Status = order.Status(status)
	o.Amount = amount
	if lastChecked != nil {
		o.LastCheckedAt = *lastChecked
	}
	return o, nil
}
