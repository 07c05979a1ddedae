package fx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists exchange rates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetRate fetches the rate for the exact day.
func (r *Repository) GetRate(ctx context.Context, from, to string, day time.Time) (decimal.Decimal, error) {
	var raw string
	err := r.pool.QueryRow(ctx,
		`SELECT rate::text FROM exchange_rates WHERE from_currency = $1 AND to_currency = $2 AND rate_date = $3`,
		from, to, day).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrRateNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// UpsertRate inserts or replaces the rate for a pair/day.
func (r *Repository) UpsertRate(ctx context.Context, rate ExchangeRate) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exchange_rates (from_currency, to_currency, rate_date, rate)
VALUES ($1, $2, $3, $4)
ON CONFLICT (from_currency, to_currency, rate_date) DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()`,
		rate.From, rate.To, rate.Date, rate.Rate.String())
	return err
}
