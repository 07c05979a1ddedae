package fx

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Store abstracts rate persistence.
type Store interface {
	GetRate(ctx context.Context, from, to string, day time.Time) (decimal.Decimal, error)
	UpsertRate(ctx context.Context, rate ExchangeRate) error
}

// Cache is an optional read-through cache in front of the store. Failures
// degrade to a direct store lookup.
type Cache interface {
	Get(ctx context.Context, from, to string, day time.Time) (decimal.Decimal, bool, error)
	Set(ctx context.Context, from, to string, day time.Time, rate decimal.Decimal) error
}

// Resolver resolves historical conversion rates between currency pairs.
type Resolver struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

// NewResolver constructs the resolver. Cache may be nil.
func NewResolver(store Store, cache Cache, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, cache: cache, logger: logger}
}

var one = decimal.NewFromInt(1)

// Rate returns the stored rate for the exact calendar day of onDate. Identity
// pairs resolve to 1 without touching storage.
func (r *Resolver) Rate(ctx context.Context, from, to string, onDate time.Time) (decimal.Decimal, error) {
	from, err := NormalizeCurrency(from)
	if err != nil {
		return decimal.Zero, err
	}
	to, err = NormalizeCurrency(to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return one, nil
	}
	if r == nil || r.store == nil {
		return decimal.Zero, errors.New("fx: resolver not initialised")
	}

	day := NormalizeDay(onDate)

	if r.cache != nil {
		rate, ok, err := r.cache.Get(ctx, from, to, day)
		if err != nil {
			r.log().Warn("rate cache read failed", slog.Any("error", err))
		} else if ok {
			return rate, nil
		}
	}

	rate, err := r.store.GetRate(ctx, from, to, day)
	if err != nil {
		return decimal.Zero, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, from, to, day, rate); err != nil {
			r.log().Warn("rate cache write failed", slog.Any("error", err))
		}
	}
	return rate, nil
}

// Seed upserts one rate for its calendar day. Used by the scheduled seeding
// job and by manual entry.
func (r *Resolver) Seed(ctx context.Context, rate ExchangeRate) error {
	if r == nil || r.store == nil {
		return errors.New("fx: resolver not initialised")
	}
	from, err := NormalizeCurrency(rate.From)
	if err != nil {
		return err
	}
	to, err := NormalizeCurrency(rate.To)
	if err != nil {
		return err
	}
	if from == to {
		return errors.New("fx: identity pairs are implicit and never stored")
	}
	if !rate.Rate.IsPositive() {
		return ErrInvalidRate
	}
	rate.From = from
	rate.To = to
	rate.Date = NormalizeDay(rate.Date)
	if err := r.store.UpsertRate(ctx, rate); err != nil {
		return err
	}
	// A correction must be visible immediately, not after the cached copy of
	// the old rate expires.
	if r.cache != nil {
		if err := r.cache.Set(ctx, rate.From, rate.To, rate.Date, rate.Rate); err != nil {
			r.log().Warn("rate cache write failed", slog.Any("error", err))
		}
	}
	return nil
}

func (r *Resolver) log() *slog.Logger {
	if r != nil && r.logger != nil {
		return r.logger.With(slog.String("component", "fx_resolver"))
	}
	return slog.Default().With(slog.String("component", "fx_resolver"))
}
