package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateCache stores resolved rates in Redis. Postgres stays the source of
// truth; entries expire so corrections propagate.
type RateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRateCache constructs the cache.
func NewRateCache(client *redis.Client, ttl time.Duration) *RateCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RateCache{client: client, ttl: ttl}
}

func rateKey(from, to string, day time.Time) string {
	return fmt.Sprintf("fx:%s:%s:%s", from, to, day.Format("2006-01-02"))
}

// Get returns the cached rate when present.
func (c *RateCache) Get(ctx context.Context, from, to string, day time.Time) (decimal.Decimal, bool, error) {
	if c == nil || c.client == nil {
		return decimal.Zero, false, nil
	}
	raw, err := c.client.Get(ctx, rateKey(from, to, day)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, err
	}
	return rate, true, nil
}

// Set stores the rate under its pair/day key.
func (c *RateCache) Set(ctx context.Context, from, to string, day time.Time, rate decimal.Decimal) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, rateKey(from, to, day), rate.String(), c.ttl).Err()
}
