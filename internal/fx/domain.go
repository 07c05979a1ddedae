package fx

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate stores the conversion rate between two currencies for one
// calendar day. At most one rate exists per (from, to, day) triple.
type ExchangeRate struct {
	ID        int64
	From      string
	To        string
	Date      time.Time
	Rate      decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	// ErrRateNotFound indicates no rate is stored for the requested day. The
	// resolver never falls back to a stale or interpolated rate; that would
	// silently corrupt financial records. Callers seed rates ahead of any
	// transaction date range.
	ErrRateNotFound = errors.New("fx: rate not found")
	// ErrInvalidRate indicates a non-positive rate was supplied for seeding.
	ErrInvalidRate = errors.New("fx: rate must be positive")
	// ErrInvalidCurrency indicates a malformed currency code.
	ErrInvalidCurrency = errors.New("fx: invalid currency code")
)

// NormalizeDay truncates a timestamp to midnight UTC, the granularity at which
// rates are stored and resolved.
func NormalizeDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return code, nil
}
