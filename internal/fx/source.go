package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPSource fetches daily quotes from the configured rate provider.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource constructs a rate source client.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type quoteResponse struct {
	Rate string `json:"rate"`
}

// Quote fetches the provider's rate for one pair on one day.
func (s *HTTPSource) Quote(ctx context.Context, from, to string, onDate time.Time) (ExchangeRate, error) {
	from, err := NormalizeCurrency(from)
	if err != nil {
		return ExchangeRate{}, err
	}
	to, err = NormalizeCurrency(to)
	if err != nil {
		return ExchangeRate{}, err
	}
	day := NormalizeDay(onDate)

	endpoint := fmt.Sprintf("%s/rates?from=%s&to=%s&date=%s",
		s.baseURL, url.QueryEscape(from), url.QueryEscape(to), day.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ExchangeRate{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ExchangeRate{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return ExchangeRate{}, fmt.Errorf("%w: provider has no %s/%s quote for %s", ErrRateNotFound, from, to, day.Format("2006-01-02"))
	}
	if resp.StatusCode >= 400 {
		return ExchangeRate{}, fmt.Errorf("fx: provider returned status %d", resp.StatusCode)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ExchangeRate{}, fmt.Errorf("fx: decode quote: %w", err)
	}
	rate, err := decimal.NewFromString(payload.Rate)
	if err != nil {
		return ExchangeRate{}, fmt.Errorf("fx: malformed quote %q: %w", payload.Rate, err)
	}
	return ExchangeRate{From: from, To: to, Date: day, Rate: rate}, nil
}
