package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"

// CoinGeckoSource fetches the SOL/USD price from the CoinGecko simple
// price endpoint.
type CoinGeckoSource struct {
	url    string
	client *http.Client
}

// CoinGeckoOption configures CoinGeckoSource.
type CoinGeckoOption func(*CoinGeckoSource)

// WithURL overrides the price endpoint URL.
func WithURL(url string) CoinGeckoOption {
	return func(s *CoinGeckoSource) {
		s.url = url
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) CoinGeckoOption {
	return func(s *CoinGeckoSource) {
		s.client = client
	}
}

// NewCoinGeckoSource creates a CoinGecko price source.
func NewCoinGeckoSource(opts ...CoinGeckoOption) *CoinGeckoSource {
	s := &CoinGeckoSource{
		url:    defaultCoinGeckoURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface check.
var _ Source = (*CoinGeckoSource)(nil)

// FetchUSD returns the current SOL price in USD.
func (s *CoinGeckoSource) FetchUSD(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	var payload struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}

	return payload.Solana.USD, nil
}
