package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned when the oracle has no price for a
// token. Callers degrade to a liquidity value of 0, never an error.
var ErrPriceUnavailable = errors.New("price unavailable")

// PriceOracle converts a token into its USD price. It is used only to
// value raw reserves; unavailability must degrade, not fail.
type PriceOracle interface {
	USDPrice(ctx context.Context, token string, chainID uint64) (decimal.Decimal, error)
}

// HTTPOracle queries a REST price endpoint of the shape
// GET {base}/price?token=<addr>&chainId=<id> -> {"<addr>": "<usd>"}.
type HTTPOracle struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPOracle creates a price oracle against the given base URL.
func NewHTTPOracle(baseURL string) *HTTPOracle {
	return &HTTPOracle{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
	}
}

// USDPrice fetches the USD price of a token.
func (o *HTTPOracle) USDPrice(ctx context.Context, token string, chainID uint64) (decimal.Decimal, error) {
	reqURL := fmt.Sprintf("%s/price?token=%s&chainId=%d", o.baseURL, url.QueryEscape(token), chainID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Decimal{}, ErrPriceUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("price endpoint HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}

	var prices map[string]string
	if err := json.Unmarshal(body, &prices); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse price response: %w", err)
	}
	priceStr, ok := prices[token]
	if !ok {
		return decimal.Decimal{}, ErrPriceUnavailable
	}
	return decimal.NewFromString(priceStr)
}

// StaticOracle serves prices from a fixed table. Used in tests and as a
// stand-in when no oracle endpoint is configured.
type StaticOracle struct {
	Prices map[string]decimal.Decimal
}

// USDPrice returns the configured price or ErrPriceUnavailable.
func (o *StaticOracle) USDPrice(_ context.Context, token string, _ uint64) (decimal.Decimal, error) {
	p, ok := o.Prices[token]
	if !ok {
		return decimal.Decimal{}, ErrPriceUnavailable
	}
	return p, nil
}
