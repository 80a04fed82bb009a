package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// DefaultCoinGeckoURL is the public CoinGecko API root
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGecko quotes crypto assets through the CoinGecko simple price endpoint
type CoinGecko struct {
	BaseURL string
	APIKey  string // sent as x-cg-demo-api-key when set
	Client  *http.Client
}

// NewCoinGecko creates a CoinGecko client with its own http.Client
func NewCoinGecko(baseURL, apiKey string, timeout time.Duration) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGecko{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

// CurrentPrice returns the price of one unit of symbol in currency
func (c *CoinGecko) CurrentPrice(ctx context.Context, symbol, currency string) (decimal.Decimal, error) {
	sym := strings.ToLower(symbol)
	cur := strings.ToLower(currency)

	q := url.Values{}
	q.Set("symbols", sym)
	q.Set("vs_currencies", cur)
	endpoint := c.BaseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build coingecko request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.APIKey)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: coingecko request failed: %v", domain.ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("%w: coingecko returned status %d: %s",
			domain.ErrPriceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// {"btc":{"eur":60000.12}}
	var payload map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("%w: failed to decode coingecko response: %v", domain.ErrPriceUnavailable, err)
	}

	price, ok := payload[sym][cur]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: coingecko has no %s price for %s", domain.ErrPriceUnavailable, currency, symbol)
	}
	return price, nil
}

func (c *CoinGecko) client() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}
