package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// Static quotes from a fixed table keyed by "SYMBOL/CURRENCY"
type Static map[string]decimal.Decimal

// ParseStatic builds a Static table from "SYMBOL/CURRENCY" -> price strings
func ParseStatic(entries map[string]string) (Static, error) {
	out := Static{}
	for k, v := range entries {
		parts := strings.Split(k, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("static price key %q must look like SYMBOL/CURRENCY", k)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("static price %s: %w", k, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("static price %s must be positive", k)
		}
		out.Set(parts[0], parts[1], price)
	}
	return out, nil
}

// Set adds or replaces one quote
func (s Static) Set(symbol, currency string, price decimal.Decimal) {
	s[staticKey(symbol, currency)] = price
}

func (s Static) CurrentPrice(_ context.Context, symbol, currency string) (decimal.Decimal, error) {
	price, ok := s[staticKey(symbol, currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no static price for %s/%s", domain.ErrPriceUnavailable, symbol, currency)
	}
	return price, nil
}

func staticKey(symbol, currency string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + "/" + strings.ToUpper(strings.TrimSpace(currency))
}
