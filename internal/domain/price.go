package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceProvider quotes the current unit price of an asset in a target currency.
// Any returned error means the price is temporarily unavailable; callers retry on a
// later cycle and never read it as zero.
type PriceProvider interface {
	CurrentPrice(ctx context.Context, symbol, currency string) (decimal.Decimal, error)
}
