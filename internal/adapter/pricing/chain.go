package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// Chain asks each provider in order and returns the first price it gets
type Chain []domain.PriceProvider

func (c Chain) CurrentPrice(ctx context.Context, symbol, currency string) (decimal.Decimal, error) {
	if len(c) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no price provider configured", domain.ErrPriceUnavailable)
	}

	var errs []error
	for _, p := range c {
		price, err := p.CurrentPrice(ctx, symbol, currency)
		if err == nil {
			return price, nil
		}
		if ctx.Err() != nil {
			return decimal.Zero, ctx.Err()
		}
		errs = append(errs, err)
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s: %v", domain.ErrPriceUnavailable, symbol, currency, errors.Join(errs...))
}
