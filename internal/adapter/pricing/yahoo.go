package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// DefaultYahooLookback covers weekends and market holidays when looking for the last close
const DefaultYahooLookback = 10 * 24 * time.Hour

// Yahoo quotes funds and ETFs with the last daily close from Yahoo Finance charts
type Yahoo struct {
	Lookback time.Duration
	Now      func() time.Time

	// lastClose is replaced in tests
	lastClose func(symbol string, start, end time.Time) (decimal.Decimal, string, error)
}

// NewYahoo creates a Yahoo price provider
func NewYahoo(lookback time.Duration) *Yahoo {
	if lookback <= 0 {
		lookback = DefaultYahooLookback
	}
	return &Yahoo{Lookback: lookback, Now: time.Now, lastClose: chartLastClose}
}

// CurrentPrice returns the latest daily close of symbol. The quote currency of the
// listing must match currency; no conversion is attempted.
func (y *Yahoo) CurrentPrice(ctx context.Context, symbol, currency string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	end := y.now()
	start := end.Add(-y.Lookback)

	closePrice, quoted, err := y.lastClose(symbol, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: yahoo chart for %s: %v", domain.ErrPriceUnavailable, symbol, err)
	}
	if !closePrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: yahoo has no recent close for %s", domain.ErrPriceUnavailable, symbol)
	}
	if quoted != "" && !strings.EqualFold(quoted, currency) {
		return decimal.Zero, fmt.Errorf("%w: %s is quoted in %s, not %s", domain.ErrPriceUnavailable, symbol, quoted, currency)
	}
	return closePrice, nil
}

func (y *Yahoo) now() time.Time {
	if y.Now == nil {
		return time.Now()
	}
	return y.Now()
}

func chartLastClose(symbol string, start, end time.Time) (decimal.Decimal, string, error) {
	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	last := decimal.Zero
	for iter.Next() {
		if bar := iter.Bar(); bar != nil && bar.Close.IsPositive() {
			last = bar.Close
		}
	}
	if err := iter.Err(); err != nil {
		return decimal.Zero, "", err
	}

	return last, iter.Meta().Currency, nil
}
