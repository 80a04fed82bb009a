package valuation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/allocator"
)

// CalculateFund values the fund basket of a portfolio at current prices
// Logic:
//  1. Portfolio needs an invested amount and at least one holding
//  2. Split the invested amount across holdings by weight and convert to units
//     at each holding's reference price
//  3. value = sum(units * current price); any missing price -> unavailable
//  4. Upsert round2(value)
func (e *Engine) CalculateFund(ctx context.Context, req FundRequest) (*Outcome, error) {
	key := req.Key()

	portfolio, err := e.PortfolioRepo.GetByID(ctx, req.PortfolioID)
	if err != nil {
		return nil, err
	}

	if portfolio.InvestedAmount == nil {
		return unavailable(key, "no invested amount recorded"), nil
	}

	holdings, err := e.FundHoldingRepo.ListByPortfolio(ctx, portfolio.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fund holdings: %w", err)
	}
	if len(holdings) == 0 {
		return unavailable(key, "portfolio has no fund holdings"), nil
	}

	allocations, err := allocator.AllocateByWeight(*portfolio.InvestedAmount, holdings)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate portfolio capital: %w", err)
	}

	breakdown := &FundBreakdown{
		InvestedAmount: *portfolio.InvestedAmount,
		Currency:       portfolio.Currency,
		TotalWeight:    allocator.TotalWeight(holdings),
		Lines:          make([]FundLine, 0, len(allocations)),
		Value:          decimal.Zero,
	}

	for _, a := range allocations {
		price, err := e.FundPrices.CurrentPrice(ctx, a.Holding.Symbol, portfolio.Currency)
		if err != nil {
			return unavailable(key, fmt.Sprintf("price unavailable for %s: %v", a.Holding.Symbol, err)), nil
		}

		value := a.Units.Mul(price)
		breakdown.Lines = append(breakdown.Lines, FundLine{
			Symbol:    a.Holding.Symbol,
			Allocated: a.Amount,
			Units:     a.Units,
			Price:     price,
			Value:     value,
		})
		breakdown.Value = breakdown.Value.Add(value)
	}
	breakdown.Value = breakdown.Value.Round(2)

	snap, err := e.Snapshots.Store(ctx, key, breakdown.Value, portfolio.Currency, nil)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Key:      key,
		Status:   StatusComputed,
		Snapshot: snap,
		Fund:     breakdown,
	}, nil
}
