package valuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// CalculateInterest projects the interest profit of a bank account
// Logic:
//  1. Latest balance of the account (none -> unavailable)
//  2. Rate period active today; no active period means a zero rate
//  3. annual = round2(balance * rate / 100), monthly = round2(balance * rate / 100 / 12)
//  4. Upsert the snapshot with the monthly profit as value and the annual one alongside
func (e *Engine) CalculateInterest(ctx context.Context, req InterestRequest) (*Outcome, error) {
	key := req.Key()

	account, err := e.BankAccountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	balance, err := e.BalanceRepo.GetLatest(ctx, account.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return unavailable(key, "no balance recorded"), nil
		}
		return nil, fmt.Errorf("failed to get latest balance: %w", err)
	}

	today := domain.Day(e.now())
	periods, err := e.RatePeriodRepo.ListActive(ctx, account.ID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rate periods: %w", err)
	}

	breakdown := &InterestBreakdown{
		Balance:  balance.Balance,
		Currency: balance.Currency,
		Rate:     decimal.Zero,
	}
	if active := domain.ActivePeriod(periods, today); active != nil {
		breakdown.Rate = active.Rate
		id := active.ID
		breakdown.RatePeriodID = &id
	}

	yearly := balance.Balance.Mul(breakdown.Rate).Div(hundred)
	breakdown.Annual = yearly.Round(2)
	breakdown.Monthly = yearly.Div(twelve).Round(2)

	annual := breakdown.Annual
	snap, err := e.Snapshots.Store(ctx, key, breakdown.Monthly, balance.Currency, &annual)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Key:      key,
		Status:   StatusComputed,
		Snapshot: snap,
		Interest: breakdown,
	}, nil
}
