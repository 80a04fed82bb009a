package valuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// CalculateCrypto computes the tax-adjusted value of one symbol held on an exchange
// Logic:
//  1. Balance must carry a cost basis (missing -> unavailable)
//  2. Price in the cost-basis currency (provider error -> unavailable, nothing written)
//  3. current = quantity * price, gain = current - invested
//  4. Tax only applies to a positive gain: afterTax = current - gain * taxRate
//  5. Append round2(afterTax) as a new snapshot
func (e *Engine) CalculateCrypto(ctx context.Context, req CryptoRequest) (*Outcome, error) {
	key := req.Key()

	exchange, err := e.ExchangeRepo.GetByID(ctx, req.ExchangeID)
	if err != nil {
		return nil, err
	}

	balance, err := e.CryptoBalanceRepo.Get(ctx, exchange.ID, key.Symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return unavailable(key, "no balance recorded for "+key.Symbol), nil
		}
		return nil, fmt.Errorf("failed to get crypto balance: %w", err)
	}

	if balance.CostBasis == nil || balance.CostBasis.InvestedCurrency == "" {
		return unavailable(key, "missing cost basis"), nil
	}
	basis := balance.CostBasis

	price, err := e.CryptoPrices.CurrentPrice(ctx, key.Symbol, basis.InvestedCurrency)
	if err != nil {
		return unavailable(key, fmt.Sprintf("price unavailable: %v", err)), nil
	}

	breakdown := TaxAdjust(balance.Quantity, price, basis.InvestedAmount, e.CryptoTaxRate)
	breakdown.Currency = basis.InvestedCurrency

	snap, err := e.Snapshots.Store(ctx, key, breakdown.AfterTax.Round(2), basis.InvestedCurrency, nil)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Key:      key,
		Status:   StatusComputed,
		Snapshot: snap,
		Crypto:   breakdown,
	}, nil
}

// TaxAdjust values quantity units at price and deducts taxRate of the gain over invested.
// Losses are not taxed. Values are returned unrounded.
func TaxAdjust(quantity, price, invested, taxRate decimal.Decimal) *CryptoBreakdown {
	current := quantity.Mul(price)
	gain := current.Sub(invested)

	tax := decimal.Zero
	if gain.IsPositive() {
		tax = gain.Mul(taxRate)
	}

	return &CryptoBreakdown{
		Quantity:       quantity,
		Price:          price,
		CurrentValue:   current,
		InvestedAmount: invested,
		Gain:           gain,
		TaxRate:        taxRate,
		Tax:            tax,
		AfterTax:       current.Sub(tax),
	}
}
