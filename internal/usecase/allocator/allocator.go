package allocator

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
)

// Allocation is the share of a basket's capital assigned to one fund holding
type Allocation struct {
	Holding *domain.FundHolding
	Amount  decimal.Decimal // capital allocated to the fund
	Units   decimal.Decimal // fund units bought with Amount at the holding's reference price
}

// AllocateByWeight splits the invested capital of a basket across its holdings
// Logic:
//  1. Sort holdings by Symbol so results are deterministic
//  2. Allocate investedAmount * weight to each holding (weights are NOT required to sum to 1)
//  3. Convert each allocation to units at the holding's reference price
//
// Amounts are kept at full precision; rounding is left to the valuation step.
func AllocateByWeight(investedAmount decimal.Decimal, holdings []*domain.FundHolding) ([]Allocation, error) {
	if investedAmount.IsNegative() {
		return nil, errors.New("invested amount cannot be negative")
	}

	if len(holdings) == 0 {
		return nil, errors.New("holdings list cannot be empty")
	}

	// Create a copy of holdings to avoid mutating the original slice
	sorted := make([]*domain.FundHolding, len(holdings))
	copy(sorted, holdings)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Symbol < sorted[j].Symbol
	})

	allocations := make([]Allocation, 0, len(sorted))
	for _, h := range sorted {
		if err := h.Validate(); err != nil {
			return nil, err
		}

		amount := investedAmount.Mul(h.Weight)
		allocations = append(allocations, Allocation{
			Holding: h,
			Amount:  amount,
			Units:   amount.Div(h.ReferencePrice),
		})
	}

	return allocations, nil
}

// TotalWeight sums the weights of a basket. Callers may report it; nothing enforces 1.0.
func TotalWeight(holdings []*domain.FundHolding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Weight)
	}
	return total
}
