package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountBalance represents a recorded balance of a bank account.
// The most recent row by CreatedAt is the account's current balance.
type BankAccountBalance struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Balance   decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the balance adheres to domain rules
func (b *BankAccountBalance) Validate() error {
	if b.AccountID == uuid.Nil {
		return invalid("balance must belong to a bank account")
	}
	return ValidateCurrency(b.Currency)
}

// CostBasis is the originally invested amount against which gain or loss is measured
type CostBasis struct {
	InvestedAmount   decimal.Decimal
	InvestedCurrency string
}

// CryptoBalance represents the quantity of one symbol held on an exchange
type CryptoBalance struct {
	ID         uuid.UUID
	ExchangeID uuid.UUID
	Symbol     string
	Quantity   decimal.Decimal
	CostBasis  *CostBasis // nil when the invested amount was never recorded
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate ensures the crypto balance adheres to domain rules
func (b *CryptoBalance) Validate() error {
	if b.ExchangeID == uuid.Nil {
		return invalid("crypto balance must belong to an exchange")
	}
	if b.Symbol == "" {
		return invalid("crypto symbol cannot be empty")
	}
	if b.Quantity.IsNegative() {
		return invalid("crypto quantity cannot be negative")
	}
	if b.CostBasis != nil {
		if b.CostBasis.InvestedAmount.IsNegative() {
			return invalid("invested amount cannot be negative")
		}
		if err := ValidateCurrency(b.CostBasis.InvestedCurrency); err != nil {
			return err
		}
	}
	return nil
}

// FundHolding is one weighted fund of a roboadvisor basket.
// Weight is the fraction of the invested capital allocated to the fund and
// ReferencePrice the unit price at which that capital bought in.
type FundHolding struct {
	ID             uuid.UUID
	PortfolioID    uuid.UUID
	Symbol         string
	Weight         decimal.Decimal
	ReferencePrice decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate ensures the holding adheres to domain rules.
// The basket-wide weight sum is not checked.
func (h *FundHolding) Validate() error {
	if h.PortfolioID == uuid.Nil {
		return invalid("fund holding must belong to a portfolio")
	}
	if h.Symbol == "" {
		return invalid("fund symbol cannot be empty")
	}
	if !h.Weight.IsPositive() || h.Weight.GreaterThan(decimal.NewFromInt(1)) {
		return invalid("fund weight must be in (0, 1]")
	}
	if !h.ReferencePrice.IsPositive() {
		return invalid("fund reference price must be positive")
	}
	return nil
}
