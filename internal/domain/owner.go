package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccount represents a bank account that owns balances and interest rate periods
type BankAccount struct {
	ID        uuid.UUID
	Name      string
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the bank account adheres to domain rules
func (a *BankAccount) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid("bank account name cannot be empty")
	}
	return ValidateCurrency(a.Currency)
}

// CryptoExchange represents an exchange holding one balance per symbol
type CryptoExchange struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the crypto exchange adheres to domain rules
func (e *CryptoExchange) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return invalid("crypto exchange name cannot be empty")
	}
	return nil
}

// RoboadvisorPortfolio represents a managed basket of weighted funds.
// InvestedAmount is the capital allocated across the basket; nil until recorded.
type RoboadvisorPortfolio struct {
	ID             uuid.UUID
	Name           string
	Currency       string
	InvestedAmount *decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate ensures the portfolio adheres to domain rules
func (p *RoboadvisorPortfolio) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("portfolio name cannot be empty")
	}
	if err := ValidateCurrency(p.Currency); err != nil {
		return err
	}
	if p.InvestedAmount != nil && p.InvestedAmount.IsNegative() {
		return invalid("invested amount cannot be negative")
	}
	return nil
}
