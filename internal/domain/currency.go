package domain

import (
	"strings"

	"github.com/Rhymond/go-money"
)

// NormalizeCurrency upper-cases and trims a currency code
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCurrency checks the code against the ISO 4217 table shipped with go-money
func ValidateCurrency(code string) error {
	if code == "" {
		return invalid("currency cannot be empty")
	}
	if money.GetCurrency(code) == nil {
		return invalid("unknown currency code %q", code)
	}
	return nil
}

// NormalizeSymbol upper-cases and trims an asset symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
