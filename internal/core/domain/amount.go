package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits balances are stored with.
const AmountScale = 4

var (
	ErrAmountSyntax      = errors.New("amount is not a decimal number")
	ErrAmountNotPositive = errors.New("amount must be positive")
	ErrAmountPrecision   = errors.New("amount has too many fractional digits")
)

// ParseAmount parses a user-supplied amount. It must be a positive decimal
// with at most AmountScale fractional digits.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, ErrAmountSyntax
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, ErrAmountSyntax
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return decimal.Zero, ErrAmountPrecision
	}
	return amount, nil
}
