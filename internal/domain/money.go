package domain

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits balances are kept with.
const MoneyScale = 2

// ValidateAmount checks that amount is strictly positive and has no more than
// two fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidArgument("amount must be positive")
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return InvalidArgument("amount must have at most 2 decimal places")
	}
	return nil
}
