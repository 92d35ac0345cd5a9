// Package money holds the limits of stored monetary values. Amounts and
// balances are NUMERIC(19,4) columns.
package money

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/shared/apperr"
)

const (
	// Scale is the number of fractional digits a stored value keeps.
	Scale = 4
	// MaxIntegerDigits is the number of digits left of the decimal point.
	MaxIntegerDigits = 15
)

var limit = decimal.New(1, MaxIntegerDigits)

// Check reports a validation error naming field when d has more than Scale
// significant fractional digits or does not fit in MaxIntegerDigits.
// Trailing zeros do not count, so "1.50000" passes.
func Check(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(Scale)) {
		return apperr.Validationf("%s must have at most %d decimal places", field, Scale)
	}
	if !InRange(d) {
		return apperr.Validationf("%s must have at most %d integer digits", field, MaxIntegerDigits)
	}
	return nil
}

// InRange reports whether d fits the integer part of a stored value.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThan(limit)
}
