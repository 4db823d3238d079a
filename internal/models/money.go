package models

import (
	"github.com/shopspring/decimal"
)

// All money values are kept to two decimal places. Rounding is half-up
// (decimal.Round rounds half away from zero, and amounts are never negative),
// applied at every write and every externally observable read.

// Epsilon is the settlement tolerance: a due amount at or below it is
// treated as fully paid.
var Epsilon = decimal.NewFromFloat(0.01)

// Round2 rounds a money value to two decimal places, half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FloorZero clamps a money value at zero.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
