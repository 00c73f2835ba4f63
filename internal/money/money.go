// Package money centralizes decimal arithmetic for monetary amounts.
// All amounts in the system carry two fractional digits; sums are computed
// exactly with shopspring/decimal and rounded once at the end.
package money

import "github.com/shopspring/decimal"

// Round2 rounds an amount to two fractional digits (half up).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Sum adds amounts exactly and rounds the result to two fractional digits.
func Sum(montos ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, m := range montos {
		total = total.Add(m)
	}
	return Round2(total)
}

// Equal reports exact equality after rounding both sides to two digits.
func Equal(a, b decimal.Decimal) bool {
	return Round2(a).Equal(Round2(b))
}
