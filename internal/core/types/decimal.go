// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a EUR amount with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity is an asset amount. Crypto assets carry up to 18 fractional
// digits, so it shares the arbitrary-precision representation of Money.
type Quantity = decimal.Decimal

// Rate is a tax rate expressed as a fraction (0.19 for 19%).
type Rate = decimal.Decimal

// MoneyScale is the number of fractional digits kept at report boundaries.
const MoneyScale int32 = 2

var (
	// BalanceTolerance is the maximum |Σdebit − Σcredit| accepted on a journal entry.
	BalanceTolerance = decimal.RequireFromString("0.001")

	// ReportTolerance is the maximum difference accepted by report balance checks.
	ReportTolerance = decimal.RequireFromString("0.01")

	hundred = decimal.NewFromInt(100)
)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to cents. Internal accumulation never calls this.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// Percent converts a fractional rate into percentage points.
func Percent(r Rate) decimal.Decimal {
	return r.Mul(hundred)
}

// Min returns the smaller of two decimals.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of two decimals.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// WithinTolerance reports whether |a − b| ≤ tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}
