package shared

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// WorkScale is the working precision for intermediate amounts.
	WorkScale int32 = 4
	// MoneyScale is the persisted precision for debit and credit.
	MoneyScale int32 = 2
)

// Tolerance is the absolute difference still treated as balanced.
var Tolerance = decimal.RequireFromString("0.005")

// Money rounds an amount to the persisted scale.
func Money(v decimal.Decimal) decimal.Decimal {
	return v.Round(MoneyScale)
}

// Work rounds an amount to the working scale.
func Work(v decimal.Decimal) decimal.Decimal {
	return v.Round(WorkScale)
}

// Balanced reports whether two totals agree within Tolerance.
func Balanced(debit, credit decimal.Decimal) bool {
	return debit.Sub(credit).Abs().LessThanOrEqual(Tolerance)
}

// Side reports whether exactly one of debit or credit is positive and
// neither is negative.
func Side(debit, credit decimal.Decimal) bool {
	if debit.IsNegative() || credit.IsNegative() {
		return false
	}
	return debit.IsPositive() != credit.IsPositive()
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
