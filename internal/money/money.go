// Package money centralises fixed-point currency arithmetic. All amounts in
// the calculation core are shopspring decimals rounded to two places; floats
// only appear at the transport boundary.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts free-form user input into a decimal amount. Bad input
// becomes zero rather than an error; validation of non-positive values is the
// caller's responsibility.
func ParseAmount(raw string) decimal.Decimal {
	clean := strings.TrimSpace(raw)
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimPrefix(clean, "₹")
	if clean == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// Round2 rounds to two decimal places, the currency step used everywhere.
func Round2(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// Percent returns pct percent of base, rounded to the currency step.
func Percent(base decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(pct).Div(hundred))
}

// Rate applies a fractional rate (e.g. 0.18) to base.
func Rate(base decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(rate))
}

// Ratio returns part/whole as a percentage; zero whole yields zero.
func Ratio(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return Round2(part.Div(whole).Mul(hundred))
}
