package payment

import (
	"github.com/shopspring/decimal"

	"github.com/kharcha-erp/kharcha/internal/money"
)

var hundred = decimal.NewFromInt(100)

// SetSplit updates one milestone percentage and rebalances the last entry to
// 100 minus the sum of all others, so the plan stays at exactly 100 after
// every edit. The last entry is effectively read-only for the user. The input
// slice is not mutated.
func SetSplit(splits []PaymentSplit, index int, value decimal.Decimal) []PaymentSplit {
	out := append([]PaymentSplit(nil), splits...)
	if index < 0 || index >= len(out) {
		return out
	}
	out[index].Percentage = value
	if len(out) < 2 {
		return out
	}
	var others decimal.Decimal
	for i := 0; i < len(out)-1; i++ {
		others = others.Add(out[i].Percentage)
	}
	out[len(out)-1].Percentage = hundred.Sub(others)
	return out
}

// ValidateSumTo100 reports whether the rounded percentage sum renders as the
// exact string "100.00". Plan submission gates on this same check.
func ValidateSumTo100(splits []PaymentSplit) bool {
	var sum decimal.Decimal
	for _, s := range splits {
		sum = sum.Add(s.Percentage)
	}
	return sum.Round(2).StringFixed(2) == "100.00"
}

// BuildInstallments expands milestone splits into schedule lines against a
// total base and its GST amount. Each line takes its percentage share rounded
// to the currency step; the final line carries the rounding remainder so the
// schedule sums back to the original amounts.
func BuildInstallments(splits []PaymentSplit, totalBase, gstAmount decimal.Decimal) ([]PaymentInstallment, error) {
	if !ValidateSumTo100(splits) {
		return nil, ErrInconsistentSplit
	}
	installments := make([]PaymentInstallment, 0, len(splits))
	var baseUsed, gstUsed decimal.Decimal
	for i, s := range splits {
		line := PaymentInstallment{Name: s.Name, Percentage: s.Percentage}
		if i == len(splits)-1 {
			line.BaseAmount = totalBase.Sub(baseUsed)
			line.GSTAmount = gstAmount.Sub(gstUsed)
		} else {
			line.BaseAmount = money.Percent(totalBase, s.Percentage)
			line.GSTAmount = money.Percent(gstAmount, s.Percentage)
			baseUsed = baseUsed.Add(line.BaseAmount)
			gstUsed = gstUsed.Add(line.GSTAmount)
		}
		line.TotalAmount = line.BaseAmount.Add(line.GSTAmount)
		installments = append(installments, line)
	}
	return installments, nil
}
