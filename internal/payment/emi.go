package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kharcha-erp/kharcha/internal/money"
)

// ComputeEMI divides a total into equal monthly installments. Each line is
// rounded to the currency step and the final installment carries the rounding
// remainder, so the schedule always sums exactly to the original base and GST
// amounts.
func ComputeEMI(totalBase, gstAmount decimal.Decimal, months int) ([]PaymentInstallment, error) {
	if months <= 0 {
		return nil, ErrInvalidTerm
	}
	n := decimal.NewFromInt(int64(months))
	pct := hundred.Div(n).Round(2)
	base := money.Round2(totalBase.Div(n))
	gst := money.Round2(gstAmount.Div(n))

	installments := make([]PaymentInstallment, 0, months)
	var pctUsed, baseUsed, gstUsed decimal.Decimal
	for i := 1; i <= months; i++ {
		line := PaymentInstallment{
			Name:       fmt.Sprintf("EMI %d", i),
			Percentage: pct,
			BaseAmount: base,
			GSTAmount:  gst,
		}
		if i == months {
			line.Percentage = hundred.Sub(pctUsed)
			line.BaseAmount = totalBase.Sub(baseUsed)
			line.GSTAmount = gstAmount.Sub(gstUsed)
		} else {
			pctUsed = pctUsed.Add(pct)
			baseUsed = baseUsed.Add(base)
			gstUsed = gstUsed.Add(gst)
		}
		line.TotalAmount = line.BaseAmount.Add(line.GSTAmount)
		installments = append(installments, line)
	}
	return installments, nil
}
