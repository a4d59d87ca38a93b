// Package export serialises utilization reports for download. Amounts are
// rendered with Indian digit grouping, matching the printed budget documents
// the figures are reconciled against.
package export

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/kharcha-erp/kharcha/internal/report"
)

var printer = message.NewPrinter(language.MustParse("en-IN"))

func formatAmount(value decimal.Decimal) string {
	return printer.Sprint(number.Decimal(value.InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// WriteUtilizationCSV emits one department's component-level utilization.
func WriteUtilizationCSV(w io.Writer, rep report.UtilizationReport) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Component", "Bucket", "Allocated", "Spent", "Remaining", "Utilization %", "Band"}); err != nil {
		return err
	}
	for _, c := range rep.Components {
		if err := writer.Write([]string{
			c.Key,
			string(c.Bucket),
			formatAmount(c.Allocated),
			formatAmount(c.Spent),
			formatAmount(c.Remaining),
			c.UtilizationRate.StringFixed(2),
			string(c.Band),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{
		"TOTAL",
		"",
		formatAmount(rep.Totals.Allocated),
		formatAmount(rep.Totals.Spent),
		formatAmount(rep.Totals.Remaining),
		rep.Totals.UtilizationRate.StringFixed(2),
		string(rep.Band),
	}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteOverviewCSV emits the cross-department rollup.
func WriteOverviewCSV(w io.Writer, overview report.Overview) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Department", "Allocated", "Spent", "Remaining", "Utilization %", "Band"}); err != nil {
		return err
	}
	for _, e := range overview.Entries {
		if err := writer.Write([]string{
			e.DeptID,
			formatAmount(e.Allocated),
			formatAmount(e.Spent),
			formatAmount(e.Remaining),
			e.UtilizationRate.StringFixed(2),
			string(e.Band),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{
		"TOTAL",
		formatAmount(overview.Totals.Allocated),
		formatAmount(overview.Totals.Spent),
		formatAmount(overview.Totals.Remaining),
		overview.Totals.UtilizationRate.StringFixed(2),
		string(overview.Band),
	}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
