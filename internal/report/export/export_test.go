package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kharcha-erp/kharcha/internal/budget"
	"github.com/kharcha-erp/kharcha/internal/report"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWriteUtilizationCSV(t *testing.T) {
	rep := report.UtilizationReport{
		DeptID:     "PHYSICS",
		FiscalYear: "2025-26",
		Totals: budget.Totals{
			Allocated:       dec("150000"),
			Spent:           dec("90000"),
			Remaining:       dec("60000"),
			UtilizationRate: dec("60"),
		},
		Band: report.BandMedium,
		Components: []report.ComponentReport{
			{
				Key:             "lab_equipment",
				Bucket:          budget.BucketDepartment,
				Allocated:       dec("100000"),
				Spent:           dec("90000"),
				Remaining:       dec("10000"),
				UtilizationRate: dec("90"),
				Band:            report.BandHigh,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteUtilizationCSV(&buf, rep))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Component")
	// Indian digit grouping: one lakh renders as 1,00,000.
	require.Contains(t, lines[1], `"1,00,000.00"`)
	require.Contains(t, lines[1], "high")
	require.Contains(t, lines[2], "TOTAL")
	require.Contains(t, lines[2], `"1,50,000.00"`)
}

func TestWriteOverviewCSV(t *testing.T) {
	overview := report.Overview{
		FiscalYear: "2025-26",
		Totals: budget.Totals{
			Allocated:       dec("500000"),
			Spent:           dec("300000"),
			Remaining:       dec("200000"),
			UtilizationRate: dec("60"),
		},
		Band: report.BandMedium,
		Entries: []report.OverviewEntry{
			{DeptID: "PHYSICS", Allocated: dec("150000"), Spent: dec("90000"), Remaining: dec("60000"), UtilizationRate: dec("60"), Band: report.BandMedium},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOverviewCSV(&buf, overview))

	out := buf.String()
	require.Contains(t, out, "PHYSICS")
	require.Contains(t, out, `"5,00,000.00"`)
	require.Contains(t, out, "TOTAL")
}
