package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmountPermissive(t *testing.T) {
	cases := map[string]string{
		"1200":      "1200",
		" 1,200.50 ": "1200.5",
		"₹500":      "500",
		"abc":       "0",
		"":          "0",
		"12.3.4":    "0",
	}
	for raw, want := range cases {
		require.True(t, ParseAmount(raw).Equal(decimal.RequireFromString(want)), "input %q", raw)
	}
}

func TestPercentAndRatio(t *testing.T) {
	base := decimal.NewFromInt(1000)
	require.Equal(t, "90", Percent(base, decimal.NewFromInt(9)).String())
	require.Equal(t, "50", Ratio(decimal.NewFromInt(500), base).String())
	require.True(t, Ratio(decimal.NewFromInt(500), decimal.Zero).IsZero())
}

func TestRate(t *testing.T) {
	require.Equal(t, "180", Rate(decimal.NewFromInt(1000), decimal.RequireFromString("0.18")).String())
}
