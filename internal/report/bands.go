// Package report derives utilization figures, health bands, and rollups from
// the budget ledger. Everything here is recomputed on read; only the Redis
// cache holds materialised copies, keyed by a global version.
package report

import "github.com/shopspring/decimal"

// Band classifies a utilization rate for display.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

var (
	mediumThreshold = decimal.NewFromInt(60)
	highThreshold   = decimal.NewFromInt(85)
	redFlagShare    = decimal.RequireFromString("0.10")
)

// BandFor maps a utilization percentage to its band. Below 60 is low, 60 up
// to but excluding 85 is medium, 85 and above is high.
func BandFor(rate decimal.Decimal) Band {
	switch {
	case rate.LessThan(mediumThreshold):
		return BandLow
	case rate.LessThan(highThreshold):
		return BandMedium
	default:
		return BandHigh
	}
}

// RedFlag reports whether remaining budget has dropped below 10% of the
// allocation. It fires independently of the rate band.
func RedFlag(remaining, allocated decimal.Decimal) bool {
	if !allocated.IsPositive() {
		return false
	}
	return remaining.LessThan(allocated.Mul(redFlagShare))
}
