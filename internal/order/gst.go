package order

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kharcha-erp/kharcha/internal/intent"
	"github.com/kharcha-erp/kharcha/internal/money"
	"github.com/kharcha-erp/kharcha/internal/vendor"
)

// Home jurisdiction of the institution. Vendors in the same state are billed
// CGST+SGST; everyone else gets a single IGST line.
const (
	HomeStateCode = "MH"
	HomeStateName = "Maharashtra"
)

// DefaultGSTRate is the combined 18% GST rate used in this domain.
var DefaultGSTRate = decimal.RequireFromString("0.18")

var (
	two       = decimal.NewFromInt(2)
	rateUnset = decimal.NewFromInt(-1)
)

// ResolveJurisdiction classifies a vendor against the home state. Records
// with a state code are compared structurally. Legacy vendors without one
// fall back to the historical substring match on the free-text address, so
// orders created before state codes existed stay reproducible.
func ResolveJurisdiction(v vendor.Vendor) Jurisdiction {
	if code := strings.TrimSpace(v.StateCode); code != "" {
		if strings.EqualFold(code, HomeStateCode) {
			return JurisdictionIntrastate
		}
		return JurisdictionInterstate
	}
	if strings.Contains(strings.ToLower(v.Address), strings.ToLower(HomeStateName)) {
		return JurisdictionIntrastate
	}
	return JurisdictionInterstate
}

// ComputeGST splits the combined rate across the jurisdiction's components.
// Intrastate orders carry equal CGST and SGST halves; interstate orders a
// single IGST line. TotalWithGST = finalPrice + gstAmount. A negative rate
// means "not set" and applies DefaultGSTRate; zero is a genuine exempt rate.
func ComputeGST(finalPrice decimal.Decimal, jurisdiction Jurisdiction, rate decimal.Decimal) GSTDetails {
	if rate.IsNegative() {
		rate = DefaultGSTRate
	}
	details := GSTDetails{Jurisdiction: jurisdiction}
	if jurisdiction == JurisdictionIntrastate {
		half := money.Rate(finalPrice, rate.Div(two))
		details.CGST = half
		details.SGST = half
		details.GSTAmount = half.Add(half)
	} else {
		igst := money.Rate(finalPrice, rate)
		details.IGST = igst
		details.GSTAmount = igst
	}
	details.TotalWithGST = finalPrice.Add(details.GSTAmount)
	return details
}

// IntentTotal resolves an intent's monetary estimate through the historical
// three-level fallback: the explicit estimated total, else the sum of item
// totals, else the legacy totalEstimate field.
func IntentTotal(in intent.PurchaseIntent) decimal.Decimal {
	if !in.EstimatedTotal.IsZero() {
		return in.EstimatedTotal
	}
	var sum decimal.Decimal
	for _, item := range in.RequestedItems {
		sum = sum.Add(item.EstTotal)
	}
	if !sum.IsZero() {
		return sum
	}
	return in.TotalEstimate
}
