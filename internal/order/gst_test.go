package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kharcha-erp/kharcha/internal/intent"
	"github.com/kharcha-erp/kharcha/internal/vendor"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeGSTIntrastate(t *testing.T) {
	details := ComputeGST(dec("1000"), JurisdictionIntrastate, DefaultGSTRate)
	require.Equal(t, JurisdictionIntrastate, details.Jurisdiction)
	require.True(t, details.CGST.Equal(dec("90")), "cgst: %s", details.CGST)
	require.True(t, details.SGST.Equal(dec("90")), "sgst: %s", details.SGST)
	require.True(t, details.IGST.IsZero())
	require.True(t, details.GSTAmount.Equal(dec("180")))
	require.True(t, details.TotalWithGST.Equal(dec("1180")))
}

func TestComputeGSTInterstate(t *testing.T) {
	details := ComputeGST(dec("1000"), JurisdictionInterstate, DefaultGSTRate)
	require.True(t, details.CGST.IsZero())
	require.True(t, details.SGST.IsZero())
	require.True(t, details.IGST.Equal(dec("180")))
	require.True(t, details.GSTAmount.Equal(dec("180")))
	require.True(t, details.TotalWithGST.Equal(dec("1180")))
}

func TestComputeGSTCustomRate(t *testing.T) {
	details := ComputeGST(dec("2000"), JurisdictionInterstate, dec("0.12"))
	require.True(t, details.IGST.Equal(dec("240")))
	require.True(t, details.TotalWithGST.Equal(dec("2240")))
}

func TestComputeGSTRateSentinels(t *testing.T) {
	defaulted := ComputeGST(dec("1000"), JurisdictionInterstate, rateUnset)
	require.True(t, defaulted.IGST.Equal(dec("180")))
	require.True(t, defaulted.TotalWithGST.Equal(dec("1180")))

	// Zero is an explicit exempt rate, not a request for the default.
	exempt := ComputeGST(dec("1000"), JurisdictionInterstate, decimal.Zero)
	require.True(t, exempt.GSTAmount.IsZero())
	require.True(t, exempt.TotalWithGST.Equal(dec("1000")))
}

func TestComputeGSTIntrastateSplitsEqually(t *testing.T) {
	// An odd amount still yields two identical halves at currency precision.
	details := ComputeGST(dec("333.33"), JurisdictionIntrastate, DefaultGSTRate)
	require.True(t, details.CGST.Equal(details.SGST))
	require.True(t, details.GSTAmount.Equal(details.CGST.Add(details.SGST)))
	require.True(t, details.TotalWithGST.Equal(dec("333.33").Add(details.GSTAmount)))
}

func TestResolveJurisdictionByStateCode(t *testing.T) {
	require.Equal(t, JurisdictionIntrastate, ResolveJurisdiction(vendor.Vendor{StateCode: "MH"}))
	require.Equal(t, JurisdictionIntrastate, ResolveJurisdiction(vendor.Vendor{StateCode: "mh"}))
	require.Equal(t, JurisdictionInterstate, ResolveJurisdiction(vendor.Vendor{StateCode: "KA"}))
}

func TestResolveJurisdictionStateCodeWinsOverAddress(t *testing.T) {
	// A structured state code beats whatever the free-text address says.
	v := vendor.Vendor{StateCode: "KA", Address: "2 Residency Road, Maharashtra Colony, Bengaluru"}
	require.Equal(t, JurisdictionInterstate, ResolveJurisdiction(v))
}

func TestResolveJurisdictionLegacyAddressFallback(t *testing.T) {
	require.Equal(t, JurisdictionIntrastate,
		ResolveJurisdiction(vendor.Vendor{Address: "14 MG Road, Pune, maharashtra"}))
	require.Equal(t, JurisdictionInterstate,
		ResolveJurisdiction(vendor.Vendor{Address: "5 Park Street, Kolkata"}))
	require.Equal(t, JurisdictionInterstate, ResolveJurisdiction(vendor.Vendor{}))
}

func TestIntentTotalFallbackChain(t *testing.T) {
	in := intent.PurchaseIntent{
		EstimatedTotal: dec("5000"),
		RequestedItems: []intent.RequestedItem{{EstTotal: dec("1200")}},
		TotalEstimate:  dec("900"),
	}
	require.True(t, IntentTotal(in).Equal(dec("5000")))

	in.EstimatedTotal = decimal.Zero
	require.True(t, IntentTotal(in).Equal(dec("1200")))

	in.RequestedItems = nil
	require.True(t, IntentTotal(in).Equal(dec("900")))

	in.TotalEstimate = decimal.Zero
	require.True(t, IntentTotal(in).IsZero())
}
