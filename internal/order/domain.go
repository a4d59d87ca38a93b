package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kharcha-erp/kharcha/internal/intent"
	"github.com/kharcha-erp/kharcha/internal/vendor"
)

// Purchase order lifecycle statuses. pending_hr_confirmation is the initial
// state: HR/accounts downstream confirms fulfilment before completion.
type Status string

const (
	StatusPendingHRConfirmation Status = "pending_hr_confirmation"
	StatusCompleted             Status = "completed"
)

// Jurisdiction decides how the combined GST rate is split.
type Jurisdiction string

const (
	JurisdictionIntrastate Jurisdiction = "intrastate"
	JurisdictionInterstate Jurisdiction = "interstate"
)

// GSTDetails carries the tax breakdown attached to an order.
type GSTDetails struct {
	Jurisdiction Jurisdiction    `json:"jurisdiction"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
	GSTAmount    decimal.Decimal `json:"gstAmount"`
	TotalWithGST decimal.Decimal `json:"totalWithGST"`
}

// PurchaseOrder is the binding, vendor-attached commitment created from one
// approved intent. Items and vendor details are snapshots taken at creation;
// the record is immutable afterwards.
type PurchaseOrder struct {
	ID              uuid.UUID              `json:"id"`
	IntentID        uuid.UUID              `json:"intentId"`
	DeptID          string                 `json:"deptId"`
	FiscalYear      string                 `json:"fiscalYear"`
	BudgetComponent string                 `json:"budgetComponent"`
	VendorDetails   vendor.Vendor          `json:"vendorDetails"`
	Items           []intent.RequestedItem `json:"items"`
	EstimatedTotal  decimal.Decimal        `json:"estimatedTotal"`
	FinalPrice      decimal.Decimal        `json:"finalPrice"`
	GSTDetails      *GSTDetails            `json:"gstDetails"`
	FinalAmount     decimal.Decimal        `json:"finalAmount"`
	Savings         decimal.Decimal        `json:"savings"`
	Status          Status                 `json:"status"`
	CreatedBy       string                 `json:"createdBy"`
	CreatedAt       time.Time              `json:"createdAt"`
}

var (
	// ErrMissingVendor occurs when order creation has no vendor selected.
	ErrMissingVendor = errors.New("order: vendor required")
	// ErrOrderExists enforces at most one order per intent.
	ErrOrderExists = errors.New("order: intent already has an order")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("order: not found")
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("order: invalid state transition")
)
