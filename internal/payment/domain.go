package payment

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PaymentSplit is one editable milestone share of a payment plan, expressed
// as a percentage of the total.
type PaymentSplit struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PaymentInstallment is a derived schedule line. Installments are computed on
// demand from the owning aggregate's plan, never persisted on their own.
type PaymentInstallment struct {
	Name        string          `json:"name"`
	Percentage  decimal.Decimal `json:"percentage"`
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	GSTAmount   decimal.Decimal `json:"gstAmount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

var (
	// ErrInconsistentSplit occurs when milestone percentages do not sum to
	// exactly 100.00. Submission is blocked rather than auto-corrected.
	ErrInconsistentSplit = errors.New("payment: split percentages must sum to 100.00")
	// ErrInvalidTerm occurs when an EMI schedule is requested for zero or
	// negative months.
	ErrInvalidTerm = errors.New("payment: installment count must be positive")
)
