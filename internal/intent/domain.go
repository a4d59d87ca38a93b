package intent

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase intent lifecycle statuses.
type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusPOCreated       Status = "po_created"
	StatusRejected        Status = "rejected"
	StatusCompleted       Status = "completed"
)

// RequestedItem is one line of a purchase intent.
type RequestedItem struct {
	SNo             int             `json:"sno"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Quantity        decimal.Decimal `json:"quantity"`
	EstPricePerUnit decimal.Decimal `json:"estPricePerUnit"`
	EstTotal        decimal.Decimal `json:"estTotal"`
}

// HistoryEntry is one append-only action record on an intent.
type HistoryEntry struct {
	By     string    `json:"by"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// PurchaseIntent is a staff-raised request to spend against a budget
// component. Frozen once an order exists, except the history log.
type PurchaseIntent struct {
	ID                      uuid.UUID       `json:"id"`
	DeptID                  string          `json:"deptId"`
	FiscalYear              string          `json:"fiscalYear"`
	CreatedBy               string          `json:"createdBy"`
	Title                   string          `json:"title"`
	Description             string          `json:"description"`
	RequestedItems          []RequestedItem `json:"requestedItems"`
	EstimatedTotal          decimal.Decimal `json:"estimatedTotal"`
	TotalEstimate           decimal.Decimal `json:"totalEstimate,omitempty"` // legacy field kept for old records
	SelectedBudgetComponent string          `json:"selectedBudgetComponent"`
	Status                  Status          `json:"status"`
	History                 []HistoryEntry  `json:"history"`
}

// ValidationError reports the first offending input with enough context to
// highlight it. ItemIndex is 1-based; zero means a header-level field.
type ValidationError struct {
	Field     string
	ItemIndex int
	Message   string
}

func (e *ValidationError) Error() string {
	if e.ItemIndex > 0 {
		return fmt.Sprintf("intent: item %d: %s", e.ItemIndex, e.Message)
	}
	return fmt.Sprintf("intent: %s", e.Message)
}

// OverrunDecision is the result of the soft budget gate. The caller resolves
// it; the core never blocks or caps the requested amount on its own.
type OverrunDecision struct {
	WithinBudget         bool            `json:"withinBudget"`
	RequiresConfirmation bool            `json:"requiresConfirmation"`
	EstimatedTotal       decimal.Decimal `json:"estimatedTotal"`
	RemainingBudget      decimal.Decimal `json:"remainingBudget"`
}

// OverrunNotConfirmedError aborts submission when the gate fired and the
// requester has not confirmed proceeding over budget.
type OverrunNotConfirmedError struct {
	Decision OverrunDecision
}

func (e *OverrunNotConfirmedError) Error() string {
	return fmt.Sprintf("intent: estimated total %s exceeds remaining budget %s, confirmation required",
		e.Decision.EstimatedTotal, e.Decision.RemainingBudget)
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("intent: not found")
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("intent: invalid state transition")
	// ErrFrozen occurs when editing an intent that already has an order.
	ErrFrozen = errors.New("intent: frozen after order creation")
)
