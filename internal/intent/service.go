package intent

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kharcha-erp/kharcha/internal/budget"
	"github.com/kharcha-erp/kharcha/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetIntent(ctx context.Context, id uuid.UUID) (PurchaseIntent, error)
	ListIntents(ctx context.Context, deptID string, status Status, limit, offset int) ([]PurchaseIntent, int, error)
}

// BudgetPort supplies remaining-budget figures at submission time.
type BudgetPort interface {
	Document(ctx context.Context, deptID, fiscalYear string) (budget.BudgetDocument, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts workflow transitions.
type MetricsPort interface {
	IntentTransition(action string)
}

// Service advances purchase intents through their lifecycle.
type Service struct {
	repo    RepositoryPort
	budgets BudgetPort
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs the intent workflow service.
func NewService(repo RepositoryPort, budgets BudgetPort, audit AuditPort) *Service {
	return &Service{repo: repo, budgets: budgets, audit: audit, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// WithMetrics attaches transition counters.
func (s *Service) WithMetrics(m MetricsPort) {
	s.metrics = m
}

// ItemInput is one requested line as entered by the requester.
type ItemInput struct {
	Description     string
	Category        string
	Quantity        decimal.Decimal
	EstPricePerUnit decimal.Decimal
}

// SubmitInput carries everything needed to raise an intent.
type SubmitInput struct {
	DeptID                  string
	FiscalYear              string
	CreatedBy               string
	Title                   string
	Description             string
	SelectedBudgetComponent string
	Items                   []ItemInput
	// OverrunConfirmed records that the requester explicitly approved
	// spending past the remaining budget. Declining aborts submission.
	OverrunConfirmed bool
}

// ValidateIntent checks the form-level rules. The first failing item is
// reported with its 1-based position; nothing is silently corrected.
func ValidateIntent(input SubmitInput) *ValidationError {
	if strings.TrimSpace(input.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(input.SelectedBudgetComponent) == "" {
		return &ValidationError{Field: "selectedBudgetComponent", Message: "budget component is required"}
	}
	if len(input.Items) == 0 {
		return &ValidationError{Field: "requestedItems", Message: "at least one item is required"}
	}
	for i, item := range input.Items {
		pos := i + 1
		if strings.TrimSpace(item.Description) == "" {
			return &ValidationError{Field: "description", ItemIndex: pos, Message: "description is required"}
		}
		if strings.TrimSpace(item.Category) == "" {
			return &ValidationError{Field: "category", ItemIndex: pos, Message: "category is required"}
		}
		if !item.Quantity.IsPositive() {
			return &ValidationError{Field: "quantity", ItemIndex: pos, Message: "quantity must be greater than zero"}
		}
		if !item.EstPricePerUnit.IsPositive() {
			return &ValidationError{Field: "estPricePerUnit", ItemIndex: pos, Message: "unit price must be greater than zero"}
		}
	}
	return nil
}

// CheckBudgetOverrun evaluates the soft gate. Exceeding the remaining budget
// requires explicit confirmation; it never hard-blocks or caps the request.
func CheckBudgetOverrun(estimatedTotal, remainingBudget decimal.Decimal) OverrunDecision {
	if estimatedTotal.GreaterThan(remainingBudget) {
		return OverrunDecision{
			RequiresConfirmation: true,
			EstimatedTotal:       estimatedTotal,
			RemainingBudget:      remainingBudget,
		}
	}
	return OverrunDecision{
		WithinBudget:    true,
		EstimatedTotal:  estimatedTotal,
		RemainingBudget: remainingBudget,
	}
}

// Submit validates, applies the overrun gate, and persists a new intent with
// status submitted. The estimated total is computed from items here, once;
// it is never recomputed later.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (PurchaseIntent, error) {
	if verr := ValidateIntent(input); verr != nil {
		return PurchaseIntent{}, verr
	}

	doc, err := s.budgets.Document(ctx, input.DeptID, input.FiscalYear)
	if err != nil {
		// budget.ErrNoBudget propagates: no document means no intents at all.
		return PurchaseIntent{}, err
	}

	items := make([]RequestedItem, 0, len(input.Items))
	var estimatedTotal decimal.Decimal
	for i, item := range input.Items {
		estTotal := item.Quantity.Mul(item.EstPricePerUnit)
		items = append(items, RequestedItem{
			SNo:             i + 1,
			Description:     item.Description,
			Category:        item.Category,
			Quantity:        item.Quantity,
			EstPricePerUnit: item.EstPricePerUnit,
			EstTotal:        estTotal,
		})
		estimatedTotal = estimatedTotal.Add(estTotal)
	}

	remaining := budget.ComponentRemaining(doc, input.SelectedBudgetComponent)
	decision := CheckBudgetOverrun(estimatedTotal, remaining)
	if decision.RequiresConfirmation && !input.OverrunConfirmed {
		return PurchaseIntent{}, &OverrunNotConfirmedError{Decision: decision}
	}

	now := s.now()
	created := PurchaseIntent{
		ID:                      uuid.New(),
		DeptID:                  input.DeptID,
		FiscalYear:              input.FiscalYear,
		CreatedBy:               input.CreatedBy,
		Title:                   input.Title,
		Description:             input.Description,
		RequestedItems:          items,
		EstimatedTotal:          estimatedTotal,
		SelectedBudgetComponent: input.SelectedBudgetComponent,
		Status:                  StatusSubmitted,
		History: []HistoryEntry{
			{By: input.CreatedBy, Action: "created", At: now},
		},
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.CreateIntent(ctx, created)
	})
	if err != nil {
		return PurchaseIntent{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "INTENT_CREATE", created.ID, map[string]any{"title": created.Title, "estimated_total": created.EstimatedTotal.String()})
	if s.metrics != nil {
		s.metrics.IntentTransition("created")
	}
	return created, nil
}

// UpdateInput carries the editable fields of an existing intent.
type UpdateInput struct {
	ID                      uuid.UUID
	Actor                   string
	Title                   string
	Description             string
	SelectedBudgetComponent string
	Items                   []ItemInput
	OverrunConfirmed        bool
}

// Update edits an intent that has not reached an order yet. Once an order
// exists the record is frozen; only the history log stays append-only.
func (s *Service) Update(ctx context.Context, input UpdateInput) (PurchaseIntent, error) {
	current, err := s.repo.GetIntent(ctx, input.ID)
	if err != nil {
		return PurchaseIntent{}, err
	}
	switch current.Status {
	case StatusPOCreated, StatusCompleted:
		return PurchaseIntent{}, ErrFrozen
	case StatusRejected:
		return PurchaseIntent{}, ErrInvalidState
	}

	submit := SubmitInput{
		DeptID:                  current.DeptID,
		FiscalYear:              current.FiscalYear,
		CreatedBy:               current.CreatedBy,
		Title:                   input.Title,
		Description:             input.Description,
		SelectedBudgetComponent: input.SelectedBudgetComponent,
		Items:                   input.Items,
	}
	if verr := ValidateIntent(submit); verr != nil {
		return PurchaseIntent{}, verr
	}

	doc, err := s.budgets.Document(ctx, current.DeptID, current.FiscalYear)
	if err != nil {
		return PurchaseIntent{}, err
	}

	items := make([]RequestedItem, 0, len(input.Items))
	var estimatedTotal decimal.Decimal
	for i, item := range input.Items {
		estTotal := item.Quantity.Mul(item.EstPricePerUnit)
		items = append(items, RequestedItem{
			SNo:             i + 1,
			Description:     item.Description,
			Category:        item.Category,
			Quantity:        item.Quantity,
			EstPricePerUnit: item.EstPricePerUnit,
			EstTotal:        estTotal,
		})
		estimatedTotal = estimatedTotal.Add(estTotal)
	}

	remaining := budget.ComponentRemaining(doc, input.SelectedBudgetComponent)
	decision := CheckBudgetOverrun(estimatedTotal, remaining)
	if decision.RequiresConfirmation && !input.OverrunConfirmed {
		return PurchaseIntent{}, &OverrunNotConfirmedError{Decision: decision}
	}

	updated := current
	updated.Title = input.Title
	updated.Description = input.Description
	updated.SelectedBudgetComponent = input.SelectedBudgetComponent
	updated.RequestedItems = items
	updated.EstimatedTotal = estimatedTotal

	entry := HistoryEntry{By: input.Actor, Action: "updated", At: s.now()}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateIntent(ctx, updated); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, updated.ID, entry)
	})
	if err != nil {
		return PurchaseIntent{}, err
	}
	updated.History = append(updated.History, entry)
	s.recordAudit(ctx, input.Actor, "INTENT_UPDATE", updated.ID, map[string]any{"estimated_total": estimatedTotal.String()})
	if s.metrics != nil {
		s.metrics.IntentTransition("updated")
	}
	return updated, nil
}

// SendForApproval moves a submitted intent into the approval queue.
func (s *Service) SendForApproval(ctx context.Context, id uuid.UUID, actor string) error {
	return s.transition(ctx, id, actor, StatusSubmitted, StatusPendingApproval, "sent_for_approval")
}

// Approve marks a pending intent approved.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor string) error {
	return s.transition(ctx, id, actor, StatusPendingApproval, StatusApproved, "approved")
}

// Reject terminates a pending intent.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor string) error {
	return s.transition(ctx, id, actor, StatusPendingApproval, StatusRejected, "rejected")
}

// MarkOrdered stamps po_created when the order engine binds an order.
func (s *Service) MarkOrdered(ctx context.Context, id uuid.UUID, actor string) error {
	return s.transition(ctx, id, actor, StatusApproved, StatusPOCreated, "po_created")
}

// Complete closes the intent after its order is fulfilled.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor string) error {
	return s.transition(ctx, id, actor, StatusPOCreated, StatusCompleted, "completed")
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, actor string, from, to Status, action string) error {
	current, err := s.repo.GetIntent(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != from {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, id, HistoryEntry{By: actor, Action: action, At: s.now()})
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "INTENT_"+strings.ToUpper(action), id, nil)
	if s.metrics != nil {
		s.metrics.IntentTransition(action)
	}
	return nil
}

// Get returns one intent with its history.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (PurchaseIntent, error) {
	return s.repo.GetIntent(ctx, id)
}

// List pages intents for a department.
func (s *Service) List(ctx context.Context, deptID string, status Status, limit, offset int) ([]PurchaseIntent, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListIntents(ctx, deptID, status, limit, offset)
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "intent", EntityID: id.String(), Meta: meta})
}
