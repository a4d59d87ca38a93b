package order

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kharcha-erp/kharcha/internal/budget"
	"github.com/kharcha-erp/kharcha/internal/intent"
	"github.com/kharcha-erp/kharcha/internal/shared"
	"github.com/kharcha-erp/kharcha/internal/vendor"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)
	GetOrderByIntent(ctx context.Context, intentID uuid.UUID) (PurchaseOrder, error)
	ListOrders(ctx context.Context, deptID string, status Status, limit, offset int) ([]PurchaseOrder, int, error)
}

// IntentPort exposes the intent workflow transitions the engine drives.
type IntentPort interface {
	Get(ctx context.Context, id uuid.UUID) (intent.PurchaseIntent, error)
	MarkOrdered(ctx context.Context, id uuid.UUID, actor string) error
	Complete(ctx context.Context, id uuid.UUID, actor string) error
}

// VendorPort resolves vendor records.
type VendorPort interface {
	Get(ctx context.Context, id int64) (vendor.Vendor, error)
}

// BudgetPort locates the ledger document the order spends against.
type BudgetPort interface {
	Document(ctx context.Context, deptID, fiscalYear string) (budget.BudgetDocument, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts created orders.
type MetricsPort interface {
	OrderCreated()
}

// Service binds approved intents to vendors and produces immutable orders.
type Service struct {
	repo    RepositoryPort
	intents IntentPort
	vendors VendorPort
	budgets BudgetPort
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the order engine.
func NewService(repo RepositoryPort, intents IntentPort, vendors VendorPort, budgets BudgetPort, audit AuditPort) *Service {
	return &Service{repo: repo, intents: intents, vendors: vendors, budgets: budgets, audit: audit, logger: slog.Default(), now: time.Now}
}

// WithLogger overrides the service logger.
func (s *Service) WithLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// WithMetrics attaches order counters.
func (s *Service) WithMetrics(m MetricsPort) {
	s.metrics = m
}

// CreateInput describes order creation.
type CreateInput struct {
	IntentID uuid.UUID
	VendorID int64
	// FinalPrice is the negotiated price; zero means the intent's estimate.
	FinalPrice decimal.Decimal
	IncludeGST bool
	// GSTRate overrides the default combined rate. Nil applies the default;
	// an explicit zero prices an exempt, untaxed supply.
	GSTRate *decimal.Decimal
	Actor   string
}

// Create snapshots an approved intent into a purchase order, computes tax
// and savings, and reports the spend into the budget ledger in the same
// transaction. At most one order can exist per intent; the storage unique
// constraint enforces it.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseOrder, error) {
	if input.VendorID == 0 {
		return PurchaseOrder{}, ErrMissingVendor
	}
	in, err := s.intents.Get(ctx, input.IntentID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if in.Status != intent.StatusApproved {
		return PurchaseOrder{}, ErrInvalidState
	}
	v, err := s.vendors.Get(ctx, input.VendorID)
	if err != nil {
		if errors.Is(err, vendor.ErrNotFound) {
			return PurchaseOrder{}, ErrMissingVendor
		}
		return PurchaseOrder{}, err
	}
	doc, err := s.budgets.Document(ctx, in.DeptID, in.FiscalYear)
	if err != nil {
		return PurchaseOrder{}, err
	}

	intentTotal := IntentTotal(in)
	finalPrice := input.FinalPrice
	if finalPrice.IsZero() {
		finalPrice = intentTotal
	}

	po := PurchaseOrder{
		ID:              uuid.New(),
		IntentID:        in.ID,
		DeptID:          in.DeptID,
		FiscalYear:      in.FiscalYear,
		BudgetComponent: in.SelectedBudgetComponent,
		VendorDetails:   v,
		Items:           append([]intent.RequestedItem(nil), in.RequestedItems...),
		EstimatedTotal:  intentTotal,
		FinalPrice:      finalPrice,
		FinalAmount:     finalPrice,
		Status:          StatusPendingHRConfirmation,
		CreatedBy:       input.Actor,
		CreatedAt:       s.now(),
	}
	if input.IncludeGST {
		rate := rateUnset
		if input.GSTRate != nil {
			rate = *input.GSTRate
		}
		details := ComputeGST(finalPrice, ResolveJurisdiction(v), rate)
		po.GSTDetails = &details
		po.FinalAmount = details.TotalWithGST
	}
	// Savings may be negative; an overage is displayed as-is, never clamped.
	po.Savings = intentTotal.Sub(po.FinalAmount)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreateOrder(ctx, po); err != nil {
			return err
		}
		return tx.AddComponentSpent(ctx, doc.ID, po.BudgetComponent, po.FinalAmount)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.intents.MarkOrdered(ctx, in.ID, input.Actor); err != nil {
		// The order row and ledger spend are already committed; report the
		// stale intent status instead of failing the whole creation.
		s.logger.Warn("mark intent ordered",
			slog.String("intent_id", in.ID.String()), slog.Any("error", err))
	}
	if s.metrics != nil {
		s.metrics.OrderCreated()
	}
	s.recordAudit(ctx, input.Actor, "PO_CREATE", po.ID, map[string]any{
		"intent_id":    po.IntentID.String(),
		"final_amount": po.FinalAmount.String(),
		"savings":      po.Savings.String(),
	})
	return po, nil
}

// Complete confirms fulfilment and closes both order and intent.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor string) error {
	po, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if po.Status != StatusPendingHRConfirmation {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, StatusCompleted)
	})
	if err != nil {
		return err
	}
	if err := s.intents.Complete(ctx, po.IntentID, actor); err != nil {
		// The order status is already committed.
		s.logger.Warn("complete intent",
			slog.String("intent_id", po.IntentID.String()), slog.Any("error", err))
	}
	s.recordAudit(ctx, actor, "PO_COMPLETE", id, nil)
	return nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// GetByIntent returns the order bound to an intent, when one exists.
func (s *Service) GetByIntent(ctx context.Context, intentID uuid.UUID) (PurchaseOrder, error) {
	return s.repo.GetOrderByIntent(ctx, intentID)
}

// List pages orders for a department.
func (s *Service) List(ctx context.Context, deptID string, status Status, limit, offset int) ([]PurchaseOrder, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListOrders(ctx, deptID, status, limit, offset)
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "order", EntityID: id.String(), Meta: meta})
}
