package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kharcha-erp/kharcha/internal/budget"
	"github.com/kharcha-erp/kharcha/internal/intent"
	"github.com/kharcha-erp/kharcha/internal/vendor"
)

type memoryOrderRepo struct {
	orders   map[uuid.UUID]PurchaseOrder
	byIntent map[uuid.UUID]uuid.UUID
	spent    map[string]decimal.Decimal
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{
		orders:   make(map[uuid.UUID]PurchaseOrder),
		byIntent: make(map[uuid.UUID]uuid.UUID),
		spent:    make(map[string]decimal.Decimal),
	}
}

func (r *memoryOrderRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryOrderRepo) CreateOrder(ctx context.Context, po PurchaseOrder) error {
	if _, exists := r.byIntent[po.IntentID]; exists {
		return ErrOrderExists
	}
	r.orders[po.ID] = po
	r.byIntent[po.IntentID] = po.ID
	return nil
}

func (r *memoryOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	po, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	r.orders[id] = po
	return nil
}

func (r *memoryOrderRepo) AddComponentSpent(ctx context.Context, docID int64, key string, amount decimal.Decimal) error {
	r.spent[key] = r.spent[key].Add(amount)
	return nil
}

func (r *memoryOrderRepo) GetOrder(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

func (r *memoryOrderRepo) GetOrderByIntent(ctx context.Context, intentID uuid.UUID) (PurchaseOrder, error) {
	id, ok := r.byIntent[intentID]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return r.orders[id], nil
}

func (r *memoryOrderRepo) ListOrders(ctx context.Context, deptID string, status Status, limit, offset int) ([]PurchaseOrder, int, error) {
	var out []PurchaseOrder
	for _, po := range r.orders {
		out = append(out, po)
	}
	return out, len(out), nil
}

type stubIntents struct {
	intents    map[uuid.UUID]intent.PurchaseIntent
	ordered    []uuid.UUID
	completed  []uuid.UUID
	orderedErr error
}

func (s *stubIntents) Get(ctx context.Context, id uuid.UUID) (intent.PurchaseIntent, error) {
	in, ok := s.intents[id]
	if !ok {
		return intent.PurchaseIntent{}, intent.ErrNotFound
	}
	return in, nil
}

func (s *stubIntents) MarkOrdered(ctx context.Context, id uuid.UUID, actor string) error {
	if s.orderedErr != nil {
		return s.orderedErr
	}
	s.ordered = append(s.ordered, id)
	return nil
}

func (s *stubIntents) Complete(ctx context.Context, id uuid.UUID, actor string) error {
	s.completed = append(s.completed, id)
	return nil
}

type stubVendors struct {
	vendors map[int64]vendor.Vendor
}

func (s *stubVendors) Get(ctx context.Context, id int64) (vendor.Vendor, error) {
	v, ok := s.vendors[id]
	if !ok {
		return vendor.Vendor{}, vendor.ErrNotFound
	}
	return v, nil
}

type stubBudgets struct {
	doc budget.BudgetDocument
	err error
}

func (s *stubBudgets) Document(ctx context.Context, deptID, fiscalYear string) (budget.BudgetDocument, error) {
	if s.err != nil {
		return budget.BudgetDocument{}, s.err
	}
	return s.doc, nil
}

type orderFixture struct {
	repo     *memoryOrderRepo
	intents  *stubIntents
	vendors  *stubVendors
	budgets  *stubBudgets
	service  *Service
	intentID uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	intentID := uuid.New()
	f := &orderFixture{
		repo: newMemoryOrderRepo(),
		intents: &stubIntents{intents: map[uuid.UUID]intent.PurchaseIntent{
			intentID: {
				ID:         intentID,
				DeptID:     "PHYSICS",
				FiscalYear: "2025-26",
				Title:      "Lab oscilloscopes",
				RequestedItems: []intent.RequestedItem{
					{SNo: 1, Description: "Oscilloscope", Category: "equipment", Quantity: dec("2"), EstPricePerUnit: dec("2500"), EstTotal: dec("5000")},
				},
				EstimatedTotal:          dec("5000"),
				SelectedBudgetComponent: "lab_equipment",
				Status:                  intent.StatusApproved,
			},
		}},
		vendors: &stubVendors{vendors: map[int64]vendor.Vendor{
			7: {ID: 7, Name: "Sharma Instruments", Address: "14 MG Road, Pune", StateCode: "MH"},
		}},
		budgets: &stubBudgets{doc: budget.BudgetDocument{
			ID: 42, DeptID: "PHYSICS", FiscalYear: "2025-26",
			DepartmentExpenses: map[string]budget.BudgetComponent{
				"lab_equipment": {Allocated: dec("100000"), Spent: dec("20000")},
			},
		}},
		intentID: intentID,
	}
	f.service = NewService(f.repo, f.intents, f.vendors, f.budgets, nil)
	f.service.WithNow(func() time.Time {
		return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	})
	return f
}

func TestCreateOrderSavings(t *testing.T) {
	f := newOrderFixture(t)
	po, err := f.service.Create(context.Background(), CreateInput{
		IntentID:   f.intentID,
		VendorID:   7,
		FinalPrice: dec("4500"),
		Actor:      "priya",
	})
	require.NoError(t, err)
	require.True(t, po.EstimatedTotal.Equal(dec("5000")))
	require.True(t, po.FinalAmount.Equal(dec("4500")))
	require.True(t, po.Savings.Equal(dec("500")))
	require.Equal(t, StatusPendingHRConfirmation, po.Status)
	require.Equal(t, "Sharma Instruments", po.VendorDetails.Name)
	require.Len(t, po.Items, 1)
}

func TestCreateOrderNegativeSavings(t *testing.T) {
	f := newOrderFixture(t)
	po, err := f.service.Create(context.Background(), CreateInput{
		IntentID:   f.intentID,
		VendorID:   7,
		FinalPrice: dec("5200"),
		Actor:      "priya",
	})
	require.NoError(t, err)
	require.True(t, po.Savings.Equal(dec("-200")), "savings: %s", po.Savings)
}

func TestCreateOrderDefaultsFinalPriceToEstimate(t *testing.T) {
	f := newOrderFixture(t)
	po, err := f.service.Create(context.Background(), CreateInput{
		IntentID: f.intentID,
		VendorID: 7,
		Actor:    "priya",
	})
	require.NoError(t, err)
	require.True(t, po.FinalPrice.Equal(dec("5000")))
	require.True(t, po.Savings.IsZero())
}

func TestCreateOrderWithGST(t *testing.T) {
	f := newOrderFixture(t)
	po, err := f.service.Create(context.Background(), CreateInput{
		IntentID:   f.intentID,
		VendorID:   7,
		FinalPrice: dec("1000"),
		IncludeGST: true,
		Actor:      "priya",
	})
	require.NoError(t, err)
	require.NotNil(t, po.GSTDetails)
	require.Equal(t, JurisdictionIntrastate, po.GSTDetails.Jurisdiction)
	require.True(t, po.GSTDetails.CGST.Equal(dec("90")))
	require.True(t, po.GSTDetails.SGST.Equal(dec("90")))
	require.True(t, po.FinalAmount.Equal(dec("1180")))
	// Savings compare the estimate against the tax-inclusive amount.
	require.True(t, po.Savings.Equal(dec("3820")))
}

func TestCreateOrderExemptGSTRate(t *testing.T) {
	f := newOrderFixture(t)
	zero := decimal.Zero
	po, err := f.service.Create(context.Background(), CreateInput{
		IntentID:   f.intentID,
		VendorID:   7,
		FinalPrice: dec("1000"),
		IncludeGST: true,
		GSTRate:    &zero,
		Actor:      "priya",
	})
	require.NoError(t, err)
	require.NotNil(t, po.GSTDetails)
	require.True(t, po.GSTDetails.GSTAmount.IsZero())
	require.True(t, po.FinalAmount.Equal(dec("1000")))
}

func TestCreateOrderSurvivesIntentStatusFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.intents.orderedErr = errors.New("intent store unavailable")

	po, err := f.service.Create(context.Background(), CreateInput{
		IntentID:   f.intentID,
		VendorID:   7,
		FinalPrice: dec("4500"),
		Actor:      "priya",
	})
	require.NoError(t, err, "a status flip failure after commit must not fail the creation")

	stored, err := f.service.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.True(t, stored.FinalAmount.Equal(dec("4500")))
	require.True(t, f.repo.spent["lab_equipment"].Equal(dec("4500")))
}

func TestCreateOrderRequiresVendor(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.service.Create(context.Background(), CreateInput{IntentID: f.intentID, Actor: "priya"})
	require.ErrorIs(t, err, ErrMissingVendor)

	_, err = f.service.Create(context.Background(), CreateInput{IntentID: f.intentID, VendorID: 999, Actor: "priya"})
	require.ErrorIs(t, err, ErrMissingVendor)
}

func TestCreateOrderRequiresApprovedIntent(t *testing.T) {
	f := newOrderFixture(t)
	in := f.intents.intents[f.intentID]
	in.Status = intent.StatusSubmitted
	f.intents.intents[f.intentID] = in

	_, err := f.service.Create(context.Background(), CreateInput{IntentID: f.intentID, VendorID: 7, Actor: "priya"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCreateOrderOnlyOncePerIntent(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	input := CreateInput{IntentID: f.intentID, VendorID: 7, FinalPrice: dec("4500"), Actor: "priya"}

	_, err := f.service.Create(ctx, input)
	require.NoError(t, err)

	_, err = f.service.Create(ctx, input)
	require.ErrorIs(t, err, ErrOrderExists)
}

func TestCreateOrderReportsSpendToLedger(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.service.Create(context.Background(), CreateInput{
		IntentID:   f.intentID,
		VendorID:   7,
		FinalPrice: dec("4500"),
		Actor:      "priya",
	})
	require.NoError(t, err)
	require.True(t, f.repo.spent["lab_equipment"].Equal(dec("4500")))
	require.Equal(t, []uuid.UUID{f.intentID}, f.intents.ordered)
}

func TestCompleteOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	po, err := f.service.Create(ctx, CreateInput{IntentID: f.intentID, VendorID: 7, Actor: "priya"})
	require.NoError(t, err)

	require.NoError(t, f.service.Complete(ctx, po.ID, "hr-admin"))

	stored, err := f.service.Get(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)
	require.Equal(t, []uuid.UUID{f.intentID}, f.intents.completed)

	require.ErrorIs(t, f.service.Complete(ctx, po.ID, "hr-admin"), ErrInvalidState)
}

func TestGetByIntent(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	po, err := f.service.Create(ctx, CreateInput{IntentID: f.intentID, VendorID: 7, Actor: "priya"})
	require.NoError(t, err)

	found, err := f.service.GetByIntent(ctx, f.intentID)
	require.NoError(t, err)
	require.Equal(t, po.ID, found.ID)

	_, err = f.service.GetByIntent(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
