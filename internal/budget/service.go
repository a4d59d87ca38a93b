package budget

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kharcha-erp/kharcha/internal/money"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetDocument(ctx context.Context, deptID, fiscalYear string) (BudgetDocument, error)
}

// Service owns ledger reads and the derived-total arithmetic.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the budget service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Document loads the budget for a period. A missing document surfaces as
// ErrNoBudget so callers can refuse intent creation outright.
func (s *Service) Document(ctx context.Context, deptID, fiscalYear string) (BudgetDocument, error) {
	doc, err := s.repo.GetDocument(ctx, deptID, fiscalYear)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return BudgetDocument{}, ErrNoBudget
		}
		return BudgetDocument{}, err
	}
	return doc, nil
}

// ComponentRemaining looks up a component across the three spendable buckets
// in fixed priority order and returns its remaining budget. An absent key is
// zero, never an error.
func ComponentRemaining(doc BudgetDocument, key string) decimal.Decimal {
	for _, group := range []map[string]BudgetComponent{doc.DepartmentExpenses, doc.FixedCosts, doc.CSDDExpenses} {
		if c, ok := group[key]; ok {
			return c.Remaining()
		}
	}
	return decimal.Zero
}

// ComputeTotals sums allocation and spend across every category group. The
// explicit TotalBudget override wins when positive; otherwise the calculated
// sum of all component allocations is used.
func ComputeTotals(doc BudgetDocument) Totals {
	var allocated, spent decimal.Decimal
	for _, group := range groups(doc) {
		for _, c := range group {
			allocated = allocated.Add(c.Allocated)
			spent = spent.Add(c.Spent)
		}
	}
	if doc.TotalBudget.IsPositive() {
		allocated = doc.TotalBudget
	}
	return Totals{
		Allocated:       allocated,
		Spent:           spent,
		Remaining:       allocated.Sub(spent),
		UtilizationRate: money.Ratio(spent, allocated),
	}
}

// ChartData returns allocation shares for display. Zero-allocation components
// are dropped here even though they count toward the document totals.
func ChartData(doc BudgetDocument) []ChartSlice {
	totals := ComputeTotals(doc)
	var slices []ChartSlice
	buckets := []Bucket{BucketDepartment, BucketFixedCost, BucketSalary, BucketCSDD}
	for i, group := range groups(doc) {
		for key, c := range group {
			if !c.Allocated.IsPositive() {
				continue
			}
			slices = append(slices, ChartSlice{
				Key:       key,
				Bucket:    buckets[i],
				Allocated: c.Allocated,
				Share:     money.Ratio(c.Allocated, totals.Allocated),
			})
		}
	}
	return slices
}

func groups(doc BudgetDocument) []map[string]BudgetComponent {
	return []map[string]BudgetComponent{doc.DepartmentExpenses, doc.FixedCosts, doc.Salaries, doc.CSDDExpenses}
}

// UpsertInput describes a full budget document write.
type UpsertInput struct {
	DeptID      string
	FiscalYear  string
	TotalBudget decimal.Decimal
	Components  map[Bucket]map[string]decimal.Decimal
}

// Upsert replaces the allocations of a budget document. Spent figures are
// preserved for components that already exist.
func (s *Service) Upsert(ctx context.Context, input UpsertInput) (BudgetDocument, error) {
	if input.DeptID == "" || input.FiscalYear == "" {
		return BudgetDocument{}, errors.New("budget: dept and fiscal year required")
	}
	existing, err := s.repo.GetDocument(ctx, input.DeptID, input.FiscalYear)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return BudgetDocument{}, err
	}
	doc := BudgetDocument{
		ID:          existing.ID,
		DeptID:      input.DeptID,
		FiscalYear:  input.FiscalYear,
		TotalBudget: input.TotalBudget,
	}
	spentFor := func(key string) decimal.Decimal {
		for _, group := range groups(existing) {
			if c, ok := group[key]; ok {
				return c.Spent
			}
		}
		return decimal.Zero
	}
	assign := func(bucket Bucket) map[string]BudgetComponent {
		out := make(map[string]BudgetComponent, len(input.Components[bucket]))
		for key, alloc := range input.Components[bucket] {
			out[key] = BudgetComponent{Allocated: alloc, Spent: spentFor(key)}
		}
		return out
	}
	doc.DepartmentExpenses = assign(BucketDepartment)
	doc.FixedCosts = assign(BucketFixedCost)
	doc.Salaries = assign(BucketSalary)
	doc.CSDDExpenses = assign(BucketCSDD)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.SaveDocument(ctx, doc)
		if err != nil {
			return err
		}
		doc.ID = id
		return nil
	})
	if err != nil {
		return BudgetDocument{}, err
	}
	return doc, nil
}
