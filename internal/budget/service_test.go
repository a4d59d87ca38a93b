package budget

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryBudgetRepo struct {
	docs   map[string]BudgetDocument
	nextID int64
}

func newMemoryBudgetRepo() *memoryBudgetRepo {
	return &memoryBudgetRepo{docs: make(map[string]BudgetDocument)}
}

func docKey(deptID, fiscalYear string) string { return deptID + "/" + fiscalYear }

func (r *memoryBudgetRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryBudgetRepo) GetDocument(ctx context.Context, deptID, fiscalYear string) (BudgetDocument, error) {
	doc, ok := r.docs[docKey(deptID, fiscalYear)]
	if !ok {
		return BudgetDocument{}, ErrNotFound
	}
	return doc, nil
}

func (r *memoryBudgetRepo) SaveDocument(ctx context.Context, doc BudgetDocument) (int64, error) {
	if doc.ID == 0 {
		r.nextID++
		doc.ID = r.nextID
	}
	r.docs[docKey(doc.DeptID, doc.FiscalYear)] = doc
	return doc.ID, nil
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleDoc() BudgetDocument {
	return BudgetDocument{
		DeptID:     "CIVIL",
		FiscalYear: "2025-26",
		DepartmentExpenses: map[string]BudgetComponent{
			"lab_equipment": {Allocated: amount("200000"), Spent: amount("50000")},
			"stationery":    {Allocated: amount("0"), Spent: amount("0")},
		},
		FixedCosts: map[string]BudgetComponent{
			"maintenance": {Allocated: amount("100000"), Spent: amount("90000")},
		},
		Salaries: map[string]BudgetComponent{
			"visiting_faculty": {Allocated: amount("150000"), Spent: amount("150000")},
		},
		CSDDExpenses: map[string]BudgetComponent{
			"outreach": {Allocated: amount("50000"), Spent: amount("10000")},
		},
	}
}

func TestComputeTotalsFallback(t *testing.T) {
	doc := sampleDoc()
	totals := ComputeTotals(doc)
	require.True(t, totals.Allocated.Equal(amount("500000")), "calculated sum covers all groups")
	require.True(t, totals.Spent.Equal(amount("300000")))
	require.True(t, totals.Remaining.Equal(amount("200000")))
	require.Equal(t, "60", totals.UtilizationRate.String())
}

func TestComputeTotalsOverrideWins(t *testing.T) {
	doc := sampleDoc()
	doc.TotalBudget = amount("600000")
	totals := ComputeTotals(doc)
	require.True(t, totals.Allocated.Equal(amount("600000")), "positive override beats computed sum")
	require.True(t, totals.Remaining.Equal(amount("300000")))
}

func TestComputeTotalsEmptyDocument(t *testing.T) {
	totals := ComputeTotals(BudgetDocument{})
	require.True(t, totals.Allocated.IsZero())
	require.True(t, totals.UtilizationRate.IsZero(), "zero allocation yields zero rate, not a division error")
}

func TestChartDataExcludesZeroAllocations(t *testing.T) {
	slices := ChartData(sampleDoc())
	require.Len(t, slices, 4)
	for _, s := range slices {
		require.NotEqual(t, "stationery", s.Key)
		require.True(t, s.Allocated.IsPositive())
	}
}

func TestComponentRemainingPriorityOrder(t *testing.T) {
	doc := sampleDoc()
	require.True(t, ComponentRemaining(doc, "lab_equipment").Equal(amount("150000")))
	require.True(t, ComponentRemaining(doc, "maintenance").Equal(amount("10000")))
	require.True(t, ComponentRemaining(doc, "outreach").Equal(amount("40000")))
	require.True(t, ComponentRemaining(doc, "missing").IsZero())

	// A key present in two buckets resolves from the earlier bucket.
	doc.CSDDExpenses["maintenance"] = BudgetComponent{Allocated: amount("999"), Spent: amount("0")}
	require.True(t, ComponentRemaining(doc, "maintenance").Equal(amount("10000")))
}

func TestDocumentMissingIsNoBudget(t *testing.T) {
	svc := NewService(newMemoryBudgetRepo())
	_, err := svc.Document(context.Background(), "CIVIL", "2025-26")
	require.ErrorIs(t, err, ErrNoBudget)
}

func TestUpsertPreservesSpent(t *testing.T) {
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	ctx := context.Background()

	doc := sampleDoc()
	doc.ID = 0
	_, err := repo.SaveDocument(ctx, doc)
	require.NoError(t, err)

	updated, err := svc.Upsert(ctx, UpsertInput{
		DeptID:     "CIVIL",
		FiscalYear: "2025-26",
		Components: map[Bucket]map[string]decimal.Decimal{
			BucketDepartment: {"lab_equipment": amount("250000")},
		},
	})
	require.NoError(t, err)
	c := updated.DepartmentExpenses["lab_equipment"]
	require.True(t, c.Allocated.Equal(amount("250000")))
	require.True(t, c.Spent.Equal(amount("50000")), "existing spend survives reallocation")
}
