package report

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kharcha-erp/kharcha/internal/budget"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBandThresholds(t *testing.T) {
	require.Equal(t, BandLow, BandFor(dec("0")))
	require.Equal(t, BandLow, BandFor(dec("59.9")))
	require.Equal(t, BandMedium, BandFor(dec("60")))
	require.Equal(t, BandMedium, BandFor(dec("84.9")))
	require.Equal(t, BandHigh, BandFor(dec("85")))
	require.Equal(t, BandHigh, BandFor(dec("120")))
}

func TestRedFlag(t *testing.T) {
	require.True(t, RedFlag(dec("900"), dec("10000")))
	require.False(t, RedFlag(dec("1000"), dec("10000")))
	require.False(t, RedFlag(dec("0"), dec("0")))
	// Overspent components flag red regardless of the band.
	require.True(t, RedFlag(dec("-500"), dec("10000")))
}

// stubBudgets is called from the overview worker goroutines, so the load
// counter is guarded.
type stubBudgets struct {
	mu    sync.Mutex
	docs  map[string]budget.BudgetDocument
	loads int
}

func (s *stubBudgets) Document(ctx context.Context, deptID, fiscalYear string) (budget.BudgetDocument, error) {
	doc, ok := s.docs[deptID+":"+fiscalYear]
	if !ok {
		return budget.BudgetDocument{}, budget.ErrNoBudget
	}
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	return doc, nil
}

func (s *stubBudgets) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func sampleDoc(deptID string) budget.BudgetDocument {
	return budget.BudgetDocument{
		ID:         1,
		DeptID:     deptID,
		FiscalYear: "2025-26",
		DepartmentExpenses: map[string]budget.BudgetComponent{
			"lab_equipment": {Allocated: dec("100000"), Spent: dec("90000")},
			"consumables":   {Allocated: dec("50000"), Spent: dec("10000")},
		},
		FixedCosts: map[string]budget.BudgetComponent{
			"electricity": {Allocated: dec("30000"), Spent: dec("21000")},
		},
	}
}

func newRedisCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestUtilizationReport(t *testing.T) {
	budgets := &stubBudgets{docs: map[string]budget.BudgetDocument{"PHYSICS:2025-26": sampleDoc("PHYSICS")}}
	svc := NewService(budgets, nil)

	rep, err := svc.Utilization(context.Background(), "PHYSICS", "2025-26")
	require.NoError(t, err)
	require.True(t, rep.Totals.Allocated.Equal(dec("180000")))
	require.True(t, rep.Totals.Spent.Equal(dec("121000")))
	require.Equal(t, BandMedium, rep.Band)
	require.Len(t, rep.Components, 3)

	byKey := make(map[string]ComponentReport)
	for _, c := range rep.Components {
		byKey[c.Key] = c
	}
	require.Equal(t, BandHigh, byKey["lab_equipment"].Band)
	require.True(t, byKey["lab_equipment"].RedFlag)
	require.Equal(t, BandLow, byKey["consumables"].Band)
	require.False(t, byKey["consumables"].RedFlag)
	require.Equal(t, BandMedium, byKey["electricity"].Band)
}

func TestUtilizationServedFromCache(t *testing.T) {
	budgets := &stubBudgets{docs: map[string]budget.BudgetDocument{"PHYSICS:2025-26": sampleDoc("PHYSICS")}}
	cache, _ := newRedisCache(t)
	svc := NewService(budgets, cache)
	ctx := context.Background()

	first, err := svc.Utilization(ctx, "PHYSICS", "2025-26")
	require.NoError(t, err)
	second, err := svc.Utilization(ctx, "PHYSICS", "2025-26")
	require.NoError(t, err)
	require.Equal(t, 1, budgets.loadCount())
	require.True(t, first.Totals.Spent.Equal(second.Totals.Spent))
}

func TestInvalidateBumpsVersion(t *testing.T) {
	budgets := &stubBudgets{docs: map[string]budget.BudgetDocument{"PHYSICS:2025-26": sampleDoc("PHYSICS")}}
	cache, _ := newRedisCache(t)
	svc := NewService(budgets, cache)
	ctx := context.Background()

	_, err := svc.Utilization(ctx, "PHYSICS", "2025-26")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Utilization(ctx, "PHYSICS", "2025-26")
	require.NoError(t, err)
	require.Equal(t, 2, budgets.loadCount(), "bump must route the next read past the stale entry")
}

func TestDepartmentsOverview(t *testing.T) {
	budgets := &stubBudgets{docs: map[string]budget.BudgetDocument{
		"PHYSICS:2025-26":   sampleDoc("PHYSICS"),
		"CHEMISTRY:2025-26": sampleDoc("CHEMISTRY"),
	}}
	svc := NewService(budgets, nil)

	overview, err := svc.DepartmentsOverview(context.Background(), "2025-26", []string{"PHYSICS", "CHEMISTRY", "HISTORY"})
	require.NoError(t, err)
	// HISTORY has no budget document and is skipped, not an error.
	require.Len(t, overview.Entries, 2)
	require.Equal(t, "CHEMISTRY", overview.Entries[0].DeptID)
	require.True(t, overview.Totals.Allocated.Equal(dec("360000")))
	require.True(t, overview.Totals.Spent.Equal(dec("242000")))
}
