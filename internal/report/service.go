package report

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kharcha-erp/kharcha/internal/budget"
	"github.com/kharcha-erp/kharcha/internal/money"
)

// ComponentReport is one ledger component with its derived health figures.
type ComponentReport struct {
	Key             string          `json:"key"`
	Bucket          budget.Bucket   `json:"bucket"`
	Allocated       decimal.Decimal `json:"allocated"`
	Spent           decimal.Decimal `json:"spent"`
	Remaining       decimal.Decimal `json:"remaining"`
	UtilizationRate decimal.Decimal `json:"utilizationRate"`
	Band            Band            `json:"band"`
	RedFlag         bool            `json:"redFlag"`
}

// UtilizationReport is the full derived view of one department's budget.
type UtilizationReport struct {
	DeptID     string              `json:"deptId"`
	FiscalYear string              `json:"fiscalYear"`
	Totals     budget.Totals       `json:"totals"`
	Band       Band                `json:"band"`
	RedFlag    bool                `json:"redFlag"`
	Components []ComponentReport   `json:"components"`
	Chart      []budget.ChartSlice `json:"chart"`
}

// OverviewEntry is one department's rollup line in the cross-department view.
type OverviewEntry struct {
	DeptID          string          `json:"deptId"`
	Allocated       decimal.Decimal `json:"allocated"`
	Spent           decimal.Decimal `json:"spent"`
	Remaining       decimal.Decimal `json:"remaining"`
	UtilizationRate decimal.Decimal `json:"utilizationRate"`
	Band            Band            `json:"band"`
}

// Overview aggregates utilization across departments for one fiscal year.
type Overview struct {
	FiscalYear string          `json:"fiscalYear"`
	Totals     budget.Totals   `json:"totals"`
	Band       Band            `json:"band"`
	Entries    []OverviewEntry `json:"entries"`
}

// BudgetPort loads the ledger documents the reporter derives from.
type BudgetPort interface {
	Document(ctx context.Context, deptID, fiscalYear string) (budget.BudgetDocument, error)
}

// Service computes utilization reports, cache-aware.
type Service struct {
	budgets BudgetPort
	cache   *Cache
}

// NewService constructs the reporter.
func NewService(budgets BudgetPort, cache *Cache) *Service {
	return &Service{budgets: budgets, cache: cache}
}

// Utilization builds the derived report for one department and period. The
// result is served from the versioned cache when warm.
func (s *Service) Utilization(ctx context.Context, deptID, fiscalYear string) (UtilizationReport, error) {
	key, err := s.cache.BuildKey(ctx, keyUtilization(deptID, fiscalYear))
	if err != nil {
		return UtilizationReport{}, err
	}
	var out UtilizationReport
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.buildUtilization(ctx, deptID, fiscalYear)
	})
	return out, err
}

func (s *Service) buildUtilization(ctx context.Context, deptID, fiscalYear string) (UtilizationReport, error) {
	doc, err := s.budgets.Document(ctx, deptID, fiscalYear)
	if err != nil {
		return UtilizationReport{}, err
	}
	totals := budget.ComputeTotals(doc)
	out := UtilizationReport{
		DeptID:     deptID,
		FiscalYear: fiscalYear,
		Totals:     totals,
		Band:       BandFor(totals.UtilizationRate),
		RedFlag:    RedFlag(totals.Remaining, totals.Allocated),
		Chart:      budget.ChartData(doc),
	}
	groups := []struct {
		bucket     budget.Bucket
		components map[string]budget.BudgetComponent
	}{
		{budget.BucketDepartment, doc.DepartmentExpenses},
		{budget.BucketFixedCost, doc.FixedCosts},
		{budget.BucketSalary, doc.Salaries},
		{budget.BucketCSDD, doc.CSDDExpenses},
	}
	for _, group := range groups {
		for key, c := range group.components {
			rate := c.UtilizationRate()
			out.Components = append(out.Components, ComponentReport{
				Key:             key,
				Bucket:          group.bucket,
				Allocated:       c.Allocated,
				Spent:           c.Spent,
				Remaining:       c.Remaining(),
				UtilizationRate: rate,
				Band:            BandFor(rate),
				RedFlag:         RedFlag(c.Remaining(), c.Allocated),
			})
		}
	}
	sort.Slice(out.Components, func(i, j int) bool {
		if out.Components[i].Bucket != out.Components[j].Bucket {
			return out.Components[i].Bucket < out.Components[j].Bucket
		}
		return out.Components[i].Key < out.Components[j].Key
	})
	return out, nil
}

// DepartmentsOverview fans out per-department loads in parallel and rolls the
// results into one cross-department view. Departments without a budget
// document for the period are skipped rather than failing the whole rollup.
func (s *Service) DepartmentsOverview(ctx context.Context, fiscalYear string, deptIDs []string) (Overview, error) {
	var mu sync.Mutex
	entries := make([]OverviewEntry, 0, len(deptIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, deptID := range deptIDs {
		g.Go(func() error {
			rep, err := s.Utilization(ctx, deptID, fiscalYear)
			if err != nil {
				if errors.Is(err, budget.ErrNoBudget) {
					return nil
				}
				return err
			}
			mu.Lock()
			entries = append(entries, OverviewEntry{
				DeptID:          deptID,
				Allocated:       rep.Totals.Allocated,
				Spent:           rep.Totals.Spent,
				Remaining:       rep.Totals.Remaining,
				UtilizationRate: rep.Totals.UtilizationRate,
				Band:            rep.Band,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].DeptID < entries[j].DeptID })
	out := Overview{FiscalYear: fiscalYear, Entries: entries}
	for _, e := range entries {
		out.Totals.Allocated = out.Totals.Allocated.Add(e.Allocated)
		out.Totals.Spent = out.Totals.Spent.Add(e.Spent)
	}
	out.Totals.Remaining = out.Totals.Allocated.Sub(out.Totals.Spent)
	out.Totals.UtilizationRate = money.Ratio(out.Totals.Spent, out.Totals.Allocated)
	out.Band = BandFor(out.Totals.UtilizationRate)
	return out, nil
}

// Invalidate bumps the cache version after ledger writes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
