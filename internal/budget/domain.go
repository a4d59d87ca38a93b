package budget

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kharcha-erp/kharcha/internal/money"
)

// Bucket names the category groups a component can live in. Lookup order is
// fixed: department expenses, then fixed costs, then CSDD expenses.
type Bucket string

const (
	BucketDepartment Bucket = "DEPARTMENT"
	BucketFixedCost  Bucket = "FIXED_COST"
	BucketSalary     Bucket = "SALARY"
	BucketCSDD       Bucket = "CSDD"
)

// BudgetComponent is a named category with its own allocated/spent figures.
// Remaining and utilization are always derived, never stored.
type BudgetComponent struct {
	Allocated decimal.Decimal `json:"allocated"`
	Spent     decimal.Decimal `json:"spent"`
}

// Remaining returns allocated minus spent.
func (c BudgetComponent) Remaining() decimal.Decimal {
	return c.Allocated.Sub(c.Spent)
}

// UtilizationRate returns spent/allocated as a percentage; zero allocation
// yields zero.
func (c BudgetComponent) UtilizationRate() decimal.Decimal {
	return money.Ratio(c.Spent, c.Allocated)
}

// BudgetDocument holds one department's budget for a fiscal year.
type BudgetDocument struct {
	ID                 int64                      `json:"id"`
	DeptID             string                     `json:"deptId"`
	FiscalYear         string                     `json:"fiscalYear"`
	TotalBudget        decimal.Decimal            `json:"totalBudget"`
	DepartmentExpenses map[string]BudgetComponent `json:"departmentExpenses"`
	FixedCosts         map[string]BudgetComponent `json:"fixedCosts"`
	Salaries           map[string]BudgetComponent `json:"salaries"`
	CSDDExpenses       map[string]BudgetComponent `json:"csddExpenses"`
}

// Totals aggregates a document across all category groups.
type Totals struct {
	Allocated       decimal.Decimal `json:"allocated"`
	Spent           decimal.Decimal `json:"spent"`
	Remaining       decimal.Decimal `json:"remaining"`
	UtilizationRate decimal.Decimal `json:"utilizationRate"`
}

// ChartSlice is one component's share of the allocation chart. Components
// with zero allocation are excluded from chart data but still count toward
// the totals.
type ChartSlice struct {
	Key       string          `json:"key"`
	Bucket    Bucket          `json:"bucket"`
	Allocated decimal.Decimal `json:"allocated"`
	Share     decimal.Decimal `json:"share"`
}

var (
	// ErrNoBudget signals that no budget document exists for the period.
	// Intent and order creation must be refused, not computed against zero.
	ErrNoBudget = errors.New("budget: no budget document for period")
	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("budget: not found")
)
