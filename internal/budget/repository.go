package budget

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides PostgreSQL backed persistence for budget documents.
// Components live in their own rows so spend updates stay row-level.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations. Spend updates are not here:
// the order engine reports spend into the ledger inside its own transaction
// so order row and spent figure commit atomically.
type TxRepository interface {
	SaveDocument(ctx context.Context, doc BudgetDocument) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetDocument loads the header plus component rows for one period.
func (r *Repository) GetDocument(ctx context.Context, deptID, fiscalYear string) (BudgetDocument, error) {
	doc := BudgetDocument{DeptID: deptID, FiscalYear: fiscalYear}
	var totalBudget string
	err := r.pool.QueryRow(ctx,
		`SELECT id, total_budget::text FROM budget_documents WHERE dept_id = $1 AND fiscal_year = $2`,
		deptID, fiscalYear,
	).Scan(&doc.ID, &totalBudget)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BudgetDocument{}, ErrNotFound
		}
		return BudgetDocument{}, err
	}
	doc.TotalBudget, _ = decimal.NewFromString(totalBudget)

	rows, err := r.pool.Query(ctx,
		`SELECT bucket, key, allocated::text, spent::text FROM budget_components WHERE doc_id = $1`,
		doc.ID,
	)
	if err != nil {
		return BudgetDocument{}, err
	}
	defer rows.Close()

	doc.DepartmentExpenses = map[string]BudgetComponent{}
	doc.FixedCosts = map[string]BudgetComponent{}
	doc.Salaries = map[string]BudgetComponent{}
	doc.CSDDExpenses = map[string]BudgetComponent{}
	for rows.Next() {
		var bucket, key, allocated, spent string
		if err := rows.Scan(&bucket, &key, &allocated, &spent); err != nil {
			return BudgetDocument{}, err
		}
		c := BudgetComponent{}
		c.Allocated, _ = decimal.NewFromString(allocated)
		c.Spent, _ = decimal.NewFromString(spent)
		switch Bucket(bucket) {
		case BucketDepartment:
			doc.DepartmentExpenses[key] = c
		case BucketFixedCost:
			doc.FixedCosts[key] = c
		case BucketSalary:
			doc.Salaries[key] = c
		case BucketCSDD:
			doc.CSDDExpenses[key] = c
		}
	}
	if err := rows.Err(); err != nil {
		return BudgetDocument{}, err
	}
	return doc, nil
}

func (t *txRepo) SaveDocument(ctx context.Context, doc BudgetDocument) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO budget_documents (dept_id, fiscal_year, total_budget)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (dept_id, fiscal_year)
		 DO UPDATE SET total_budget = EXCLUDED.total_budget
		 RETURNING id`,
		doc.DeptID, doc.FiscalYear, doc.TotalBudget.String(),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM budget_components WHERE doc_id = $1`, id); err != nil {
		return 0, err
	}
	insert := func(bucket Bucket, group map[string]BudgetComponent) error {
		for key, c := range group {
			if _, err := t.tx.Exec(ctx,
				`INSERT INTO budget_components (doc_id, bucket, key, allocated, spent) VALUES ($1, $2, $3, $4, $5)`,
				id, string(bucket), key, c.Allocated.String(), c.Spent.String(),
			); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(BucketDepartment, doc.DepartmentExpenses); err != nil {
		return 0, err
	}
	if err := insert(BucketFixedCost, doc.FixedCosts); err != nil {
		return 0, err
	}
	if err := insert(BucketSalary, doc.Salaries); err != nil {
		return 0, err
	}
	if err := insert(BucketCSDD, doc.CSDDExpenses); err != nil {
		return 0, err
	}
	return id, nil
}
