package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides PostgreSQL backed persistence for purchase intents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateIntent(ctx context.Context, in PurchaseIntent) error
	UpdateIntent(ctx context.Context, in PurchaseIntent) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	AppendHistory(ctx context.Context, id uuid.UUID, entry HistoryEntry) error
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

// GetIntent returns an intent with items and history.
func (r *Repository) GetIntent(ctx context.Context, id uuid.UUID) (PurchaseIntent, error) {
	var in PurchaseIntent
	var estimatedTotal, totalEstimate string
	err := r.pool.QueryRow(ctx,
		`SELECT id, dept_id, fiscal_year, created_by, title, description,
		        estimated_total::text, COALESCE(total_estimate, 0)::text,
		        selected_budget_component, status
		 FROM purchase_intents WHERE id = $1`, id,
	).Scan(&in.ID, &in.DeptID, &in.FiscalYear, &in.CreatedBy, &in.Title, &in.Description,
		&estimatedTotal, &totalEstimate, &in.SelectedBudgetComponent, &in.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseIntent{}, ErrNotFound
		}
		return PurchaseIntent{}, err
	}
	in.EstimatedTotal, _ = decimal.NewFromString(estimatedTotal)
	in.TotalEstimate, _ = decimal.NewFromString(totalEstimate)

	itemRows, err := r.pool.Query(ctx,
		`SELECT sno, description, category, quantity::text, est_price_per_unit::text, est_total::text
		 FROM intent_items WHERE intent_id = $1 ORDER BY sno`, id)
	if err != nil {
		return PurchaseIntent{}, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item RequestedItem
		var qty, price, total string
		if err := itemRows.Scan(&item.SNo, &item.Description, &item.Category, &qty, &price, &total); err != nil {
			return PurchaseIntent{}, err
		}
		item.Quantity, _ = decimal.NewFromString(qty)
		item.EstPricePerUnit, _ = decimal.NewFromString(price)
		item.EstTotal, _ = decimal.NewFromString(total)
		in.RequestedItems = append(in.RequestedItems, item)
	}
	if err := itemRows.Err(); err != nil {
		return PurchaseIntent{}, err
	}

	histRows, err := r.pool.Query(ctx,
		`SELECT actor, action, at FROM intent_history WHERE intent_id = $1 ORDER BY at`, id)
	if err != nil {
		return PurchaseIntent{}, err
	}
	defer histRows.Close()
	for histRows.Next() {
		var entry HistoryEntry
		if err := histRows.Scan(&entry.By, &entry.Action, &entry.At); err != nil {
			return PurchaseIntent{}, err
		}
		in.History = append(in.History, entry)
	}
	if err := histRows.Err(); err != nil {
		return PurchaseIntent{}, err
	}
	return in, nil
}

// ListIntents pages intents for a department, optionally filtered by status.
func (r *Repository) ListIntents(ctx context.Context, deptID string, status Status, limit, offset int) ([]PurchaseIntent, int, error) {
	countSQL := `SELECT COUNT(*) FROM purchase_intents WHERE dept_id = $1`
	args := []any{deptID}
	if status != "" {
		countSQL += ` AND status = $2`
		args = append(args, string(status))
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT id, dept_id, fiscal_year, created_by, title, description,
	       estimated_total::text, selected_budget_component, status
	FROM purchase_intents WHERE dept_id = $1`
	argNum := 2
	if status != "" {
		dataSQL += fmt.Sprintf(` AND status = $%d`, argNum)
		argNum++
	}
	dataSQL += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []PurchaseIntent
	for rows.Next() {
		var in PurchaseIntent
		var estimatedTotal string
		if err := rows.Scan(&in.ID, &in.DeptID, &in.FiscalYear, &in.CreatedBy, &in.Title, &in.Description,
			&estimatedTotal, &in.SelectedBudgetComponent, &in.Status); err != nil {
			return nil, 0, err
		}
		in.EstimatedTotal, _ = decimal.NewFromString(estimatedTotal)
		items = append(items, in)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (t *txRepo) CreateIntent(ctx context.Context, in PurchaseIntent) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO purchase_intents (id, dept_id, fiscal_year, created_by, title, description,
		   estimated_total, selected_budget_component, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		in.ID, in.DeptID, in.FiscalYear, in.CreatedBy, in.Title, in.Description,
		in.EstimatedTotal.String(), in.SelectedBudgetComponent, string(in.Status))
	if err != nil {
		return err
	}
	for _, item := range in.RequestedItems {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO intent_items (intent_id, sno, description, category, quantity, est_price_per_unit, est_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			in.ID, item.SNo, item.Description, item.Category,
			item.Quantity.String(), item.EstPricePerUnit.String(), item.EstTotal.String()); err != nil {
			return err
		}
	}
	for _, entry := range in.History {
		if err := t.AppendHistory(ctx, in.ID, entry); err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) UpdateIntent(ctx context.Context, in PurchaseIntent) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE purchase_intents SET title = $1, description = $2, estimated_total = $3,
		   selected_budget_component = $4
		 WHERE id = $5`,
		in.Title, in.Description, in.EstimatedTotal.String(), in.SelectedBudgetComponent, in.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM intent_items WHERE intent_id = $1`, in.ID); err != nil {
		return err
	}
	for _, item := range in.RequestedItems {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO intent_items (intent_id, sno, description, category, quantity, est_price_per_unit, est_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			in.ID, item.SNo, item.Description, item.Category,
			item.Quantity.String(), item.EstPricePerUnit.String(), item.EstTotal.String()); err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_intents SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) AppendHistory(ctx context.Context, id uuid.UUID, entry HistoryEntry) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO intent_history (intent_id, actor, action, at) VALUES ($1, $2, $3, $4)`,
		id, entry.By, entry.Action, entry.At)
	return err
}
