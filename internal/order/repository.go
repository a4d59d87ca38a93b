package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides PostgreSQL backed persistence for purchase orders.
// Vendor details, items, and GST breakdown are frozen snapshots, stored as
// JSONB alongside the order row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations. AddComponentSpent reports
// the order's final amount into the ledger so the order row and the spent
// figure commit atomically.
type TxRepository interface {
	CreateOrder(ctx context.Context, po PurchaseOrder) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	AddComponentSpent(ctx context.Context, docID int64, key string, amount decimal.Decimal) error
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

const orderColumns = `id, intent_id, dept_id, fiscal_year, budget_component,
	vendor_details, items, gst_details,
	estimated_total::text, final_price::text, final_amount::text, savings::text,
	status, created_by, created_at`

// GetOrder fetches one order by ID.
func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderByIntent fetches the single order bound to an intent.
func (r *Repository) GetOrderByIntent(ctx context.Context, intentID uuid.UUID) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE intent_id = $1`, intentID)
	return scanOrder(row)
}

// ListOrders pages orders for a department, optionally filtered by status.
func (r *Repository) ListOrders(ctx context.Context, deptID string, status Status, limit, offset int) ([]PurchaseOrder, int, error) {
	countSQL := `SELECT COUNT(*) FROM purchase_orders WHERE dept_id = $1`
	args := []any{deptID}
	if status != "" {
		countSQL += ` AND status = $2`
		args = append(args, string(status))
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE dept_id = $1`
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

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (PurchaseOrder, error) {
	var po PurchaseOrder
	var vendorJSON, itemsJSON []byte
	var gstJSON []byte
	var estimated, finalPrice, finalAmount, savings string
	err := row.Scan(&po.ID, &po.IntentID, &po.DeptID, &po.FiscalYear, &po.BudgetComponent,
		&vendorJSON, &itemsJSON, &gstJSON,
		&estimated, &finalPrice, &finalAmount, &savings,
		&po.Status, &po.CreatedBy, &po.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	if err := json.Unmarshal(vendorJSON, &po.VendorDetails); err != nil {
		return PurchaseOrder{}, err
	}
	if err := json.Unmarshal(itemsJSON, &po.Items); err != nil {
		return PurchaseOrder{}, err
	}
	if len(gstJSON) > 0 {
		var details GSTDetails
		if err := json.Unmarshal(gstJSON, &details); err != nil {
			return PurchaseOrder{}, err
		}
		po.GSTDetails = &details
	}
	po.EstimatedTotal, _ = decimal.NewFromString(estimated)
	po.FinalPrice, _ = decimal.NewFromString(finalPrice)
	po.FinalAmount, _ = decimal.NewFromString(finalAmount)
	po.Savings, _ = decimal.NewFromString(savings)
	return po, nil
}

func (t *txRepo) CreateOrder(ctx context.Context, po PurchaseOrder) error {
	vendorJSON, err := json.Marshal(po.VendorDetails)
	if err != nil {
		return err
	}
	itemsJSON, err := json.Marshal(po.Items)
	if err != nil {
		return err
	}
	var gstJSON []byte
	if po.GSTDetails != nil {
		gstJSON, err = json.Marshal(po.GSTDetails)
		if err != nil {
			return err
		}
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO purchase_orders (id, intent_id, dept_id, fiscal_year, budget_component,
		   vendor_details, items, gst_details,
		   estimated_total, final_price, final_amount, savings, status, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		po.ID, po.IntentID, po.DeptID, po.FiscalYear, po.BudgetComponent,
		vendorJSON, itemsJSON, gstJSON,
		po.EstimatedTotal.String(), po.FinalPrice.String(), po.FinalAmount.String(), po.Savings.String(),
		string(po.Status), po.CreatedBy, po.CreatedAt)
	if err != nil {
		return mapCreateOrderError(err)
	}
	return nil
}

// mapCreateOrderError translates a violation of the one-order-per-intent
// unique constraint into ErrOrderExists. Other errors pass through.
func mapCreateOrderError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_purchase_orders_intent" {
		return ErrOrderExists
	}
	return err
}

func (t *txRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddComponentSpent increases the ledger spent figure for the component the
// order draws from.
func (t *txRepo) AddComponentSpent(ctx context.Context, docID int64, key string, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE budget_components SET spent = spent + $1 WHERE doc_id = $2 AND key = $3`,
		amount.String(), docID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order: budget component %q not found in document %d", key, docID)
	}
	return nil
}
