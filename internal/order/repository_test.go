package order

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapCreateOrderError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "uq_purchase_orders_intent"}
	require.ErrorIs(t, mapCreateOrderError(dup), ErrOrderExists)
	require.ErrorIs(t, mapCreateOrderError(fmt.Errorf("insert order: %w", dup)), ErrOrderExists)

	otherConstraint := &pgconn.PgError{Code: "23505", ConstraintName: "budget_components_doc_id_key_key"}
	require.NotErrorIs(t, mapCreateOrderError(otherConstraint), ErrOrderExists)

	plain := errors.New("connection reset")
	require.Equal(t, plain, mapCreateOrderError(plain))
}
