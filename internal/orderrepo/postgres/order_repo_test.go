package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ordertx/internal/domain"
)

func TestOrderRepo_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	userID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "user_id", "amount", "status", "version", "created_at", "updated_at"}).
		AddRow(id, userID, "10.00", string(domain.OrderStatusCreated), int64(0), now, now)
	mock.ExpectQuery("SELECT id, user_id, amount, status, version, created_at, updated_at FROM orders WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(rows)

	repo := New()
	order, err := repo.GetByID(context.Background(), db, id)
	require.NoError(t, err)
	require.Equal(t, id, order.ID)
	require.Equal(t, userID, order.UserID)
	require.True(t, order.Amount.Equal(decimal.RequireFromString("10.00")))
	require.Equal(t, domain.OrderStatusCreated, order.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT id, user_id, amount, status, version, created_at, updated_at FROM orders WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	repo := New()
	_, err = repo.GetByID(context.Background(), db, id)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepo_AdvanceToPaymentPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery("UPDATE orders").
		WithArgs(domain.OrderStatusPaymentPending, id, domain.OrderStatusCreated).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(1)))

	repo := New()
	version, ok, err := repo.AdvanceToPaymentPending(context.Background(), db, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, version)
}

func TestOrderRepo_AdvanceToPaymentPending_AlreadyAdvanced(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery("UPDATE orders").
		WithArgs(domain.OrderStatusPaymentPending, id, domain.OrderStatusCreated).
		WillReturnError(sql.ErrNoRows)

	repo := New()
	_, ok, err := repo.AdvanceToPaymentPending(context.Background(), db, id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOrderRepo_CommitTerminal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusPaid, id, domain.OrderStatusPaymentPending, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := New()
	ok, err := repo.CommitTerminal(context.Background(), db, id, domain.OrderStatusPaid, 1)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOrderRepo_CommitTerminal_LostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusFailed, id, domain.OrderStatusPaymentPending, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := New()
	ok, err := repo.CommitTerminal(context.Background(), db, id, domain.OrderStatusFailed, 1)
	require.NoError(t, err)
	require.False(t, ok)
}
