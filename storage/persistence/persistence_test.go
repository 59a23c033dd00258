package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/VBK-2102/CryptoPay/model"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Persistence, sqlmock.Sqlmock) {
	t.Helper()

	dbConn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })

	return New(dbConn), mock
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	p, mock := newMock(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice@example.com", "hash", "Alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))
	for range model.Catalog {
		mock.ExpectExec("INSERT INTO wallet_balances").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	u, err := p.CreateUser(context.Background(), "alice@example.com", "hash", "Alice")
	require.NoError(t, err)
	assert.EqualValues(t, 7, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	p, mock := newMock(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := p.CreateUser(context.Background(), "alice@example.com", "hash", "Alice")
	assert.ErrorIs(t, err, model.ErrDuplicateEmail)
}

func TestUserByEmail_NotFound(t *testing.T) {
	t.Parallel()

	p, mock := newMock(t)

	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := p.UserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestDebit(t *testing.T) {
	t.Parallel()

	p, mock := newMock(t)

	mock.ExpectExec("UPDATE wallet_balances").
		WithArgs(int64(1), "INR", 100.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.Debit(context.Background(), 1, "INR", 100))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_Insufficient(t *testing.T) {
	t.Parallel()

	p, mock := newMock(t)

	// the conditional update matches no row when the balance is short
	mock.ExpectExec("UPDATE wallet_balances").
		WithArgs(int64(1), "INR", 100.0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.Debit(context.Background(), 1, "INR", 100)
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
}

func TestDebit_NegativeAmount(t *testing.T) {
	t.Parallel()

	p, _ := newMock(t)

	err := p.Debit(context.Background(), 1, "INR", -5)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestCompletePendingDeposit_NotFound(t *testing.T) {
	t.Parallel()

	p, mock := newMock(t)

	mock.ExpectQuery("UPDATE transactions").
		WillReturnError(sql.ErrNoRows)

	_, err := p.CompletePendingDeposit(context.Background(), "TXN1", 1)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
}

func TestBalances_FillsCatalog(t *testing.T) {
	t.Parallel()

	p, mock := newMock(t)

	mock.ExpectQuery("SELECT currency, amount FROM wallet_balances").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"currency", "amount"}).AddRow("INR", 250.0))

	balances, err := p.Balances(context.Background(), 1)
	require.NoError(t, err)

	// a row exists only for INR, every other catalog currency reads zero
	assert.Len(t, balances, len(model.Catalog))
	assert.InDelta(t, 250, balances["INR"], 1e-9)
	assert.Zero(t, balances["BTC"])
}
