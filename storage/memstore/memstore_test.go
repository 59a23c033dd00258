package memstore

import (
	"context"
	"testing"

	"github.com/VBK-2102/CryptoPay/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	t.Parallel()

	s := New()

	u, err := s.CreateUser(context.Background(), "alice@example.com", "hash", "Alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, u.ID)
	assert.False(t, u.IsAdmin)

	// the new wallet carries every catalog currency at zero
	balances, err := s.Balances(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Len(t, balances, len(model.Catalog))
	for code, amount := range balances {
		assert.Zerof(t, amount, "currency %s", code)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	s := New()

	_, err := s.CreateUser(context.Background(), "alice@example.com", "hash", "Alice")
	require.NoError(t, err)

	_, err = s.CreateUser(context.Background(), "ALICE@example.com", "hash", "Alice Again")
	assert.ErrorIs(t, err, model.ErrDuplicateEmail)
}

func TestNewSeeded(t *testing.T) {
	t.Parallel()

	s, err := NewSeeded()
	require.NoError(t, err)

	admin, err := s.UserByEmail(context.Background(), "admin@cryptopay.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")))

	demo, err := s.UserByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.False(t, demo.IsAdmin)
	assert.Equal(t, "John Doe", demo.FullName)
}

func TestSearchUsers(t *testing.T) {
	t.Parallel()

	s := New()
	alice, err := s.CreateUser(context.Background(), "alice@example.com", "hash", "Alice Smith")
	require.NoError(t, err)
	_, err = s.CreateUser(context.Background(), "bob@example.com", "hash", "Bob Smith")
	require.NoError(t, err)

	// caller excluded from their own matches
	matches, err := s.SearchUsers(context.Background(), "smith", alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "bob@example.com", matches[0].Email)

	// blank query matches nobody
	matches, err = s.SearchUsers(context.Background(), "   ", alice.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = s.SearchUsers(context.Background(), "smith", 0, 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestDebitCredit(t *testing.T) {
	t.Parallel()

	s := New()
	u, err := s.CreateUser(context.Background(), "alice@example.com", "hash", "Alice")
	require.NoError(t, err)

	require.NoError(t, s.Credit(context.Background(), u.ID, "INR", 500))

	err = s.Debit(context.Background(), u.ID, "INR", 600)
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	// the failed debit left the balance untouched
	amount, err := s.Balance(context.Background(), u.ID, "INR")
	require.NoError(t, err)
	assert.InDelta(t, 500, amount, 1e-9)

	require.NoError(t, s.Debit(context.Background(), u.ID, "INR", 500))
	amount, err = s.Balance(context.Background(), u.ID, "INR")
	require.NoError(t, err)
	assert.Zero(t, amount)

	assert.ErrorIs(t, s.Credit(context.Background(), u.ID, "INR", -1), model.ErrInvalidAmount)
	assert.ErrorIs(t, s.Debit(context.Background(), u.ID, "INR", -1), model.ErrInvalidAmount)
	assert.ErrorIs(t, s.Credit(context.Background(), 999, "INR", 1), model.ErrUserNotFound)
}

func TestBalancesReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	u, err := s.CreateUser(context.Background(), "alice@example.com", "hash", "Alice")
	require.NoError(t, err)
	require.NoError(t, s.Credit(context.Background(), u.ID, "USD", 10))

	balances, err := s.Balances(context.Background(), u.ID)
	require.NoError(t, err)
	balances["USD"] = 9999

	amount, err := s.Balance(context.Background(), u.ID, "USD")
	require.NoError(t, err)
	assert.InDelta(t, 10, amount, 1e-9)
}

func TestLedgerOrdering(t *testing.T) {
	t.Parallel()

	s := New()

	for _, ref := range []string{"first", "second", "third"} {
		_, err := s.Append(context.Background(), model.TransferRecord{
			UserID: 1, Kind: model.TxDeposit, Amount: 1, Currency: "INR",
			Status: model.StatusCompleted, Reference: ref,
		})
		require.NoError(t, err)
	}

	records, err := s.ListForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].Reference)
	assert.Equal(t, "first", records[2].Reference)

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCompletePendingDeposit(t *testing.T) {
	t.Parallel()

	s := New()

	rec, err := s.Append(context.Background(), model.TransferRecord{
		UserID: 1, Kind: model.TxDeposit, Amount: 100, Currency: "INR",
		Status: model.StatusPending, Reference: "TXN123",
	})
	require.NoError(t, err)

	completed, err := s.CompletePendingDeposit(context.Background(), "TXN123", 1)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, completed.ID)
	assert.Equal(t, model.StatusCompleted, completed.Status)

	// a second confirmation of the same reference finds nothing pending
	_, err = s.CompletePendingDeposit(context.Background(), "TXN123", 1)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)

	// wrong user cannot complete someone else's deposit
	_, err = s.CompletePendingDeposit(context.Background(), "TXN123", 2)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
}
