package storage

import (
	"context"
	"time"

	"github.com/VBK-2102/CryptoPay/model"
)

// UserStore describes account lookup and registration.
type UserStore interface {
	// CreateUser registers a new account. Returns
	// model.ErrDuplicateEmail when the email is taken.
	CreateUser(ctx context.Context, email, passwordHash, fullName string) (model.User, error)

	UserByEmail(ctx context.Context, email string) (model.User, error)
	UserByID(ctx context.Context, id int64) (model.User, error)

	// SearchUsers matches name or email substrings, case-insensitive,
	// excluding excludeID, capped at limit results.
	SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]model.User, error)

	AllUsers(ctx context.Context) ([]model.User, error)
}

// WalletLedger is the single source of truth for balances. All
// mutation goes through Credit and Debit so the non-negative
// invariant is enforced in one place.
type WalletLedger interface {
	// Balance returns the amount held in one currency, 0 if absent.
	Balance(ctx context.Context, userID int64, code string) (float64, error)

	// Balances returns a copy of the full balance map.
	Balances(ctx context.Context, userID int64) (model.Balances, error)

	Credit(ctx context.Context, userID int64, code string, amount float64) error

	// Debit fails with model.ErrInsufficientFunds when amount
	// exceeds the held balance; the balance is left untouched.
	Debit(ctx context.Context, userID int64, code string, amount float64) error
}

// TransactionLedger is the append-only transfer history. The single
// permitted update is a pending deposit completing.
type TransactionLedger interface {
	// Append stores the record and returns it with an assigned id.
	Append(ctx context.Context, rec model.TransferRecord) (model.TransferRecord, error)

	// ListForUser returns the user's records, newest first.
	ListForUser(ctx context.Context, userID int64) ([]model.TransferRecord, error)

	// ListAll returns every record, newest first. Admin use.
	ListAll(ctx context.Context) ([]model.TransferRecord, error)

	// CompletePendingDeposit transitions the deposit matching the
	// reference, user and pending status to completed, exactly once.
	// Any other state returns model.ErrTransactionNotFound.
	CompletePendingDeposit(ctx context.Context, reference string, userID int64) (model.TransferRecord, error)
}

// CacheStatus reports the freshness of the held price snapshot.
type CacheStatus struct {
	Cached bool          `json:"cached"`
	Age    time.Duration `json:"age"`
	Source string        `json:"source"`
}

// RateCache fronts the upstream price feeds. Snapshot never fails:
// upstream errors cascade to the stale snapshot and finally to a
// fixed fallback table, visible only through the provenance tag.
type RateCache interface {
	Snapshot(ctx context.Context) model.PriceSnapshot

	// Quote returns the current quote for one crypto symbol,
	// model.ErrUnknownCurrency if the symbol is not quoted.
	Quote(ctx context.Context, symbol string) (model.PriceQuote, error)

	Status() CacheStatus
}
