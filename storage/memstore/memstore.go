package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/VBK-2102/CryptoPay/model"
	"golang.org/x/crypto/bcrypt"
)

// Store holds users, wallets and the transaction ledger in process
// memory. Every method takes the store lock, so individual operations
// are atomic; multi-step settlement sequences are serialized one
// level up by the settlement engine.
type Store struct {
	mu       sync.RWMutex
	users    []model.User
	balances map[int64]model.Balances
	txs      []model.TransferRecord
	nextUser int64
	nextTx   int64
	now      func() time.Time
}

func New() *Store {
	return &Store{
		balances: make(map[int64]model.Balances),
		nextUser: 1,
		nextTx:   1,
		now:      time.Now,
	}
}

// NewSeeded returns a store pre-loaded with the two demo accounts.
func NewSeeded() (*Store, error) {
	s := New()

	seed := []struct {
		email, password, name string
		admin                 bool
	}{
		{"admin@cryptopay.com", "admin123", "Admin User", true},
		{"user@example.com", "user123", "John Doe", false},
	}

	for _, u := range seed {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}

		user, err := s.CreateUser(context.Background(), u.email, string(hash), u.name)
		if err != nil {
			return nil, err
		}

		if u.admin {
			s.mu.Lock()
			s.users[user.ID-1].IsAdmin = true
			s.mu.Unlock()
		}
	}

	return s, nil
}

// emptyWallet creates a balance map with every known currency at zero.
func emptyWallet() model.Balances {
	w := make(model.Balances, len(model.Catalog))
	for _, c := range model.Catalog {
		w[c.Code] = 0
	}
	return w
}

// CreateUser implements storage.UserStore.
func (s *Store) CreateUser(_ context.Context, email, passwordHash, fullName string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return model.User{}, model.ErrDuplicateEmail
		}
	}

	user := model.User{
		ID:           s.nextUser,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		CreatedAt:    s.now().UTC(),
	}

	s.nextUser++
	s.users = append(s.users, user)
	s.balances[user.ID] = emptyWallet()

	return user, nil
}

// UserByEmail implements storage.UserStore.
func (s *Store) UserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

// UserByID implements storage.UserStore.
func (s *Store) UserByID(_ context.Context, id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

// SearchUsers implements storage.UserStore.
func (s *Store) SearchUsers(_ context.Context, query string, excludeID int64, limit int) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	var matches []model.User
	for _, u := range s.users {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.FullName), query) ||
			strings.Contains(strings.ToLower(u.Email), query) {
			matches = append(matches, u)
			if len(matches) == limit {
				break
			}
		}
	}

	return matches, nil
}

// AllUsers implements storage.UserStore.
func (s *Store) AllUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.User(nil), s.users...), nil
}

// Balance implements storage.WalletLedger.
func (s *Store) Balance(_ context.Context, userID int64, code string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallet, ok := s.balances[userID]
	if !ok {
		return 0, model.ErrUserNotFound
	}
	return wallet[code], nil
}

// Balances implements storage.WalletLedger.
func (s *Store) Balances(_ context.Context, userID int64) (model.Balances, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallet, ok := s.balances[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return wallet.Clone(), nil
}

// Credit implements storage.WalletLedger.
func (s *Store) Credit(_ context.Context, userID int64, code string, amount float64) error {
	if amount < 0 {
		return model.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.balances[userID]
	if !ok {
		return model.ErrUserNotFound
	}

	wallet[code] += amount
	return nil
}

// Debit implements storage.WalletLedger.
func (s *Store) Debit(_ context.Context, userID int64, code string, amount float64) error {
	if amount < 0 {
		return model.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.balances[userID]
	if !ok {
		return model.ErrUserNotFound
	}

	if wallet[code] < amount {
		return model.ErrInsufficientFunds
	}

	wallet[code] -= amount
	return nil
}

// Append implements storage.TransactionLedger.
func (s *Store) Append(_ context.Context, rec model.TransferRecord) (model.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextTx
	s.nextTx++

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	s.txs = append(s.txs, rec)
	return rec, nil
}

// ListForUser implements storage.TransactionLedger.
func (s *Store) ListForUser(_ context.Context, userID int64) ([]model.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TransferRecord
	for i := len(s.txs) - 1; i >= 0; i-- {
		if s.txs[i].UserID == userID {
			out = append(out, s.txs[i])
		}
	}
	return out, nil
}

// ListAll implements storage.TransactionLedger.
func (s *Store) ListAll(_ context.Context) ([]model.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TransferRecord, 0, len(s.txs))
	for i := len(s.txs) - 1; i >= 0; i-- {
		out = append(out, s.txs[i])
	}
	return out, nil
}

// CompletePendingDeposit implements storage.TransactionLedger.
func (s *Store) CompletePendingDeposit(_ context.Context, reference string, userID int64) (model.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.txs {
		t := &s.txs[i]
		if t.Reference == reference && t.UserID == userID &&
			t.Kind == model.TxDeposit && t.Status == model.StatusPending {
			t.Status = model.StatusCompleted
			t.UpdatedAt = s.now().UTC()
			return *t, nil
		}
	}

	return model.TransferRecord{}, model.ErrTransactionNotFound
}
