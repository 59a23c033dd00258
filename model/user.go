package model

import "time"

// User is one registered account. The wallet balance map is owned
// exclusively by the user and lives in the wallet ledger.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Balances maps currency code to a non-negative amount.
type Balances map[string]float64

// Clone returns a copy safe to hand out past the ledger lock.
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for code, amount := range b {
		out[code] = amount
	}
	return out
}

// TotalINR values the fiat portion of the balance map in the base
// unit using the fixed cross-rate table. Crypto entries are skipped.
func (b Balances) TotalINR() float64 {
	var total float64
	for code, amount := range b {
		if rate, ok := INRPerUnit(code); ok {
			total += amount * rate
		}
	}
	return total
}
