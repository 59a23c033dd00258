package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/VBK-2102/CryptoPay/model"
	"github.com/lib/pq"
)

// uniqueViolation is the postgres error code raised by the users
// email constraint.
const uniqueViolation = "23505"

type Persistence struct {
	dbConn *sql.DB
}

func New(dbConn *sql.DB) *Persistence {
	return &Persistence{
		dbConn: dbConn,
	}
}

// Migrate creates the schema if it does not exist yet.
func (p *Persistence) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name     TEXT NOT NULL,
			is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_balances (
			user_id  BIGINT NOT NULL REFERENCES users(id),
			currency TEXT NOT NULL,
			amount   DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (amount >= 0),
			PRIMARY KEY (user_id, currency)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id               BIGSERIAL PRIMARY KEY,
			user_id          BIGINT NOT NULL REFERENCES users(id),
			kind             TEXT NOT NULL,
			amount           DOUBLE PRECISION NOT NULL,
			currency         TEXT NOT NULL,
			crypto_amount    DOUBLE PRECISION NOT NULL DEFAULT 0,
			crypto_currency  TEXT NOT NULL DEFAULT '',
			fiat_amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
			fiat_currency    TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL,
			payment_method   TEXT NOT NULL DEFAULT '',
			reference        TEXT NOT NULL DEFAULT '',
			counterparty     TEXT NOT NULL DEFAULT '',
			note             TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.dbConn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

// CreateUser implements storage.UserStore.
func (p *Persistence) CreateUser(ctx context.Context, email, passwordHash, fullName string) (model.User, error) {
	insertQuery := `INSERT INTO users (email, password_hash, full_name)
				   VALUES ($1, $2, $3)
				   RETURNING id, created_at`

	u := model.User{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
	}

	err := p.dbConn.QueryRowContext(ctx, insertQuery, email, passwordHash, fullName).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.User{}, model.ErrDuplicateEmail
		}
		return model.User{}, err
	}

	for _, c := range model.Catalog {
		_, err := p.dbConn.ExecContext(ctx,
			`INSERT INTO wallet_balances (user_id, currency) VALUES ($1, $2)`,
			u.ID, c.Code)
		if err != nil {
			return model.User{}, err
		}
	}

	return u, nil
}

// UserByEmail implements storage.UserStore.
func (p *Persistence) UserByEmail(ctx context.Context, email string) (model.User, error) {
	selectQuery := `SELECT id, email, password_hash, full_name, is_admin, created_at
				   FROM users
				   WHERE email=$1`

	return p.scanUser(p.dbConn.QueryRowContext(ctx, selectQuery, email))
}

// UserByID implements storage.UserStore.
func (p *Persistence) UserByID(ctx context.Context, id int64) (model.User, error) {
	selectQuery := `SELECT id, email, password_hash, full_name, is_admin, created_at
				   FROM users
				   WHERE id=$1`

	return p.scanUser(p.dbConn.QueryRowContext(ctx, selectQuery, id))
}

func (p *Persistence) scanUser(row *sql.Row) (model.User, error) {
	u := model.User{}

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}

	return u, err
}

// SearchUsers implements storage.UserStore.
func (p *Persistence) SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]model.User, error) {
	searchQuery := `SELECT id, email, password_hash, full_name, is_admin, created_at
				   FROM users
				   WHERE id != $1 AND (email ILIKE $2 OR full_name ILIKE $2)
				   ORDER BY id
				   LIMIT $3`

	rows, err := p.dbConn.QueryContext(ctx, searchQuery, excludeID, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return p.collectUsers(rows)
}

// AllUsers implements storage.UserStore.
func (p *Persistence) AllUsers(ctx context.Context) ([]model.User, error) {
	rows, err := p.dbConn.QueryContext(ctx,
		`SELECT id, email, password_hash, full_name, is_admin, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return p.collectUsers(rows)
}

func (p *Persistence) collectUsers(rows *sql.Rows) ([]model.User, error) {
	var users []model.User

	for rows.Next() {
		u := model.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsAdmin, &u.CreatedAt); err != nil {
			return users, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// Balance implements storage.WalletLedger.
func (p *Persistence) Balance(ctx context.Context, userID int64, code string) (float64, error) {
	var amount float64

	err := p.dbConn.QueryRowContext(ctx,
		`SELECT amount FROM wallet_balances WHERE user_id=$1 AND currency=$2`,
		userID, code).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	return amount, err
}

// Balances implements storage.WalletLedger.
func (p *Persistence) Balances(ctx context.Context, userID int64) (model.Balances, error) {
	rows, err := p.dbConn.QueryContext(ctx,
		`SELECT currency, amount FROM wallet_balances WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := model.Balances{}
	for _, c := range model.Catalog {
		balances[c.Code] = 0
	}

	for rows.Next() {
		var code string
		var amount float64
		if err := rows.Scan(&code, &amount); err != nil {
			return nil, err
		}
		balances[code] = amount
	}

	return balances, rows.Err()
}

// Credit implements storage.WalletLedger.
func (p *Persistence) Credit(ctx context.Context, userID int64, code string, amount float64) error {
	if amount < 0 {
		return model.ErrInvalidAmount
	}

	upsertQuery := `INSERT INTO wallet_balances (user_id, currency, amount)
				   VALUES ($1, $2, $3)
				   ON CONFLICT (user_id, currency)
				   DO UPDATE SET amount = wallet_balances.amount + EXCLUDED.amount`

	_, err := p.dbConn.ExecContext(ctx, upsertQuery, userID, code, amount)
	return err
}

// Debit implements storage.WalletLedger. The conditional update keeps
// the non-negative invariant inside the database.
func (p *Persistence) Debit(ctx context.Context, userID int64, code string, amount float64) error {
	if amount < 0 {
		return model.ErrInvalidAmount
	}

	debitQuery := `UPDATE wallet_balances
				  SET amount = amount - $3
				  WHERE user_id=$1 AND currency=$2 AND amount >= $3`

	res, err := p.dbConn.ExecContext(ctx, debitQuery, userID, code, amount)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrInsufficientFunds
	}

	return nil
}

// Append implements storage.TransactionLedger.
func (p *Persistence) Append(ctx context.Context, rec model.TransferRecord) (model.TransferRecord, error) {
	insertQuery := `INSERT INTO transactions
				   (user_id, kind, amount, currency, crypto_amount, crypto_currency,
				    fiat_amount, fiat_currency, status, payment_method, reference,
				    counterparty, note, created_at, updated_at)
				   VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
				   RETURNING id`

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.UpdatedAt = rec.CreatedAt

	err := p.dbConn.QueryRowContext(ctx, insertQuery,
		rec.UserID, rec.Kind, rec.Amount, rec.Currency, rec.CryptoAmount, rec.CryptoSymbol,
		rec.FiatAmount, rec.FiatCurrency, rec.Status, rec.Method, rec.Reference,
		rec.Counterparty, rec.Note, rec.CreatedAt, rec.UpdatedAt).Scan(&rec.ID)

	return rec, err
}

// ListForUser implements storage.TransactionLedger.
func (p *Persistence) ListForUser(ctx context.Context, userID int64) ([]model.TransferRecord, error) {
	rows, err := p.dbConn.QueryContext(ctx,
		selectRecords+` WHERE user_id=$1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return p.collectRecords(rows)
}

// ListAll implements storage.TransactionLedger.
func (p *Persistence) ListAll(ctx context.Context) ([]model.TransferRecord, error) {
	rows, err := p.dbConn.QueryContext(ctx, selectRecords+` ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return p.collectRecords(rows)
}

// CompletePendingDeposit implements storage.TransactionLedger. The
// status check in the predicate makes completion exactly-once.
func (p *Persistence) CompletePendingDeposit(ctx context.Context, reference string, userID int64) (model.TransferRecord, error) {
	updateQuery := `UPDATE transactions
				   SET status=$1, updated_at=NOW()
				   WHERE reference=$2 AND user_id=$3 AND kind=$4 AND status=$5
				   RETURNING id`

	var id int64
	err := p.dbConn.QueryRowContext(ctx, updateQuery,
		model.StatusCompleted, reference, userID, model.TxDeposit, model.StatusPending).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TransferRecord{}, model.ErrTransactionNotFound
	}
	if err != nil {
		return model.TransferRecord{}, err
	}

	row := p.dbConn.QueryRowContext(ctx, selectRecords+` WHERE id=$1`, id)

	rec := model.TransferRecord{}
	err = row.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Amount, &rec.Currency,
		&rec.CryptoAmount, &rec.CryptoSymbol, &rec.FiatAmount, &rec.FiatCurrency,
		&rec.Status, &rec.Method, &rec.Reference, &rec.Counterparty, &rec.Note,
		&rec.CreatedAt, &rec.UpdatedAt)

	return rec, err
}

const selectRecords = `SELECT id, user_id, kind, amount, currency, crypto_amount,
	crypto_currency, fiat_amount, fiat_currency, status, payment_method,
	reference, counterparty, note, created_at, updated_at
	FROM transactions`

func (p *Persistence) collectRecords(rows *sql.Rows) ([]model.TransferRecord, error) {
	var records []model.TransferRecord

	for rows.Next() {
		rec := model.TransferRecord{}
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Amount, &rec.Currency,
			&rec.CryptoAmount, &rec.CryptoSymbol, &rec.FiatAmount, &rec.FiatCurrency,
			&rec.Status, &rec.Method, &rec.Reference, &rec.Counterparty, &rec.Note,
			&rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
