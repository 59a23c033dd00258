package model

import "time"

type TxKind string

const (
	TxDeposit       TxKind = "deposit"
	TxWithdrawal    TxKind = "withdrawal"
	TxTransferIn    TxKind = "transfer_in"
	TxTransferOut   TxKind = "transfer_out"
	TxCryptoSend    TxKind = "crypto_send"
	TxCryptoReceive TxKind = "crypto_receive_as_fiat"
)

type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusCompleted TxStatus = "completed"
)

// TransferRecord is one ledger entry. Records are append-only; the
// single permitted mutation is a deposit moving from pending to completed.
// Reference carries the correlation id shared by the paired entries
// of a transfer.
type TransferRecord struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Kind         TxKind    `json:"type"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	CryptoAmount float64   `json:"crypto_amount,omitempty"`
	CryptoSymbol string    `json:"crypto_currency,omitempty"`
	FiatAmount   float64   `json:"fiat_amount,omitempty"`
	FiatCurrency string    `json:"fiat_currency,omitempty"`
	Status       TxStatus  `json:"status"`
	Method       string    `json:"payment_method"`
	Reference    string    `json:"transaction_hash"`
	Counterparty string    `json:"receiver_address,omitempty"`
	Note         string    `json:"upi_reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
