package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Method tags how a crypto send was funded.
type Method string

const (
	DirectCrypto Method = "crypto_direct"
	FiatToCrypto Method = "fiat_to_crypto"
)

// Engine performs every wallet-mutating transfer. One mutex
// serializes the read-check-mutate sequences so concurrent sends
// against the same wallet cannot interleave; rate lookups are
// resolved before the lock is taken.
type Engine struct {
	mu      sync.Mutex
	users   storage.UserStore
	wallets storage.WalletLedger
	ledger  storage.TransactionLedger
	rates   storage.RateCache
	now     func() time.Time
}

func New(users storage.UserStore, wallets storage.WalletLedger, ledger storage.TransactionLedger, rates storage.RateCache) *Engine {
	return &Engine{
		users:   users,
		wallets: wallets,
		ledger:  ledger,
		rates:   rates,
		now:     time.Now,
	}
}

// CryptoSendInput is one requested crypto transfer.
type CryptoSendInput struct {
	SenderID          int64
	RecipientID       int64
	CryptoAmount      float64
	CryptoSymbol      string
	RecipientCurrency string
	Note              string
}

// Conversion reports what the transfer settled at.
type Conversion struct {
	SentCryptoAmount     float64 `json:"sentCryptoAmount"`
	SentCryptoSymbol     string  `json:"sentCryptoSymbol"`
	ReceivedFiatAmount   float64 `json:"receivedFiatAmount"`
	ReceivedFiatCurrency string  `json:"receivedFiatCurrency"`
	ExchangeRate         string  `json:"exchangeRate"`
}

// CryptoSendResult is the success payload of SendCrypto.
type CryptoSendResult struct {
	TransactionID     string         `json:"transactionId"`
	Method            Method         `json:"sendingMethod"`
	SenderBalances    model.Balances `json:"senderNewBalances"`
	RecipientBalances model.Balances `json:"recipientNewBalances"`
	Conversion        Conversion     `json:"conversionDetails"`
}

// SendCrypto settles one crypto transfer. A sufficient direct holding
// is debited as-is; otherwise the full amount is funded by converting
// fiat in the fixed INR, USD, EUR, GBP order and any partial crypto
// holding is zeroed. The recipient is credited the equivalent fiat in
// their chosen currency. Two linked ledger records are appended.
func (e *Engine) SendCrypto(ctx context.Context, in CryptoSendInput) (CryptoSendResult, error) {
	if in.CryptoAmount <= 0 {
		return CryptoSendResult{}, model.ErrInvalidAmount
	}
	if !model.IsCrypto(in.CryptoSymbol) || !model.IsFiat(in.RecipientCurrency) {
		return CryptoSendResult{}, model.ErrUnknownCurrency
	}

	sender, err := e.users.UserByID(ctx, in.SenderID)
	if err != nil {
		return CryptoSendResult{}, err
	}
	recipient, err := e.users.UserByID(ctx, in.RecipientID)
	if err != nil {
		return CryptoSendResult{}, err
	}

	// resolve the rate before locking; Quote may hit the network
	quote, err := e.rates.Quote(ctx, in.CryptoSymbol)
	if err != nil {
		return CryptoSendResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	senderBal, err := e.wallets.Balances(ctx, sender.ID)
	if err != nil {
		return CryptoSendResult{}, err
	}

	directCrypto := senderBal[in.CryptoSymbol]
	cryptoFromFiat := senderBal.TotalINR() / quote.PriceINR
	totalAvailable := directCrypto + cryptoFromFiat

	if in.CryptoAmount > totalAvailable {
		return CryptoSendResult{}, &model.InsufficientBalanceError{
			Available: totalAvailable,
			Symbol:    in.CryptoSymbol,
		}
	}

	recipientFiatRate, _ := quote.In(in.RecipientCurrency)
	recipientFiatAmount := in.CryptoAmount * recipientFiatRate

	var method Method
	if directCrypto >= in.CryptoAmount {
		if err := e.wallets.Debit(ctx, sender.ID, in.CryptoSymbol, in.CryptoAmount); err != nil {
			return CryptoSendResult{}, fmt.Errorf("debit crypto: %w", err)
		}
		method = DirectCrypto
	} else {
		// the full requested amount is funded by converting fiat,
		// depleted in the fixed draw-down order; any direct crypto
		// holding is zeroed out as well
		remainingINR := in.CryptoAmount * quote.PriceINR

		for _, code := range model.DrawDownOrder {
			if remainingINR <= 0 {
				break
			}

			held := senderBal[code]
			if held <= 0 {
				continue
			}

			cross, _ := model.INRPerUnit(code)
			take := remainingINR / cross
			if take > held {
				take = held
			}

			if err := e.wallets.Debit(ctx, sender.ID, code, take); err != nil {
				return CryptoSendResult{}, fmt.Errorf("debit %s: %w", code, err)
			}
			remainingINR -= take * cross
		}

		if directCrypto > 0 {
			if err := e.wallets.Debit(ctx, sender.ID, in.CryptoSymbol, directCrypto); err != nil {
				return CryptoSendResult{}, fmt.Errorf("debit crypto remainder: %w", err)
			}
		}
		method = FiatToCrypto
	}

	if err := e.wallets.Credit(ctx, recipient.ID, in.RecipientCurrency, recipientFiatAmount); err != nil {
		return CryptoSendResult{}, fmt.Errorf("credit recipient: %w", err)
	}

	correlation := "CRYPTO-" + uuid.NewString()
	ts := e.now().UTC()

	note := in.Note
	if note == "" {
		note = fmt.Sprintf("Sent %.8f %s to %s", in.CryptoAmount, in.CryptoSymbol, recipient.FullName)
	}
	recvNote := in.Note
	if recvNote == "" {
		recvNote = fmt.Sprintf("Received %.8f %s as %s from %s",
			in.CryptoAmount, in.CryptoSymbol, in.RecipientCurrency, sender.FullName)
	}

	debitRec := model.TransferRecord{
		UserID:       sender.ID,
		Kind:         model.TxCryptoSend,
		Amount:       in.CryptoAmount,
		Currency:     in.CryptoSymbol,
		CryptoAmount: in.CryptoAmount,
		CryptoSymbol: in.CryptoSymbol,
		FiatAmount:   recipientFiatAmount,
		FiatCurrency: in.RecipientCurrency,
		Status:       model.StatusCompleted,
		Method:       "crypto_wallet",
		Reference:    correlation,
		Counterparty: recipient.Email,
		Note:         note,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	creditRec := model.TransferRecord{
		UserID:       recipient.ID,
		Kind:         model.TxCryptoReceive,
		Amount:       recipientFiatAmount,
		Currency:     in.RecipientCurrency,
		CryptoAmount: in.CryptoAmount,
		CryptoSymbol: in.CryptoSymbol,
		FiatAmount:   recipientFiatAmount,
		FiatCurrency: in.RecipientCurrency,
		Status:       model.StatusCompleted,
		Method:       "crypto_conversion",
		Reference:    correlation,
		Counterparty: sender.Email,
		Note:         recvNote,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	if _, err := e.ledger.Append(ctx, debitRec); err != nil {
		return CryptoSendResult{}, fmt.Errorf("append debit record: %w", err)
	}
	if _, err := e.ledger.Append(ctx, creditRec); err != nil {
		return CryptoSendResult{}, fmt.Errorf("append credit record: %w", err)
	}

	newSenderBal, err := e.wallets.Balances(ctx, sender.ID)
	if err != nil {
		return CryptoSendResult{}, err
	}
	newRecipientBal, err := e.wallets.Balances(ctx, recipient.ID)
	if err != nil {
		return CryptoSendResult{}, err
	}

	log.Debug().
		Int64("sender", sender.ID).
		Int64("recipient", recipient.ID).
		Float64("cryptoAmount", in.CryptoAmount).
		Str("symbol", in.CryptoSymbol).
		Str("method", string(method)).
		Msg("crypto transfer settled")

	return CryptoSendResult{
		TransactionID:     correlation,
		Method:            method,
		SenderBalances:    newSenderBal,
		RecipientBalances: newRecipientBal,
		Conversion: Conversion{
			SentCryptoAmount:     in.CryptoAmount,
			SentCryptoSymbol:     in.CryptoSymbol,
			ReceivedFiatAmount:   recipientFiatAmount,
			ReceivedFiatCurrency: in.RecipientCurrency,
			ExchangeRate: fmt.Sprintf("1 %s = %.2f %s",
				in.CryptoSymbol, recipientFiatAmount/in.CryptoAmount, in.RecipientCurrency),
		},
	}, nil
}

// FiatSendResult is the success payload of SendFiat.
type FiatSendResult struct {
	TransactionID  string         `json:"transactionId"`
	SenderBalances model.Balances `json:"newBalances"`
}

// SendFiat settles a fiat-only peer transfer in one currency.
func (e *Engine) SendFiat(ctx context.Context, senderID, recipientID int64, amount float64, currency, note string) (FiatSendResult, error) {
	if amount <= 0 {
		return FiatSendResult{}, model.ErrInvalidAmount
	}
	if !model.IsFiat(currency) {
		return FiatSendResult{}, model.ErrUnknownCurrency
	}

	sender, err := e.users.UserByID(ctx, senderID)
	if err != nil {
		return FiatSendResult{}, err
	}
	recipient, err := e.users.UserByID(ctx, recipientID)
	if err != nil {
		return FiatSendResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.wallets.Debit(ctx, sender.ID, currency, amount); err != nil {
		return FiatSendResult{}, err
	}
	if err := e.wallets.Credit(ctx, recipient.ID, currency, amount); err != nil {
		return FiatSendResult{}, fmt.Errorf("credit recipient: %w", err)
	}

	correlation := "TXN-" + uuid.NewString()
	ts := e.now().UTC()

	outNote := note
	if outNote == "" {
		outNote = fmt.Sprintf("Transfer to %s", recipient.FullName)
	}
	inNote := note
	if inNote == "" {
		inNote = fmt.Sprintf("Transfer from %s", sender.FullName)
	}

	out := model.TransferRecord{
		UserID: sender.ID, Kind: model.TxTransferOut,
		Amount: amount, Currency: currency,
		Status: model.StatusCompleted, Method: "wallet",
		Reference: correlation, Counterparty: recipient.Email,
		Note: outNote, CreatedAt: ts, UpdatedAt: ts,
	}
	in := model.TransferRecord{
		UserID: recipient.ID, Kind: model.TxTransferIn,
		Amount: amount, Currency: currency,
		Status: model.StatusCompleted, Method: "wallet",
		Reference: correlation, Counterparty: sender.Email,
		Note: inNote, CreatedAt: ts, UpdatedAt: ts,
	}

	if _, err := e.ledger.Append(ctx, out); err != nil {
		return FiatSendResult{}, fmt.Errorf("append debit record: %w", err)
	}
	if _, err := e.ledger.Append(ctx, in); err != nil {
		return FiatSendResult{}, fmt.Errorf("append credit record: %w", err)
	}

	newBal, err := e.wallets.Balances(ctx, sender.ID)
	if err != nil {
		return FiatSendResult{}, err
	}

	return FiatSendResult{TransactionID: correlation, SenderBalances: newBal}, nil
}

// WithdrawResult is the success payload of Withdraw.
type WithdrawResult struct {
	TransactionID string         `json:"transactionId"`
	Balances      model.Balances `json:"newBalances"`
}

// Withdraw debits one currency from the wallet and records it.
func (e *Engine) Withdraw(ctx context.Context, userID int64, amount float64, currency string) (WithdrawResult, error) {
	if amount <= 0 {
		return WithdrawResult{}, model.ErrInvalidAmount
	}
	if _, ok := model.Lookup(currency); !ok {
		return WithdrawResult{}, model.ErrUnknownCurrency
	}

	user, err := e.users.UserByID(ctx, userID)
	if err != nil {
		return WithdrawResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.wallets.Debit(ctx, user.ID, currency, amount); err != nil {
		return WithdrawResult{}, err
	}

	correlation := "WTD-" + uuid.NewString()
	ts := e.now().UTC()

	rec := model.TransferRecord{
		UserID: user.ID, Kind: model.TxWithdrawal,
		Amount: amount, Currency: currency,
		Status: model.StatusCompleted, Method: "bank_transfer",
		Reference: correlation,
		Note:      fmt.Sprintf("Withdrawal of %s %.2f", currency, amount),
		CreatedAt: ts, UpdatedAt: ts,
	}

	if _, err := e.ledger.Append(ctx, rec); err != nil {
		return WithdrawResult{}, fmt.Errorf("append record: %w", err)
	}

	balances, err := e.wallets.Balances(ctx, user.ID)
	if err != nil {
		return WithdrawResult{}, err
	}

	return WithdrawResult{TransactionID: correlation, Balances: balances}, nil
}
