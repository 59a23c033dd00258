package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("admin access required")
	ErrInvalidInput        = errors.New("invalid transaction parameters")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrUnknownCurrency     = errors.New("unknown currency")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateEmail      = errors.New("user already exists")
	ErrInsufficientFunds   = errors.New("insufficient balance")
)

// InsufficientBalanceError reports a settlement precondition failure
// together with the computed total available amount.
type InsufficientBalanceError struct {
	Available float64
	Symbol    string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance. Available: %.8f %s", e.Available, e.Symbol)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientFunds }
