package wallet

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrSameWallet          = errors.New("source and destination wallet are the same")
	ErrWalletFlagged       = errors.New("wallet is flagged for review")
	ErrCurrencyMismatch    = errors.New("wallet currencies do not match")
)
