package wallet

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestVerifyBalance(t *testing.T) {
	balance := decimal.NewFromInt(100)

	if err := VerifyBalance(balance, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("amount equal to balance must pass: %v", err)
	}
	if err := VerifyBalance(balance, decimal.NewFromInt(101)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := VerifyBalance(balance, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if err := VerifyBalance(balance, decimal.NewFromInt(-5)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}
