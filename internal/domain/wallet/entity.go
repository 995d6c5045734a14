package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a user's balance. One wallet per user, created on first use,
// never physically deleted. The balance is only ever mutated through the
// repository's locked debit/credit primitives.
type Wallet struct {
	ID        uuid.UUID       `db:"id"`
	UserID    uuid.UUID       `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	Currency  string          `db:"currency"`
	Flagged   bool            `db:"flagged"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// VerifyBalance is the pure guard callers use to pre-check an amount against
// a balance before building a multi-step operation. The repository re-checks
// under lock, so this is advisory only.
func VerifyBalance(balance, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	return nil
}
