package limits

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrLimitExceeded is the sentinel for errors.Is checks
var ErrLimitExceeded = errors.New("limit exceeded")

// ErrLimitNotConfigured means the account_limits table has no row for the
// user's tier
var ErrLimitNotConfigured = errors.New("limit not configured for tier")

// LimitError names the breached ceiling so the caller can render an
// actionable message
type LimitError struct {
	Kind      string // "transfer", "deposit", "withdrawal", "balance", "daily"
	Tier      Tier
	Limit     decimal.Decimal
	Requested decimal.Decimal
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit exceeded for tier %s: limit %s, requested %s",
		e.Kind, e.Tier, e.Limit, e.Requested)
}

func (e *LimitError) Unwrap() error { return ErrLimitExceeded }
