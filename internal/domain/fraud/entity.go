package fraud

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Candidate is an outgoing movement presented to the monitor before any
// ledger write happens
type Candidate struct {
	WalletID uuid.UUID
	UserID   uuid.UUID
	Amount   decimal.Decimal
	Balance  decimal.Decimal
	Kind     string // TRANSFER or WITHDRAWAL
	At       time.Time
}

// Check is one persisted rule trigger
type Check struct {
	ID        uuid.UUID       `db:"id"`
	WalletID  uuid.UUID       `db:"wallet_id"`
	Rule      string          `db:"rule"`
	Reason    string          `db:"reason"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
}
