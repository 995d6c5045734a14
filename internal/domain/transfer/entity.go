package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the operation a pending payload belongs to. One-time codes are
// keyed per user per kind, so a transfer code can never verify a withdrawal.
type Kind string

const (
	KindTransfer   Kind = "TRANSFER"
	KindWithdrawal Kind = "WITHDRAWAL"
)

// Pending is the payload parked behind an opaque single-use token between
// initiate and verify. It lives only in the expiring store, never in the
// ledger database.
type Pending struct {
	Kind             Kind            `json:"kind"`
	SenderID         uuid.UUID       `json:"sender_id"`
	SenderWalletID   uuid.UUID       `json:"sender_wallet_id"`
	ReceiverID       uuid.UUID       `json:"receiver_id,omitempty"`
	ReceiverWalletID uuid.UUID       `json:"receiver_wallet_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description,omitempty"`
	AccountName      string          `json:"account_name,omitempty"`
	AccountIBAN      string          `json:"account_iban,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Receipt is what a successful verify returns
type Receipt struct {
	Reference string          `json:"reference"`
	Kind      Kind            `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	At        time.Time       `json:"at"`
}
