package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the signed side of a ledger leg
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// Type is the business operation a leg belongs to
type Type string

const (
	TypeTransfer   Type = "TRANSFER"
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeRefund     Type = "REFUND"
	TypeReversal   Type = "REVERSAL"
)

// Status is the lifecycle state of a leg
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// RefundStatus tracks how much of a deposit leg is still refundable.
// Only meaningful on DEPOSIT legs.
type RefundStatus string

const (
	RefundFully     RefundStatus = "FULLY_REFUNDABLE"
	RefundPartially RefundStatus = "PARTIALLY_REFUNDABLE"
	RefundNone      RefundStatus = "NON_REFUNDABLE"
)

// Transaction is one ledger leg. A transfer always produces two legs (debit
// plus credit) sharing one reference code; a deposit or withdrawal produces
// one. REFUND and REVERSAL legs point back at the deposit they act on
// through RelatedID.
type Transaction struct {
	ID               uuid.UUID        `db:"id"`
	WalletID         uuid.UUID        `db:"wallet_id"`
	Direction        Direction        `db:"direction"`
	Type             Type             `db:"type"`
	Amount           decimal.Decimal  `db:"amount"`
	Status           Status           `db:"status"`
	Reference        string           `db:"reference"`
	RefundableAmount *decimal.Decimal `db:"refundable_amount"`
	RefundStatus     *RefundStatus    `db:"refund_status"`
	RelatedID        *uuid.UUID       `db:"related_transaction_id"`
	Flagged          bool             `db:"flagged"`
	Description      string           `db:"description"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
}

// ReferenceLink binds the legs that share a reference code.
// A reference code is never reused.
type ReferenceLink struct {
	Reference   string     `db:"reference"`
	DebitLegID  *uuid.UUID `db:"debit_leg_id"`
	CreditLegID *uuid.UUID `db:"credit_leg_id"`
	CreatedAt   time.Time  `db:"created_at"`
}
