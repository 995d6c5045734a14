package limits

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is the verification level an account sits at. Higher tiers get
// higher ceilings; the top tier is exempt from every check.
type Tier int

const (
	TierEmailVerified Tier = 1
	TierIDVerified    Tier = 2
	TierFullyVerified Tier = 3
)

func (t Tier) String() string {
	switch t {
	case TierEmailVerified:
		return "EMAIL_VERIFIED"
	case TierIDVerified:
		return "ID_VERIFIED"
	case TierFullyVerified:
		return "FULLY_VERIFIED"
	}
	return "UNKNOWN"
}

// AccountLimit holds one tier's ceilings
type AccountLimit struct {
	Tier            Tier            `db:"tier"`
	DailyLimit      decimal.Decimal `db:"daily_limit"`
	BalanceLimit    decimal.Decimal `db:"balance_limit"`
	DepositLimit    decimal.Decimal `db:"deposit_limit"`
	WithdrawalLimit decimal.Decimal `db:"withdrawal_limit"`
	TransferLimit   decimal.Decimal `db:"transfer_limit"`
}

// DailyTotal is a user's running sum for one calendar day
type DailyTotal struct {
	UserID    uuid.UUID       `db:"user_id"`
	Day       time.Time       `db:"day"`
	Total     decimal.Decimal `db:"total"`
	UpdatedAt time.Time       `db:"updated_at"`
}
