package limits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/finvault-api/internal/domain/wallet"
)

// KYCReader answers which document kinds a user has approved. The kyc
// service satisfies this.
type KYCReader interface {
	ApprovalState(ctx context.Context, userID uuid.UUID) (identity, address bool, err error)
}

// BalanceReader resolves a user's wallet for balance-ceiling checks
type BalanceReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
}

// Service derives verification tiers and enforces the tier's ceilings
type Service struct {
	repo     *Repository
	kyc      KYCReader
	balances BalanceReader
}

func NewService(repo *Repository, kyc KYCReader, balances BalanceReader) *Service {
	return &Service{repo: repo, kyc: kyc, balances: balances}
}

// VerificationLevel resolves a user's tier. A per-user override wins;
// otherwise the tier follows KYC approval state.
func (s *Service) VerificationLevel(ctx context.Context, userID uuid.UUID) (Tier, error) {
	override, err := s.repo.GetOverride(ctx, userID)
	if err != nil {
		return 0, err
	}
	if override != nil {
		return *override, nil
	}

	identity, address, err := s.kyc.ApprovalState(ctx, userID)
	if err != nil {
		return 0, err
	}
	switch {
	case identity && address:
		return TierFullyVerified, nil
	case identity:
		return TierIDVerified, nil
	default:
		return TierEmailVerified, nil
	}
}

// limitFor resolves the ceilings for a user's tier. The top tier returns a
// nil limit, meaning every check passes.
func (s *Service) limitFor(ctx context.Context, userID uuid.UUID) (Tier, *AccountLimit, error) {
	tier, err := s.VerificationLevel(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	if tier == TierFullyVerified {
		return tier, nil, nil
	}
	limit, err := s.repo.GetLimit(ctx, tier)
	if err != nil {
		return 0, nil, err
	}
	return tier, limit, nil
}

func (s *Service) WouldExceedTransferLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	tier, limit, err := s.limitFor(ctx, userID)
	if err != nil || limit == nil {
		return err
	}
	if amount.GreaterThan(limit.TransferLimit) {
		return &LimitError{Kind: "transfer", Tier: tier, Limit: limit.TransferLimit, Requested: amount}
	}
	return nil
}

func (s *Service) WouldExceedDepositLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	tier, limit, err := s.limitFor(ctx, userID)
	if err != nil || limit == nil {
		return err
	}
	if amount.GreaterThan(limit.DepositLimit) {
		return &LimitError{Kind: "deposit", Tier: tier, Limit: limit.DepositLimit, Requested: amount}
	}
	return nil
}

func (s *Service) WouldExceedWithdrawalLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	tier, limit, err := s.limitFor(ctx, userID)
	if err != nil || limit == nil {
		return err
	}
	if amount.GreaterThan(limit.WithdrawalLimit) {
		return &LimitError{Kind: "withdrawal", Tier: tier, Limit: limit.WithdrawalLimit, Requested: amount}
	}
	return nil
}

// WouldExceedBalanceLimit checks the balance the wallet would hold after a
// credit against the tier's ceiling
func (s *Service) WouldExceedBalanceLimit(ctx context.Context, userID uuid.UUID, newBalance decimal.Decimal) error {
	tier, limit, err := s.limitFor(ctx, userID)
	if err != nil || limit == nil {
		return err
	}
	if newBalance.GreaterThan(limit.BalanceLimit) {
		return &LimitError{Kind: "balance", Tier: tier, Limit: limit.BalanceLimit, Requested: newBalance}
	}
	return nil
}

// WouldExceedDailyLimit checks the day's running total plus amount against
// the tier's daily cap
func (s *Service) WouldExceedDailyLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	tier, limit, err := s.limitFor(ctx, userID)
	if err != nil || limit == nil {
		return err
	}
	spent, err := s.repo.DailyTotal(ctx, userID, time.Now().UTC())
	if err != nil {
		return err
	}
	if spent.Add(amount).GreaterThan(limit.DailyLimit) {
		return &LimitError{Kind: "daily", Tier: tier, Limit: limit.DailyLimit, Requested: spent.Add(amount)}
	}
	return nil
}

// RecordTransaction adds a completed movement to the day's running total
func (s *Service) RecordTransaction(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return s.repo.AddToDailyTotal(ctx, userID, time.Now().UTC(), amount)
}

// CheckDeposit vets a pay-in against both the deposit ceiling and the
// post-credit balance ceiling
func (s *Service) CheckDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if err := s.WouldExceedDepositLimit(ctx, userID, amount); err != nil {
		return err
	}
	wlt, err := s.balances.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return s.WouldExceedBalanceLimit(ctx, userID, wlt.Balance.Add(amount))
}

// Overview packages everything the limits endpoint renders
type Overview struct {
	Tier       Tier             `json:"-"`
	TierName   string           `json:"tier"`
	Limits     *AccountLimit    `json:"limits,omitempty"`
	SpentToday decimal.Decimal  `json:"spent_today"`
	Remaining  *decimal.Decimal `json:"remaining_today,omitempty"`
}

// Overview returns the caller's tier, ceilings and today's usage. The top
// tier reports no ceilings.
func (s *Service) Overview(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	tier, limit, err := s.limitFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	spent, err := s.repo.DailyTotal(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	o := &Overview{Tier: tier, TierName: tier.String(), Limits: limit, SpentToday: spent}
	if limit != nil {
		remaining := decimal.Max(limit.DailyLimit.Sub(spent), decimal.Zero)
		o.Remaining = &remaining
	}
	return o, nil
}

// SetOverride pins a user to a tier, admin only
func (s *Service) SetOverride(ctx context.Context, userID uuid.UUID, tier Tier) error {
	return s.repo.SetOverride(ctx, userID, tier)
}

func (s *Service) ClearOverride(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteOverride(ctx, userID)
}
