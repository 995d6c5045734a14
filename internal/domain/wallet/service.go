package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// GetForUser returns the user's wallet, creating it on first use
func (s *Service) GetForUser(ctx context.Context, userID uuid.UUID, currency string) (*Wallet, error) {
	if err := s.repo.EnsureWallet(ctx, userID, currency); err != nil {
		return nil, err
	}
	return s.repo.GetByUserID(ctx, userID)
}

// GetByUserID returns the user's wallet without creating it
func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// Debit subtracts amount from the wallet, failing without mutation when the
// balance is insufficient
func (s *Service) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	if err := s.repo.Debit(ctx, walletID, amount); err != nil {
		return err
	}
	log.Info().Str("wallet_id", walletID.String()).Str("amount", amount.String()).Msg("wallet debit applied")
	return nil
}

// Credit adds amount to the wallet
func (s *Service) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	if err := s.repo.Credit(ctx, walletID, amount); err != nil {
		return err
	}
	log.Info().Str("wallet_id", walletID.String()).Str("amount", amount.String()).Msg("wallet credit applied")
	return nil
}

// Transfer atomically moves amount between two wallets
func (s *Service) Transfer(ctx context.Context, sourceID, destID uuid.UUID, amount decimal.Decimal) error {
	if err := s.repo.Transfer(ctx, sourceID, destID, amount); err != nil {
		return err
	}
	log.Info().
		Str("source_wallet", sourceID.String()).
		Str("dest_wallet", destID.String()).
		Str("amount", amount.String()).
		Msg("wallet transfer applied")
	return nil
}
