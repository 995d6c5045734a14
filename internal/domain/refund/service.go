package refund

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/finvault/finvault-api/internal/domain/transaction"
	"github.com/finvault/finvault-api/internal/domain/wallet"
	"github.com/finvault/finvault-api/internal/pkg/settlement"
)

// Service is the refund ledger: it tracks how much of each deposit remains
// refundable as outgoing spend consumes it, oldest deposit first.
type Service struct {
	wallets  *wallet.Repository
	ledger   *transaction.Repository
	rail     settlement.Provider
	notifier Notifier
	limits   LimitChecker
}

// Notifier queues refund emails; fire-and-forget
type Notifier interface {
	RefundProcessed(ctx context.Context, walletUserID uuid.UUID, amount decimal.Decimal, currency, reference string)
}

// LimitChecker vets pay-ins against the user's account tier before a
// deposit leg is opened
type LimitChecker interface {
	CheckDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
}

func NewService(wallets *wallet.Repository, ledger *transaction.Repository, rail settlement.Provider, notifier Notifier, limits LimitChecker) *Service {
	return &Service{wallets: wallets, ledger: ledger, rail: rail, notifier: notifier, limits: limits}
}

// RecordDeposit books an external pay-in: credits the wallet and writes a
// CREDIT/DEPOSIT leg carrying the full amount as refundable.
func (s *Service) RecordDeposit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, description string) (*transaction.Transaction, error) {
	if !amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}

	reference, err := s.ledger.GenerateReference(ctx)
	if err != nil {
		return nil, err
	}

	refundable := amount
	status := transaction.RefundFully
	leg := &transaction.Transaction{
		WalletID:         walletID,
		Direction:        transaction.DirectionCredit,
		Type:             transaction.TypeDeposit,
		Amount:           amount,
		Status:           transaction.StatusSuccess,
		Reference:        reference,
		RefundableAmount: &refundable,
		RefundStatus:     &status,
		Description:      description,
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.wallets.CreditTx(ctx, tx, walletID, amount); err != nil {
			return err
		}
		return s.ledger.InsertTx(ctx, tx, leg)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("wallet_id", walletID.String()).
		Str("amount", amount.String()).
		Str("reference", reference).
		Msg("deposit recorded")
	return leg, nil
}

// InitiateDeposit opens an async pay-in: a PENDING CREDIT/DEPOSIT leg whose
// reference the rail echoes back in its settlement webhook. No balance moves
// until CompleteDeposit.
func (s *Service) InitiateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*transaction.Transaction, error) {
	if !amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}

	wlt, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.limits != nil {
		if err := s.limits.CheckDeposit(ctx, userID, amount); err != nil {
			return nil, err
		}
	}
	walletID := wlt.ID

	reference, err := s.ledger.GenerateReference(ctx)
	if err != nil {
		return nil, err
	}

	leg := &transaction.Transaction{
		WalletID:    walletID,
		Direction:   transaction.DirectionCredit,
		Type:        transaction.TypeDeposit,
		Amount:      amount,
		Status:      transaction.StatusPending,
		Reference:   reference,
		Description: description,
	}
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.ledger.InsertTx(ctx, tx, leg)
	})
	if err != nil {
		return nil, err
	}
	return leg, nil
}

// CompleteDeposit settles a pending pay-in from a rail webhook. Redeliveries
// are no-ops once the leg is SUCCESS.
func (s *Service) CompleteDeposit(ctx context.Context, reference string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		leg, err := s.lockDepositLegTx(ctx, tx, reference)
		if err != nil {
			return err
		}
		if leg.Status == transaction.StatusSuccess {
			return nil
		}
		if leg.Status == transaction.StatusFailed {
			return fmt.Errorf("deposit %s already failed", reference)
		}

		if err := s.ledger.UpdateStatusTx(ctx, tx, leg.ID, transaction.StatusSuccess); err != nil {
			return err
		}
		if err := s.ledger.UpdateRefundableTx(ctx, tx, leg.ID, leg.Amount, transaction.RefundFully); err != nil {
			return err
		}
		return s.wallets.CreditTx(ctx, tx, leg.WalletID, leg.Amount)
	})
}

// FailDeposit marks a pending pay-in as rejected by the rail
func (s *Service) FailDeposit(ctx context.Context, reference string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		leg, err := s.lockDepositLegTx(ctx, tx, reference)
		if err != nil {
			return err
		}
		if leg.Status != transaction.StatusPending {
			return nil
		}
		return s.ledger.UpdateStatusTx(ctx, tx, leg.ID, transaction.StatusFailed)
	})
}

func (s *Service) lockDepositLegTx(ctx context.Context, tx *sqlx.Tx, reference string) (*transaction.Transaction, error) {
	legs, err := s.ledger.LockByReferenceTx(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	for i := range legs {
		if legs[i].Type == transaction.TypeDeposit {
			return &legs[i], nil
		}
	}
	return nil, transaction.ErrTransactionNotFound
}

// RecordSpendTx consumes refundable amounts against an outgoing spend inside
// an external transaction. Deposits are walked oldest first; a deposit drained
// to zero becomes NON_REFUNDABLE, a partially consumed one
// PARTIALLY_REFUNDABLE, untouched deposits are unaffected. Spend larger than
// the remaining refundable total simply exhausts it.
func (s *Service) RecordSpendTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return wallet.ErrInvalidAmount
	}

	deposits, err := s.ledger.ListRefundableDepositsTx(ctx, tx, walletID)
	if err != nil {
		return err
	}

	remaining := amount
	for _, dep := range deposits {
		if !remaining.IsPositive() {
			break
		}
		if dep.RefundableAmount == nil || !dep.RefundableAmount.IsPositive() {
			continue
		}

		consumed := decimal.Min(*dep.RefundableAmount, remaining)
		left := dep.RefundableAmount.Sub(consumed)

		status := transaction.RefundPartially
		if left.IsZero() {
			status = transaction.RefundNone
		}
		if err := s.ledger.UpdateRefundableTx(ctx, tx, dep.ID, left, status); err != nil {
			return err
		}
		remaining = remaining.Sub(consumed)
	}
	return nil
}

// RecordSpend runs RecordSpendTx in its own transaction
func (s *Service) RecordSpend(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.RecordSpendTx(ctx, tx, walletID, amount)
	})
}

// RefundableTotal reports how much of the caller's deposits can still be
// sent back
func (s *Service) RefundableTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	wlt, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.ledger.SumRefundable(ctx, wlt.ID)
}

// Refund sends a deposit's remaining refundable amount back to the rail:
// zeroes the refundable amount, writes a DEBIT/REFUND leg, debits the wallet,
// then hands off to settlement. A synchronous rail failure is compensated by
// RestoreSpend since the ledger mutation is already durable.
func (s *Service) Refund(ctx context.Context, depositID, callerID uuid.UUID) (*transaction.Transaction, error) {
	var (
		refunded  decimal.Decimal
		wlt       *wallet.Wallet
		refundLeg *transaction.Transaction
	)

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		dep, err := s.ledger.LockDepositTx(ctx, tx, depositID)
		if err != nil {
			return err
		}
		if dep.RefundableAmount == nil || !dep.RefundableAmount.IsPositive() {
			return ErrNothingToRefund
		}

		wlt, err = s.wallets.LockTx(ctx, tx, dep.WalletID)
		if err != nil {
			return err
		}
		if wlt.UserID != callerID {
			return ErrNotOwner
		}

		refunded = *dep.RefundableAmount
		if err := s.ledger.UpdateRefundableTx(ctx, tx, dep.ID, decimal.Zero, transaction.RefundNone); err != nil {
			return err
		}

		reference, err := s.ledger.GenerateReference(ctx)
		if err != nil {
			return err
		}
		refundLeg = &transaction.Transaction{
			WalletID:    dep.WalletID,
			Direction:   transaction.DirectionDebit,
			Type:        transaction.TypeRefund,
			Amount:      refunded,
			Status:      transaction.StatusSuccess,
			Reference:   reference,
			RelatedID:   &dep.ID,
			Description: fmt.Sprintf("refund of deposit %s", dep.Reference),
		}
		if err := s.ledger.InsertTx(ctx, tx, refundLeg); err != nil {
			return err
		}

		return s.wallets.DebitTx(ctx, tx, dep.WalletID, refunded)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("deposit_id", depositID.String()).
		Str("amount", refunded.String()).
		Str("reference", refundLeg.Reference).
		Msg("refund booked, handing off to rail")

	if _, err := s.rail.Payout(ctx, settlement.PayoutRequest{
		Reference:   refundLeg.Reference,
		Amount:      refunded,
		Currency:    wlt.Currency,
		Description: refundLeg.Description,
	}); err != nil {
		log.Error().Err(err).Str("reference", refundLeg.Reference).Msg("refund payout failed, compensating")
		if failErr := s.FailPayout(ctx, refundLeg.Reference); failErr != nil {
			log.Error().Err(failErr).Str("deposit_id", depositID.String()).Msg("refund compensation failed")
		}
		return nil, fmt.Errorf("refund settlement: %w", err)
	}

	if s.notifier != nil {
		s.notifier.RefundProcessed(ctx, wlt.UserID, refunded, wlt.Currency, refundLeg.Reference)
	}
	return refundLeg, nil
}

// CompletePayout finalizes an outbound leg the rail settled. Refund legs
// are booked SUCCESS up front, so this mostly flips PENDING withdrawal legs.
func (s *Service) CompletePayout(ctx context.Context, reference string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		leg, err := s.lockPayoutLegTx(ctx, tx, reference)
		if err != nil {
			return err
		}
		if leg.Status != transaction.StatusPending {
			return nil
		}
		return s.ledger.UpdateStatusTx(ctx, tx, leg.ID, transaction.StatusSuccess)
	})
}

// FailPayout compensates an outbound leg the rail rejected after the fact.
// The original debit is already durable, so the wallet is re-credited with a
// REVERSAL leg; a refund leg additionally gets its deposit's refundable pool
// restored through RestoreSpend.
func (s *Service) FailPayout(ctx context.Context, reference string) error {
	leg, err := s.findPayoutLeg(ctx, reference)
	if err != nil {
		return err
	}
	if leg.Status == transaction.StatusFailed {
		// webhook redelivery, already compensated
		return nil
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.ledger.UpdateStatusTx(ctx, tx, leg.ID, transaction.StatusFailed)
	})
	if err != nil {
		return err
	}

	log.Warn().
		Str("reference", reference).
		Str("type", string(leg.Type)).
		Msg("payout rejected by rail, compensating")

	if leg.Type == transaction.TypeRefund && leg.RelatedID != nil {
		return s.RestoreSpend(ctx, *leg.RelatedID, leg.Amount)
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		reversalRef, err := s.ledger.GenerateReference(ctx)
		if err != nil {
			return err
		}
		if err := s.ledger.InsertTx(ctx, tx, &transaction.Transaction{
			WalletID:    leg.WalletID,
			Direction:   transaction.DirectionCredit,
			Type:        transaction.TypeReversal,
			Amount:      leg.Amount,
			Status:      transaction.StatusSuccess,
			Reference:   reversalRef,
			RelatedID:   &leg.ID,
			Description: fmt.Sprintf("settlement reversal for %s", leg.Reference),
		}); err != nil {
			return err
		}
		return s.wallets.CreditTx(ctx, tx, leg.WalletID, leg.Amount)
	})
}

func (s *Service) findPayoutLeg(ctx context.Context, reference string) (*transaction.Transaction, error) {
	legs, err := s.ledger.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return pickPayoutLeg(legs)
}

func (s *Service) lockPayoutLegTx(ctx context.Context, tx *sqlx.Tx, reference string) (*transaction.Transaction, error) {
	legs, err := s.ledger.LockByReferenceTx(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	return pickPayoutLeg(legs)
}

func pickPayoutLeg(legs []transaction.Transaction) (*transaction.Transaction, error) {
	for i := range legs {
		if legs[i].Direction != transaction.DirectionDebit {
			continue
		}
		if legs[i].Type == transaction.TypeRefund || legs[i].Type == transaction.TypeWithdrawal {
			return &legs[i], nil
		}
	}
	return nil, transaction.ErrTransactionNotFound
}

// RestoreSpend is the compensating action for a settlement that later failed:
// it adds amount back to the deposit's refundable pool and re-credits the
// wallet with a CREDIT/REVERSAL leg.
func (s *Service) RestoreSpend(ctx context.Context, depositID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return wallet.ErrInvalidAmount
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		dep, err := s.ledger.LockDepositTx(ctx, tx, depositID)
		if err != nil {
			return err
		}

		current := decimal.Zero
		if dep.RefundableAmount != nil {
			current = *dep.RefundableAmount
		}
		restored := current.Add(amount)
		if restored.GreaterThan(dep.Amount) {
			return ErrRestoreExceedsDeposit
		}

		status := transaction.RefundPartially
		if restored.Equal(dep.Amount) {
			status = transaction.RefundFully
		}
		if err := s.ledger.UpdateRefundableTx(ctx, tx, dep.ID, restored, status); err != nil {
			return err
		}

		reference, err := s.ledger.GenerateReference(ctx)
		if err != nil {
			return err
		}
		if err := s.ledger.InsertTx(ctx, tx, &transaction.Transaction{
			WalletID:    dep.WalletID,
			Direction:   transaction.DirectionCredit,
			Type:        transaction.TypeReversal,
			Amount:      amount,
			Status:      transaction.StatusSuccess,
			Reference:   reference,
			RelatedID:   &dep.ID,
			Description: fmt.Sprintf("settlement reversal for deposit %s", dep.Reference),
		}); err != nil {
			return err
		}

		return s.wallets.CreditTx(ctx, tx, dep.WalletID, amount)
	})
}

func (s *Service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.wallets.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
