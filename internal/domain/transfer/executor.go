package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/finvault/finvault-api/internal/domain/fraud"
	"github.com/finvault/finvault-api/internal/domain/limits"
	"github.com/finvault/finvault-api/internal/domain/refund"
	"github.com/finvault/finvault-api/internal/domain/transaction"
	"github.com/finvault/finvault-api/internal/domain/wallet"
	"github.com/finvault/finvault-api/internal/events"
	"github.com/finvault/finvault-api/internal/pkg/settlement"
)

// Executor is the part of the orchestrator that actually moves money. The
// OTP state machine calls it after a successful verify; the scheduler calls
// it directly because the user authorized the movement at scheduling time.
type Executor interface {
	Execute(ctx context.Context, p *Pending) (*Receipt, error)
}

// LedgerExecutor wires the ledger, fraud monitor, limits, refund
// bookkeeping and settlement rail into one execution path
type LedgerExecutor struct {
	wallets  *wallet.Repository
	ledger   *transaction.Repository
	refunds  *refund.Service
	monitor  *fraud.Monitor
	limits   *limits.Service
	hub      *events.Hub
	rail     settlement.Provider
	notifier CompletionNotifier
}

func NewLedgerExecutor(
	wallets *wallet.Repository,
	ledger *transaction.Repository,
	refunds *refund.Service,
	monitor *fraud.Monitor,
	limitsSvc *limits.Service,
	hub *events.Hub,
	rail settlement.Provider,
	notifier CompletionNotifier,
) *LedgerExecutor {
	return &LedgerExecutor{
		wallets:  wallets,
		ledger:   ledger,
		refunds:  refunds,
		monitor:  monitor,
		limits:   limitsSvc,
		hub:      hub,
		rail:     rail,
		notifier: notifier,
	}
}

func (e *LedgerExecutor) Execute(ctx context.Context, p *Pending) (*Receipt, error) {
	switch p.Kind {
	case KindWithdrawal:
		return e.executeWithdrawal(ctx, p)
	default:
		return e.executeTransfer(ctx, p)
	}
}

// executeTransfer re-validates, consults the fraud monitor, then moves the
// money and writes both legs in one transaction. A fraud trigger means
// nothing is written.
func (e *LedgerExecutor) executeTransfer(ctx context.Context, p *Pending) (*Receipt, error) {
	sender, err := e.wallets.GetByID(ctx, p.SenderWalletID)
	if err != nil {
		return nil, err
	}
	if sender.Flagged {
		return nil, wallet.ErrWalletFlagged
	}
	if err := wallet.VerifyBalance(sender.Balance, p.Amount); err != nil {
		return nil, err
	}

	// receiver-side constraints may have changed while the code was in flight
	receiver, err := e.wallets.GetByID(ctx, p.ReceiverWalletID)
	if err != nil {
		return nil, err
	}
	if err := e.limits.WouldExceedBalanceLimit(ctx, p.ReceiverID, receiver.Balance.Add(p.Amount)); err != nil {
		return nil, err
	}
	// the day may have filled up between initiate and verify
	if err := e.limits.WouldExceedDailyLimit(ctx, p.SenderID, p.Amount); err != nil {
		return nil, err
	}

	if err := e.monitor.Check(ctx, fraud.Candidate{
		WalletID: sender.ID,
		UserID:   p.SenderID,
		Amount:   p.Amount,
		Balance:  sender.Balance,
		Kind:     string(KindTransfer),
	}); err != nil {
		e.recordFlaggedAttempt(ctx, p, transaction.TypeTransfer)
		return nil, err
	}

	reference, err := e.ledger.GenerateReference(ctx)
	if err != nil {
		return nil, err
	}

	err = e.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := e.wallets.TransferTx(ctx, tx, p.SenderWalletID, p.ReceiverWalletID, p.Amount); err != nil {
			return err
		}
		if err := e.ledger.InsertTx(ctx, tx, &transaction.Transaction{
			WalletID:    p.SenderWalletID,
			Direction:   transaction.DirectionDebit,
			Type:        transaction.TypeTransfer,
			Amount:      p.Amount,
			Status:      transaction.StatusSuccess,
			Reference:   reference,
			Description: p.Description,
		}); err != nil {
			return err
		}
		if err := e.ledger.InsertTx(ctx, tx, &transaction.Transaction{
			WalletID:    p.ReceiverWalletID,
			Direction:   transaction.DirectionCredit,
			Type:        transaction.TypeTransfer,
			Amount:      p.Amount,
			Status:      transaction.StatusSuccess,
			Reference:   reference,
			Description: p.Description,
		}); err != nil {
			return err
		}
		return e.refunds.RecordSpendTx(ctx, tx, p.SenderWalletID, p.Amount)
	})
	if err != nil {
		return nil, err
	}

	if err := e.limits.RecordTransaction(ctx, p.SenderID, p.Amount); err != nil {
		log.Error().Err(err).Str("user_id", p.SenderID.String()).Msg("recording daily total failed")
	}

	e.hub.Publish(ctx, events.Event{
		Type:   events.EventTransferCompleted,
		UserID: p.SenderID,
		Data: map[string]interface{}{
			"reference": reference,
			"amount":    p.Amount,
			"direction": "outgoing",
		},
	})
	e.hub.Publish(ctx, events.Event{
		Type:   events.EventTransferCompleted,
		UserID: p.ReceiverID,
		Data: map[string]interface{}{
			"reference": reference,
			"amount":    p.Amount,
			"direction": "incoming",
		},
	})

	if e.notifier != nil {
		e.notifier.TransferCompleted(ctx, p.SenderID, p.ReceiverID, p.Amount, reference)
	}

	log.Info().
		Str("reference", reference).
		Str("sender_wallet", p.SenderWalletID.String()).
		Str("receiver_wallet", p.ReceiverWalletID.String()).
		Str("amount", p.Amount.String()).
		Msg("transfer executed")

	return &Receipt{Reference: reference, Kind: KindTransfer, Amount: p.Amount, At: time.Now().UTC()}, nil
}

// executeWithdrawal books a PENDING debit leg and hands the payout to the
// rail. The webhook finalizes or compensates it; a synchronous rail error
// compensates immediately.
func (e *LedgerExecutor) executeWithdrawal(ctx context.Context, p *Pending) (*Receipt, error) {
	sender, err := e.wallets.GetByID(ctx, p.SenderWalletID)
	if err != nil {
		return nil, err
	}
	if sender.Flagged {
		return nil, wallet.ErrWalletFlagged
	}
	if err := wallet.VerifyBalance(sender.Balance, p.Amount); err != nil {
		return nil, err
	}
	if err := e.limits.WouldExceedDailyLimit(ctx, p.SenderID, p.Amount); err != nil {
		return nil, err
	}

	if err := e.monitor.Check(ctx, fraud.Candidate{
		WalletID: sender.ID,
		UserID:   p.SenderID,
		Amount:   p.Amount,
		Balance:  sender.Balance,
		Kind:     string(KindWithdrawal),
	}); err != nil {
		e.recordFlaggedAttempt(ctx, p, transaction.TypeWithdrawal)
		return nil, err
	}

	reference, err := e.ledger.GenerateReference(ctx)
	if err != nil {
		return nil, err
	}

	err = e.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := e.wallets.DebitTx(ctx, tx, p.SenderWalletID, p.Amount); err != nil {
			return err
		}
		if err := e.ledger.InsertTx(ctx, tx, &transaction.Transaction{
			WalletID:    p.SenderWalletID,
			Direction:   transaction.DirectionDebit,
			Type:        transaction.TypeWithdrawal,
			Amount:      p.Amount,
			Status:      transaction.StatusPending,
			Reference:   reference,
			Description: fmt.Sprintf("withdrawal to %s", p.AccountIBAN),
		}); err != nil {
			return err
		}
		return e.refunds.RecordSpendTx(ctx, tx, p.SenderWalletID, p.Amount)
	})
	if err != nil {
		return nil, err
	}

	if _, err := e.rail.Payout(ctx, settlement.PayoutRequest{
		Reference:   reference,
		Amount:      p.Amount,
		Currency:    sender.Currency,
		AccountName: p.AccountName,
		AccountIBAN: p.AccountIBAN,
	}); err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("withdrawal payout failed, compensating")
		if failErr := e.refunds.FailPayout(ctx, reference); failErr != nil {
			log.Error().Err(failErr).Str("reference", reference).Msg("withdrawal compensation failed")
		}
		return nil, fmt.Errorf("withdrawal settlement: %w", err)
	}

	if err := e.limits.RecordTransaction(ctx, p.SenderID, p.Amount); err != nil {
		log.Error().Err(err).Str("user_id", p.SenderID.String()).Msg("recording daily total failed")
	}

	e.hub.Publish(ctx, events.Event{
		Type:   events.EventWithdrawalBooked,
		UserID: p.SenderID,
		Data: map[string]interface{}{
			"reference": reference,
			"amount":    p.Amount,
		},
	})

	log.Info().
		Str("reference", reference).
		Str("wallet_id", p.SenderWalletID.String()).
		Str("amount", p.Amount.String()).
		Msg("withdrawal booked")

	return &Receipt{Reference: reference, Kind: KindWithdrawal, Amount: p.Amount, At: time.Now().UTC()}, nil
}

// recordFlaggedAttempt books a FAILED flagged leg for a movement the fraud
// monitor blocked. The balance never moved; the leg is the audit trail of
// the attempt.
func (e *LedgerExecutor) recordFlaggedAttempt(ctx context.Context, p *Pending, txType transaction.Type) {
	reference, err := e.ledger.GenerateReference(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reference for flagged attempt failed")
		return
	}
	err = e.inTx(ctx, func(tx *sqlx.Tx) error {
		return e.ledger.InsertTx(ctx, tx, &transaction.Transaction{
			WalletID:    p.SenderWalletID,
			Direction:   transaction.DirectionDebit,
			Type:        txType,
			Amount:      p.Amount,
			Status:      transaction.StatusFailed,
			Reference:   reference,
			Flagged:     true,
			Description: p.Description,
		})
	})
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("recording flagged attempt failed")
	}
}

func (e *LedgerExecutor) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := e.wallets.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
