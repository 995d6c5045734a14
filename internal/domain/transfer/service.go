package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/finvault/finvault-api/internal/domain/user"
	"github.com/finvault/finvault-api/internal/domain/wallet"
	"github.com/finvault/finvault-api/internal/pkg/otp"
)

// UserDirectory resolves the parties of a transfer. The user repository
// satisfies this.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// WalletDirectory resolves wallets for the parties. The wallet service
// satisfies this; GetForUser creates the receiver's wallet on first use.
type WalletDirectory interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
	GetForUser(ctx context.Context, userID uuid.UUID, currency string) (*wallet.Wallet, error)
}

// PreChecker runs the tier ceilings consulted before a payload is parked.
// The limits service satisfies this.
type PreChecker interface {
	WouldExceedTransferLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	WouldExceedWithdrawalLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	WouldExceedDailyLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
}

// CodeSender delivers a one-time code to the initiating user
type CodeSender interface {
	SendCode(u *user.User, code string, p *Pending)
}

// Options are the orchestrator's tuning knobs
type Options struct {
	CodeLength     int
	CodeTTL        time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
}

// Service is the two-phase orchestrator: initiate parks a payload behind an
// opaque token and issues a code, verify consumes both and executes.
type Service struct {
	users    UserDirectory
	wallets  WalletDirectory
	limits   PreChecker
	store    Store
	sender   CodeSender
	executor Executor
	opts     Options
}

func NewService(users UserDirectory, wallets WalletDirectory, limits PreChecker, store Store, sender CodeSender, executor Executor, opts Options) *Service {
	return &Service{
		users:    users,
		wallets:  wallets,
		limits:   limits,
		store:    store,
		sender:   sender,
		executor: executor,
		opts:     opts,
	}
}

// InitiateTransfer validates the request, parks the payload and issues a
// one-time code. No ledger mutation happens here.
func (s *Service) InitiateTransfer(ctx context.Context, callerID uuid.UUID, req InitiateTransferRequest) (string, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return "", err
	}

	receiver, err := s.users.GetByEmail(ctx, req.ReceiverEmail)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", ErrReceiverNotFound
		}
		return "", err
	}
	if receiver.ID == callerID {
		return "", ErrSelfTransfer
	}

	senderWallet, err := s.wallets.GetByUserID(ctx, callerID)
	if err != nil {
		return "", err
	}
	if senderWallet.Flagged {
		return "", wallet.ErrWalletFlagged
	}
	if err := wallet.VerifyBalance(senderWallet.Balance, req.Amount); err != nil {
		return "", err
	}

	receiverWallet, err := s.wallets.GetForUser(ctx, receiver.ID, senderWallet.Currency)
	if err != nil {
		return "", err
	}
	if receiverWallet.Currency != senderWallet.Currency {
		return "", wallet.ErrCurrencyMismatch
	}

	if err := s.limits.WouldExceedTransferLimit(ctx, callerID, req.Amount); err != nil {
		return "", err
	}
	if err := s.limits.WouldExceedDailyLimit(ctx, callerID, req.Amount); err != nil {
		return "", err
	}

	p := &Pending{
		Kind:             KindTransfer,
		SenderID:         callerID,
		SenderWalletID:   senderWallet.ID,
		ReceiverID:       receiver.ID,
		ReceiverWalletID: receiverWallet.ID,
		Amount:           req.Amount,
		Description:      req.Description,
		CreatedAt:        time.Now().UTC(),
	}
	return s.park(ctx, caller, p)
}

// InitiateWithdrawal validates and parks an outbound payout request
func (s *Service) InitiateWithdrawal(ctx context.Context, callerID uuid.UUID, req InitiateWithdrawalRequest) (string, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return "", err
	}

	senderWallet, err := s.wallets.GetByUserID(ctx, callerID)
	if err != nil {
		return "", err
	}
	if senderWallet.Flagged {
		return "", wallet.ErrWalletFlagged
	}
	if err := wallet.VerifyBalance(senderWallet.Balance, req.Amount); err != nil {
		return "", err
	}

	if err := s.limits.WouldExceedWithdrawalLimit(ctx, callerID, req.Amount); err != nil {
		return "", err
	}
	if err := s.limits.WouldExceedDailyLimit(ctx, callerID, req.Amount); err != nil {
		return "", err
	}

	p := &Pending{
		Kind:           KindWithdrawal,
		SenderID:       callerID,
		SenderWalletID: senderWallet.ID,
		Amount:         req.Amount,
		AccountName:    req.AccountName,
		AccountIBAN:    req.AccountIBAN,
		CreatedAt:      time.Now().UTC(),
	}
	return s.park(ctx, caller, p)
}

// park stores the payload behind a fresh token and issues the first code
func (s *Service) park(ctx context.Context, caller *user.User, p *Pending) (string, error) {
	token := uuid.NewString()
	if err := s.store.SavePending(ctx, token, p, s.opts.CodeTTL); err != nil {
		return "", err
	}
	if err := s.issueCode(ctx, caller, p); err != nil {
		return "", err
	}

	log.Info().
		Str("user_id", caller.ID.String()).
		Str("kind", string(p.Kind)).
		Str("amount", p.Amount.String()).
		Msg("operation initiated, code issued")
	return token, nil
}

func (s *Service) issueCode(ctx context.Context, caller *user.User, p *Pending) error {
	code := otp.GenerateNumericCode(s.opts.CodeLength)
	hash, err := otp.Hash(code)
	if err != nil {
		return err
	}
	if err := s.store.SaveCode(ctx, caller.ID, p.Kind, hash, s.opts.CodeTTL); err != nil {
		return err
	}
	if err := s.store.MarkSent(ctx, caller.ID, p.Kind, s.opts.ResendCooldown); err != nil {
		return err
	}
	s.sender.SendCode(caller, code, p)
	return nil
}

// Verify checks the one-time code keyed by (caller, kind), consumes the
// token and executes the parked operation. Both the token and the code are
// single use; the attempt ceiling survives even a later correct code.
func (s *Service) Verify(ctx context.Context, callerID uuid.UUID, kind Kind, token, code string) (*Receipt, error) {
	hash, attempts, err := s.store.GetCode(ctx, callerID, kind)
	if err != nil {
		return nil, err
	}
	if attempts >= s.opts.MaxAttempts {
		return nil, ErrTooManyAttempts
	}

	if !otp.Verify(code, hash) {
		n, incErr := s.store.IncrementAttempts(ctx, callerID, kind)
		if incErr != nil {
			return nil, incErr
		}
		if n >= s.opts.MaxAttempts {
			// poison the whole operation, the token is no longer usable
			if delErr := s.store.DeletePending(ctx, token); delErr != nil {
				log.Error().Err(delErr).Msg("evicting pending payload failed")
			}
			return nil, ErrTooManyAttempts
		}
		return nil, ErrInvalidOTP
	}

	// ownership check on a plain read so a mismatched caller cannot burn
	// someone else's token
	peeked, err := s.store.GetPending(ctx, token)
	if err != nil {
		return nil, err
	}
	if peeked.SenderID != callerID || peeked.Kind != kind {
		return nil, ErrPendingExpired
	}

	// the atomic consume decides the winner when the same token is verified
	// concurrently, every other caller sees a miss and nothing executes twice
	p, err := s.store.ConsumePending(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteCode(ctx, callerID, kind); err != nil {
		log.Error().Err(err).Msg("evicting one-time code failed")
	}

	return s.executor.Execute(ctx, p)
}

// Resend rotates the one-time code without discarding the parked payload.
// A minimum wait between issuances guards the notification channel.
func (s *Service) Resend(ctx context.Context, callerID uuid.UUID, token string) error {
	p, err := s.store.GetPending(ctx, token)
	if err != nil {
		return err
	}
	if p.SenderID != callerID {
		return ErrPendingExpired
	}

	recently, err := s.store.RecentlySent(ctx, callerID, p.Kind)
	if err != nil {
		return err
	}
	if recently {
		return ErrResendCooldown
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return err
	}
	return s.issueCode(ctx, caller, p)
}
