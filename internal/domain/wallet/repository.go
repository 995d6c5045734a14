package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// BeginTx opens a transaction for callers that need wallet mutations atomic
// with other writes (ledger legs, refund bookkeeping).
func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// EnsureWallet creates the user's wallet if it does not exist yet
func (r *Repository) EnsureWallet(ctx context.Context, userID uuid.UUID, currency string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, currency)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID, currency)
	return err
}

// GetByUserID returns the user's wallet
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT id, user_id, balance, currency, flagged, created_at, updated_at
		FROM wallets WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet repository get by user: %w", err)
	}
	return &w, nil
}

// GetByID returns a wallet by its id
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT id, user_id, balance, currency, flagged, created_at, updated_at
		FROM wallets WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet repository get by id: %w", err)
	}
	return &w, nil
}

// LockTx loads a wallet row FOR UPDATE inside the given transaction.
// Every balance mutation goes through this lock, which serializes
// concurrent debits on the same wallet.
func (r *Repository) LockTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, `
		SELECT id, user_id, balance, currency, flagged, created_at, updated_at
		FROM wallets WHERE id = $1 FOR UPDATE
	`, walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet repository lock: %w", err)
	}
	return &w, nil
}

func (r *Repository) updateBalanceTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets SET balance = $1, updated_at = now() WHERE id = $2
	`, balance, walletID)
	return err
}

// DebitTx subtracts amount from the wallet inside an external transaction.
// Fails with ErrInsufficientBalance without mutating when the locked balance
// is below amount.
func (r *Repository) DebitTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	w, err := r.LockTx(ctx, tx, walletID)
	if err != nil {
		return err
	}
	if w.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	return r.updateBalanceTx(ctx, tx, walletID, w.Balance.Sub(amount))
}

// CreditTx adds amount to the wallet inside an external transaction.
// No upper bound is enforced here; tier balance ceilings are checked by the
// limits enforcer before the operation starts.
func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	w, err := r.LockTx(ctx, tx, walletID)
	if err != nil {
		return err
	}

	return r.updateBalanceTx(ctx, tx, walletID, w.Balance.Add(amount))
}

// TransferTx moves amount from source to dest inside an external transaction.
// Wallets are locked in id order so two opposing transfers cannot deadlock.
// If the debit check fails nothing is mutated on either wallet.
func (r *Repository) TransferTx(ctx context.Context, tx *sqlx.Tx, sourceID, destID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if sourceID == destID {
		return ErrSameWallet
	}

	first, second := sourceID, destID
	if destID.String() < sourceID.String() {
		first, second = destID, sourceID
	}

	locked := make(map[uuid.UUID]*Wallet, 2)
	for _, id := range []uuid.UUID{first, second} {
		w, err := r.LockTx(ctx, tx, id)
		if err != nil {
			return err
		}
		locked[id] = w
	}

	source, dest := locked[sourceID], locked[destID]
	if source.Currency != dest.Currency {
		return ErrCurrencyMismatch
	}
	if source.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	if err := r.updateBalanceTx(ctx, tx, sourceID, source.Balance.Sub(amount)); err != nil {
		return err
	}
	return r.updateBalanceTx(ctx, tx, destID, dest.Balance.Add(amount))
}

// Debit runs DebitTx in its own transaction
func (r *Repository) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		return r.DebitTx(ctx, tx, walletID, amount)
	})
}

// Credit runs CreditTx in its own transaction
func (r *Repository) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		return r.CreditTx(ctx, tx, walletID, amount)
	})
}

// Transfer runs TransferTx in its own transaction: both legs commit or neither
func (r *Repository) Transfer(ctx context.Context, sourceID, destID uuid.UUID, amount decimal.Decimal) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		return r.TransferTx(ctx, tx, sourceID, destID, amount)
	})
}

// Flag marks the wallet for fraud review
func (r *Repository) Flag(ctx context.Context, walletID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wallets SET flagged = TRUE, updated_at = now() WHERE id = $1
	`, walletID)
	return err
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
