package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// reserveReference claims a reference code. Returns false when the code is
// already taken (unique violation), which makes the generator retry.
func (r *Repository) reserveReference(ctx context.Context, reference string) (bool, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reference_links (reference) VALUES ($1)
	`, reference)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("transaction repository reserve reference: %w", err)
	}
	return true, nil
}

// InsertTx writes a ledger leg inside an external transaction and attaches it
// to its reference link.
func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions
			(id, wallet_id, direction, type, amount, status, reference,
			 refundable_amount, refund_status, related_transaction_id, flagged, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.WalletID, t.Direction, t.Type, t.Amount, t.Status, t.Reference,
		t.RefundableAmount, t.RefundStatus, t.RelatedID, t.Flagged, t.Description)
	if err != nil {
		return fmt.Errorf("transaction repository insert: %w", err)
	}

	column := "credit_leg_id"
	if t.Direction == DirectionDebit {
		column = "debit_leg_id"
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE reference_links SET %s = $1 WHERE reference = $2
	`, column), t.ID, t.Reference)
	if err != nil {
		return fmt.Errorf("transaction repository link reference: %w", err)
	}
	return nil
}

// GetByID returns a single leg
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		SELECT id, wallet_id, direction, type, amount, status, reference,
		       refundable_amount, refund_status, related_transaction_id, flagged, description, created_at, updated_at
		FROM transactions WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transaction repository get by id: %w", err)
	}
	return &t, nil
}

// GetByReference returns every leg sharing a reference code
func (r *Repository) GetByReference(ctx context.Context, reference string) ([]Transaction, error) {
	var legs []Transaction
	err := r.db.SelectContext(ctx, &legs, `
		SELECT id, wallet_id, direction, type, amount, status, reference,
		       refundable_amount, refund_status, related_transaction_id, flagged, description, created_at, updated_at
		FROM transactions WHERE reference = $1
		ORDER BY direction
	`, reference)
	if err != nil {
		return nil, fmt.Errorf("transaction repository get by reference: %w", err)
	}
	return legs, nil
}

// ListByWallet returns a wallet's statement, newest first
func (r *Repository) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]Transaction, error) {
	var legs []Transaction
	err := r.db.SelectContext(ctx, &legs, `
		SELECT id, wallet_id, direction, type, amount, status, reference,
		       refundable_amount, refund_status, related_transaction_id, flagged, description, created_at, updated_at
		FROM transactions WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transaction repository list by wallet: %w", err)
	}
	return legs, nil
}

// ListRefundableDepositsTx returns the wallet's DEPOSIT legs that still carry
// refundable amount, oldest first, locked for the FIFO consumption walk.
func (r *Repository) ListRefundableDepositsTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID) ([]Transaction, error) {
	var legs []Transaction
	err := tx.SelectContext(ctx, &legs, `
		SELECT id, wallet_id, direction, type, amount, status, reference,
		       refundable_amount, refund_status, related_transaction_id, flagged, description, created_at, updated_at
		FROM transactions
		WHERE wallet_id = $1
		  AND type = 'DEPOSIT'
		  AND status = 'SUCCESS'
		  AND refund_status IS DISTINCT FROM 'NON_REFUNDABLE'
		ORDER BY created_at ASC
		FOR UPDATE
	`, walletID)
	if err != nil {
		return nil, fmt.Errorf("transaction repository list refundable deposits: %w", err)
	}
	return legs, nil
}

// LockDepositTx loads and locks one deposit leg for refund bookkeeping
func (r *Repository) LockDepositTx(ctx context.Context, tx *sqlx.Tx, depositID uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := tx.GetContext(ctx, &t, `
		SELECT id, wallet_id, direction, type, amount, status, reference,
		       refundable_amount, refund_status, related_transaction_id, flagged, description, created_at, updated_at
		FROM transactions WHERE id = $1 AND type = 'DEPOSIT'
		FOR UPDATE
	`, depositID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transaction repository lock deposit: %w", err)
	}
	return &t, nil
}

// UpdateRefundableTx rewrites a deposit leg's refundable amount and state
func (r *Repository) UpdateRefundableTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, amount decimal.Decimal, status RefundStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET refundable_amount = $1, refund_status = $2, updated_at = now()
		WHERE id = $3
	`, amount, status, id)
	if err != nil {
		return fmt.Errorf("transaction repository update refundable: %w", err)
	}
	return nil
}

// LockByReferenceTx returns every leg sharing a reference code, locked for
// update. Webhook settlement paths use this to finalize pending legs exactly
// once under redelivery.
func (r *Repository) LockByReferenceTx(ctx context.Context, tx *sqlx.Tx, reference string) ([]Transaction, error) {
	var legs []Transaction
	err := tx.SelectContext(ctx, &legs, `
		SELECT id, wallet_id, direction, type, amount, status, reference,
		       refundable_amount, refund_status, related_transaction_id, flagged, description, created_at, updated_at
		FROM transactions WHERE reference = $1
		ORDER BY direction
		FOR UPDATE
	`, reference)
	if err != nil {
		return nil, fmt.Errorf("transaction repository lock by reference: %w", err)
	}
	return legs, nil
}

// UpdateStatusTx moves a leg to a new lifecycle state
func (r *Repository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("transaction repository update status: %w", err)
	}
	return nil
}

// CountOutgoingSince counts a wallet's recent outgoing legs; the fraud
// velocity rule reads this.
func (r *Repository) CountOutgoingSince(ctx context.Context, walletID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM transactions
		WHERE wallet_id = $1
		  AND direction = 'DEBIT'
		  AND created_at >= $2
	`, walletID, since)
	if err != nil {
		return 0, fmt.Errorf("transaction repository count outgoing: %w", err)
	}
	return count, nil
}

// SumRefundable returns the total refundable amount across a wallet's deposits
func (r *Repository) SumRefundable(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(refundable_amount), 0) FROM transactions
		WHERE wallet_id = $1 AND type = 'DEPOSIT'
	`, walletID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("transaction repository sum refundable: %w", err)
	}
	return sum, nil
}
