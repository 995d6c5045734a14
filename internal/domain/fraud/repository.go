package fraud

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, c *Check) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fraud_checks (id, wallet_id, rule, reason, amount)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.WalletID, c.Rule, c.Reason, c.Amount)
	if err != nil {
		return fmt.Errorf("fraud repository insert: %w", err)
	}
	return nil
}

// ListByWallet returns a wallet's trigger history, newest first
func (r *Repository) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]Check, error) {
	var checks []Check
	err := r.db.SelectContext(ctx, &checks, `
		SELECT id, wallet_id, rule, reason, amount, created_at
		FROM fraud_checks
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fraud repository list by wallet: %w", err)
	}
	return checks, nil
}
