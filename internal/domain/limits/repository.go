package limits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *Repository) GetLimit(ctx context.Context, tier Tier) (*AccountLimit, error) {
	var l AccountLimit
	err := r.db.GetContext(ctx, &l, `
		SELECT tier, daily_limit, balance_limit, deposit_limit, withdrawal_limit, transfer_limit
		FROM account_limits WHERE tier = $1
	`, tier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLimitNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("limits repository get limit: %w", err)
	}
	return &l, nil
}

// GetOverride returns the per-user tier override, or nil when none is set
func (r *Repository) GetOverride(ctx context.Context, userID uuid.UUID) (*Tier, error) {
	var tier Tier
	err := r.db.GetContext(ctx, &tier, `
		SELECT tier FROM verification_overrides WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("limits repository get override: %w", err)
	}
	return &tier, nil
}

// SetOverride pins a user to a tier regardless of KYC state
func (r *Repository) SetOverride(ctx context.Context, userID uuid.UUID, tier Tier) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_overrides (user_id, tier) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET tier = EXCLUDED.tier
	`, userID, tier)
	if err != nil {
		return fmt.Errorf("limits repository set override: %w", err)
	}
	return nil
}

func (r *Repository) DeleteOverride(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM verification_overrides WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("limits repository delete override: %w", err)
	}
	return nil
}

// DailyTotal returns the user's running sum for the given day, zero when no
// row exists yet
func (r *Repository) DailyTotal(ctx context.Context, userID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, `
		SELECT total FROM daily_transaction_totals WHERE user_id = $1 AND day = $2
	`, userID, day.Format("2006-01-02"))
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("limits repository daily total: %w", err)
	}
	return total, nil
}

// AddToDailyTotal adds amount to the day's running sum, creating the row on
// first use. The date key makes the reset implicit at midnight.
func (r *Repository) AddToDailyTotal(ctx context.Context, userID uuid.UUID, day time.Time, amount decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_transaction_totals (user_id, day, total)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, day)
		DO UPDATE SET total = daily_transaction_totals.total + EXCLUDED.total, updated_at = now()
	`, userID, day.Format("2006-01-02"), amount)
	if err != nil {
		return fmt.Errorf("limits repository add to daily total: %w", err)
	}
	return nil
}
