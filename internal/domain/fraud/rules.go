package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rule is one independent fraud heuristic. Evaluate reports whether the
// candidate trips the rule; Explain renders the reason that gets persisted.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, c Candidate) (bool, error)
	Explain(c Candidate) string
}

// AmountThresholdRule trips on any single movement above a fixed ceiling
type AmountThresholdRule struct {
	Ceiling decimal.Decimal
}

func (r *AmountThresholdRule) Name() string { return "amount_threshold" }

func (r *AmountThresholdRule) Evaluate(_ context.Context, c Candidate) (bool, error) {
	return c.Amount.GreaterThan(r.Ceiling), nil
}

func (r *AmountThresholdRule) Explain(c Candidate) string {
	return fmt.Sprintf("amount %s exceeds single-transaction ceiling %s", c.Amount, r.Ceiling)
}

// OutgoingCounter answers how many outgoing legs a wallet produced since a
// cutoff. The ledger repository satisfies this.
type OutgoingCounter interface {
	CountOutgoingSince(ctx context.Context, walletID uuid.UUID, since time.Time) (int, error)
}

// VelocityRule trips when the wallet's outgoing count inside the window
// reaches the configured maximum
type VelocityRule struct {
	counter OutgoingCounter
	Max     int
	Window  time.Duration
}

func NewVelocityRule(counter OutgoingCounter, max int, window time.Duration) *VelocityRule {
	return &VelocityRule{counter: counter, Max: max, Window: window}
}

func (r *VelocityRule) Name() string { return "velocity" }

func (r *VelocityRule) Evaluate(ctx context.Context, c Candidate) (bool, error) {
	count, err := r.counter.CountOutgoingSince(ctx, c.WalletID, c.At.Add(-r.Window))
	if err != nil {
		return false, err
	}
	return count >= r.Max, nil
}

func (r *VelocityRule) Explain(c Candidate) string {
	return fmt.Sprintf("more than %d outgoing transactions within %s", r.Max, r.Window)
}

// DrainRule trips when a single movement empties most of the wallet
type DrainRule struct {
	Fraction decimal.Decimal // e.g. 0.9
}

func (r *DrainRule) Name() string { return "drain" }

func (r *DrainRule) Evaluate(_ context.Context, c Candidate) (bool, error) {
	if !c.Balance.IsPositive() {
		return false, nil
	}
	return c.Amount.GreaterThan(c.Balance.Mul(r.Fraction)), nil
}

func (r *DrainRule) Explain(c Candidate) string {
	return fmt.Sprintf("amount %s drains more than %s of balance %s", c.Amount, r.Fraction, c.Balance)
}

// OddHourRule trips on large movements during the quiet-hours window
type OddHourRule struct {
	StartHour int
	EndHour   int
	Threshold decimal.Decimal
}

func (r *OddHourRule) Name() string { return "odd_hour" }

func (r *OddHourRule) Evaluate(_ context.Context, c Candidate) (bool, error) {
	hour := c.At.Hour()
	inWindow := false
	if r.StartHour <= r.EndHour {
		inWindow = hour >= r.StartHour && hour < r.EndHour
	} else {
		inWindow = hour >= r.StartHour || hour < r.EndHour
	}
	return inWindow && c.Amount.GreaterThan(r.Threshold), nil
}

func (r *OddHourRule) Explain(c Candidate) string {
	return fmt.Sprintf("amount %s above %s between %02d:00 and %02d:00", c.Amount, r.Threshold, r.StartHour, r.EndHour)
}
