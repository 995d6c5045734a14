package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// walletFlagThreshold is the number of distinct triggered rules above which
// the whole wallet gets flagged, not just the attempt
const walletFlagThreshold = 2

// WalletFlagger restricts a wallet after repeated triggers. The wallet
// repository satisfies this.
type WalletFlagger interface {
	Flag(ctx context.Context, walletID uuid.UUID) error
}

// Monitor runs the ordered rule set against every outgoing movement before
// the ledger write. A trigger means no money moved.
type Monitor struct {
	rules   []Rule
	repo    *Repository
	flagger WalletFlagger
}

func NewMonitor(rules []Rule, repo *Repository, flagger WalletFlagger) *Monitor {
	return &Monitor{rules: rules, repo: repo, flagger: flagger}
}

// RuleOptions are the tuning knobs for the default rule set
type RuleOptions struct {
	AmountCeiling  decimal.Decimal
	VelocityMax    int
	VelocityWindow time.Duration
	DrainFraction  decimal.Decimal
	QuietHourStart int
	QuietHourEnd   int
	QuietThreshold decimal.Decimal
}

// DefaultRules builds the standard ordered rule set. Order is fixed so
// persisted reasons stay comparable across deployments.
func DefaultRules(counter OutgoingCounter, opts RuleOptions) []Rule {
	return []Rule{
		&AmountThresholdRule{Ceiling: opts.AmountCeiling},
		NewVelocityRule(counter, opts.VelocityMax, opts.VelocityWindow),
		&DrainRule{Fraction: opts.DrainFraction},
		&OddHourRule{StartHour: opts.QuietHourStart, EndHour: opts.QuietHourEnd, Threshold: opts.QuietThreshold},
	}
}

// Check evaluates every rule against the candidate. All triggered reasons
// are persisted; crossing the threshold flags the wallet. Returns a
// FraudError when anything triggered.
func (m *Monitor) Check(ctx context.Context, c Candidate) error {
	if c.At.IsZero() {
		c.At = time.Now()
	}

	var reasons []string
	for _, rule := range m.rules {
		triggered, err := rule.Evaluate(ctx, c)
		if err != nil {
			return err
		}
		if !triggered {
			continue
		}

		reason := rule.Explain(c)
		reasons = append(reasons, reason)
		if err := m.repo.Insert(ctx, &Check{
			WalletID: c.WalletID,
			Rule:     rule.Name(),
			Reason:   reason,
			Amount:   c.Amount,
		}); err != nil {
			log.Error().Err(err).Str("rule", rule.Name()).Msg("persisting fraud check failed")
		}
	}

	if len(reasons) == 0 {
		return nil
	}

	flagWallet := len(reasons) > walletFlagThreshold
	if flagWallet {
		if err := m.flagger.Flag(ctx, c.WalletID); err != nil {
			log.Error().Err(err).Str("wallet_id", c.WalletID.String()).Msg("flagging wallet failed")
		}
	}

	log.Warn().
		Str("wallet_id", c.WalletID.String()).
		Str("amount", c.Amount.String()).
		Strs("reasons", reasons).
		Bool("wallet_flagged", flagWallet).
		Msg("fraud rules triggered")

	return &FraudError{Reasons: reasons, WalletFlagged: flagWallet}
}

// History returns a wallet's persisted triggers
func (m *Monitor) History(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]Check, error) {
	return m.repo.ListByWallet(ctx, walletID, limit, offset)
}
