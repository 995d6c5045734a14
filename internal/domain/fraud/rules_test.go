package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fixedCounter struct {
	count int
	since time.Time
}

func (f *fixedCounter) CountOutgoingSince(ctx context.Context, walletID uuid.UUID, since time.Time) (int, error) {
	f.since = since
	return f.count, nil
}

func candidate(amount, balance int64, at time.Time) Candidate {
	return Candidate{
		WalletID: uuid.New(),
		UserID:   uuid.New(),
		Amount:   decimal.NewFromInt(amount),
		Balance:  decimal.NewFromInt(balance),
		At:       at,
	}
}

func TestAmountThresholdRule(t *testing.T) {
	rule := &AmountThresholdRule{Ceiling: decimal.NewFromInt(1000)}

	if triggered, _ := rule.Evaluate(context.Background(), candidate(1000, 5000, time.Now())); triggered {
		t.Fatal("amount equal to the ceiling must not trigger")
	}
	if triggered, _ := rule.Evaluate(context.Background(), candidate(1001, 5000, time.Now())); !triggered {
		t.Fatal("amount above the ceiling must trigger")
	}
}

func TestVelocityRule(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	counter := &fixedCounter{count: 4}
	rule := NewVelocityRule(counter, 5, time.Hour)

	triggered, err := rule.Evaluate(context.Background(), candidate(10, 100, at))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if triggered {
		t.Fatal("count below max must not trigger")
	}
	if want := at.Add(-time.Hour); !counter.since.Equal(want) {
		t.Fatalf("window cutoff wrong: got %v, want %v", counter.since, want)
	}

	counter.count = 5
	if triggered, _ := rule.Evaluate(context.Background(), candidate(10, 100, at)); !triggered {
		t.Fatal("count at max must trigger")
	}
}

func TestDrainRule(t *testing.T) {
	rule := &DrainRule{Fraction: decimal.RequireFromString("0.9")}

	if triggered, _ := rule.Evaluate(context.Background(), candidate(89, 100, time.Now())); triggered {
		t.Fatal("89% of balance must not trigger at fraction 0.9")
	}
	if triggered, _ := rule.Evaluate(context.Background(), candidate(91, 100, time.Now())); !triggered {
		t.Fatal("91% of balance must trigger at fraction 0.9")
	}

	// an already empty wallet cannot be drained
	if triggered, _ := rule.Evaluate(context.Background(), candidate(10, 0, time.Now())); triggered {
		t.Fatal("zero balance must not trigger")
	}
}

func TestOddHourRuleWrapAroundWindow(t *testing.T) {
	rule := &OddHourRule{StartHour: 23, EndHour: 6, Threshold: decimal.NewFromInt(500)}

	cases := []struct {
		hour      int
		amount    int64
		triggered bool
	}{
		{23, 600, true},
		{2, 600, true},
		{5, 600, true},
		{6, 600, false},
		{12, 600, false},
		{2, 500, false}, // at the threshold, not above
	}
	for _, tc := range cases {
		at := time.Date(2026, 3, 14, tc.hour, 30, 0, 0, time.UTC)
		triggered, _ := rule.Evaluate(context.Background(), candidate(tc.amount, 10_000, at))
		if triggered != tc.triggered {
			t.Errorf("hour %02d amount %d: got triggered=%v, want %v", tc.hour, tc.amount, triggered, tc.triggered)
		}
	}
}

func TestOddHourRuleDaytimeWindow(t *testing.T) {
	rule := &OddHourRule{StartHour: 1, EndHour: 5, Threshold: decimal.NewFromInt(100)}

	at := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	if triggered, _ := rule.Evaluate(context.Background(), candidate(200, 1000, at)); !triggered {
		t.Fatal("inside a non-wrapping window must trigger")
	}
	at = time.Date(2026, 3, 14, 5, 0, 0, 0, time.UTC)
	if triggered, _ := rule.Evaluate(context.Background(), candidate(200, 1000, at)); triggered {
		t.Fatal("end hour is exclusive")
	}
}

func TestFraudErrorUnwrapsToSentinel(t *testing.T) {
	var err error = &FraudError{Reasons: []string{"a", "b"}}
	if !errors.Is(err, ErrFraudulentTransaction) {
		t.Fatal("FraudError must unwrap to ErrFraudulentTransaction")
	}
}
