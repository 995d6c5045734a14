package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestNextScheduledAt(t *testing.T) {
	base := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		recurrence Recurrence
		want       time.Time
	}{
		{RecurrenceDaily, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
		{RecurrenceWeekly, time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)},
		// Jan 31 + 1 month normalizes to Mar 3 in a non-leap Go AddDate,
		// 2026 is not a leap year
		{RecurrenceMonthly, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)},
		{RecurrenceNone, base},
	}
	for _, tc := range cases {
		row := &ScheduledTransfer{ScheduledAt: base, Recurrence: tc.recurrence}
		if got := row.NextScheduledAt(); !got.Equal(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.recurrence, got, tc.want)
		}
	}
}

func TestValidateRecurrence(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	three := 3
	zero := 0

	cases := []struct {
		name       string
		recurrence Recurrence
		end        *time.Time
		total      *int
		wantErr    bool
	}{
		{"one-time needs no bounds", RecurrenceNone, nil, nil, false},
		{"recurring with future end", RecurrenceDaily, &future, nil, false},
		{"recurring with occurrence cap", RecurrenceWeekly, nil, &three, false},
		{"recurring without any bound", RecurrenceMonthly, nil, nil, true},
		{"recurring with past end only", RecurrenceDaily, &past, nil, true},
		{"recurring with zero cap only", RecurrenceDaily, nil, &zero, true},
		{"past end but positive cap", RecurrenceDaily, &past, &three, false},
	}
	for _, tc := range cases {
		err := validateRecurrence(tc.recurrence, tc.end, tc.total, now)
		if tc.wantErr && !errors.Is(err, ErrRecurrenceParams) {
			t.Errorf("%s: expected ErrRecurrenceParams, got %v", tc.name, err)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}
