package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a scheduled transfer.
// EXECUTED, CANCELLED and FAILED are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusExecuted  Status = "EXECUTED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// Recurrence is how a series repeats
type Recurrence string

const (
	RecurrenceNone    Recurrence = "NONE"
	RecurrenceDaily   Recurrence = "DAILY"
	RecurrenceWeekly  Recurrence = "WEEKLY"
	RecurrenceMonthly Recurrence = "MONTHLY"
)

// ScheduledTransfer is one occurrence of a scheduled or recurring transfer.
// A recurring series' first row points at itself through ParentID, so every
// member of the series shares that id.
type ScheduledTransfer struct {
	ID                uuid.UUID       `db:"id"`
	SenderID          uuid.UUID       `db:"sender_id"`
	ReceiverID        uuid.UUID       `db:"receiver_id"`
	Amount            decimal.Decimal `db:"amount"`
	Description       string          `db:"description"`
	ScheduledAt       time.Time       `db:"scheduled_at"`
	Status            Status          `db:"status"`
	Recurrence        Recurrence      `db:"recurrence"`
	RecurrenceEnd     *time.Time      `db:"recurrence_end"`
	TotalOccurrences  *int            `db:"total_occurrences"`
	CurrentOccurrence int             `db:"current_occurrence"`
	ParentID          uuid.UUID       `db:"parent_id"`
	Processed         bool            `db:"processed"`
	RetryCount        int             `db:"retry_count"`
	Reference         *string         `db:"reference"`
	FailureReason     *string         `db:"failure_reason"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// NextScheduledAt advances the timestamp by exactly one recurrence unit
func (s *ScheduledTransfer) NextScheduledAt() time.Time {
	switch s.Recurrence {
	case RecurrenceDaily:
		return s.ScheduledAt.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		return s.ScheduledAt.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		return s.ScheduledAt.AddDate(0, 1, 0)
	}
	return s.ScheduledAt
}
