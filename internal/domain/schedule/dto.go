package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

type ScheduleRequest struct {
	ReceiverEmail    string          `json:"receiver_email" validate:"required,email"`
	Amount           decimal.Decimal `json:"amount" validate:"required,amount"`
	Description      string          `json:"description" validate:"max=255"`
	ScheduledAt      time.Time       `json:"scheduled_at" validate:"required"`
	Recurrence       string          `json:"recurrence" validate:"omitempty,recurrence"`
	RecurrenceEnd    *time.Time      `json:"recurrence_end,omitempty"`
	TotalOccurrences *int            `json:"total_occurrences,omitempty"`
}

type UpdateRequest struct {
	Amount           *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,amount"`
	Description      *string          `json:"description,omitempty" validate:"omitempty,max=255"`
	ScheduledAt      *time.Time       `json:"scheduled_at,omitempty"`
	Recurrence       *string          `json:"recurrence,omitempty" validate:"omitempty,recurrence"`
	RecurrenceEnd    *time.Time       `json:"recurrence_end,omitempty"`
	TotalOccurrences *int             `json:"total_occurrences,omitempty"`
}
