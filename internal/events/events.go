package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names the lifecycle moments the engine publishes
type Type string

const (
	EventTransferCompleted Type = "transfer.completed"
	EventWithdrawalBooked  Type = "withdrawal.booked"
	EventDepositCompleted  Type = "deposit.completed"
	EventRefundProcessed   Type = "refund.processed"
	EventScheduleCreated   Type = "schedule.created"
	EventScheduleExecuted  Type = "schedule.executed"
	EventScheduleCancelled Type = "schedule.cancelled"
	EventScheduleFailed    Type = "schedule.failed"
)

// Event is one user-addressed notification. Data is kept loose so each
// publisher shapes its own payload.
type Event struct {
	Type   Type                   `json:"type"`
	UserID uuid.UUID              `json:"user_id"`
	Data   map[string]interface{} `json:"data,omitempty"`
	At     time.Time              `json:"at"`
}
