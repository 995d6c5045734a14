package schedule

import "errors"

var (
	ErrScheduleNotFound = errors.New("scheduled transfer not found")
	ErrNotOwner         = errors.New("scheduled transfer belongs to another user")
	ErrNotPending       = errors.New("scheduled transfer is no longer pending")
	ErrPastSchedule     = errors.New("scheduled time must be in the future")
	ErrRecurrenceParams = errors.New("recurring transfer needs a future end date or a positive occurrence count")
	ErrSelfSchedule     = errors.New("cannot schedule a transfer to yourself")
	ErrReceiverNotFound = errors.New("receiver not found")
)
