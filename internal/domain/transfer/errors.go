package transfer

import "errors"

var (
	ErrSelfTransfer     = errors.New("cannot transfer to own wallet")
	ErrReceiverNotFound = errors.New("receiver not found")

	// ErrPendingExpired covers both a TTL-evicted payload and a token that
	// never existed; callers cannot tell the difference and should not try
	ErrPendingExpired = errors.New("pending operation expired or not found")

	ErrInvalidOTP      = errors.New("invalid verification code")
	ErrTooManyAttempts = errors.New("verification attempts exhausted")
	ErrResendCooldown  = errors.New("verification code was sent recently")
)
