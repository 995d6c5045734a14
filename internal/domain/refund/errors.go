package refund

import "errors"

var (
	ErrNothingToRefund       = errors.New("deposit has no refundable amount left")
	ErrNotOwner              = errors.New("deposit does not belong to caller")
	ErrRestoreExceedsDeposit = errors.New("restore would exceed the original deposit amount")
)
