package transaction

import "errors"

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrReferenceExhausted  = errors.New("could not generate a unique reference")
	ErrDuplicateReference  = errors.New("reference already in use")
)
