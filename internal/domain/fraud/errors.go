package fraud

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFraudulentTransaction is the sentinel for errors.Is checks
var ErrFraudulentTransaction = errors.New("fraudulent transaction")

// FraudError carries the reasons of every rule that triggered.
// WalletFlagged reports whether the trigger count crossed the wallet
// flagging threshold.
type FraudError struct {
	Reasons       []string
	WalletFlagged bool
}

func (e *FraudError) Error() string {
	return fmt.Sprintf("fraudulent transaction: %s", strings.Join(e.Reasons, "; "))
}

func (e *FraudError) Unwrap() error { return ErrFraudulentTransaction }
