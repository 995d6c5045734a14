package settlement

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrSettlementFailed indicates the external rail rejected or failed the
// operation. The ledger entry is already durable at that point, so callers
// must compensate rather than roll back.
var ErrSettlementFailed = errors.New("settlement failed")

// Provider is the payment-rail collaborator. The core only builds ledger
// entries and refund bookkeeping; actual movement of funds to and from bank
// rails happens behind this interface.
type Provider interface {
	// Payout pushes funds out to an external bank account (withdrawals, refunds)
	Payout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error)

	// ParseWebhook parses a rail callback into a standardized event
	ParseWebhook(body []byte, signature string) (*WebhookEvent, error)

	// Name returns the provider identifier
	Name() string
}

// PayoutRequest is a standardized outbound settlement request
type PayoutRequest struct {
	Reference   string          // ledger reference code, used as the rail idempotency key
	Amount      decimal.Decimal
	Currency    string
	AccountName string
	AccountIBAN string
	Description string
}

// PayoutResponse is the rail's acceptance of a payout
type PayoutResponse struct {
	ExternalID string // rail-side transaction id
	Status     string // "accepted", "completed"
}

// WebhookEvent is a standardized settlement callback
type WebhookEvent struct {
	Provider   string
	EventType  string // "payout.completed", "payout.failed", "deposit.completed", "deposit.failed"
	Reference  string // the ledger reference code the event settles
	ExternalID string
	Amount     decimal.Decimal
	Currency   string
	Reason     string // failure reason when EventType is *.failed
}

// Succeeded reports whether the event finalizes the operation
func (e *WebhookEvent) Succeeded() bool {
	return e.EventType == "payout.completed" || e.EventType == "deposit.completed"
}
