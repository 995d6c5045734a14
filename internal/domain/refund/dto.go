package refund

import "github.com/shopspring/decimal"

type InitiateDepositRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,amount"`
	Description string          `json:"description" validate:"max=255"`
}

type DepositResponse struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

type RefundResponse struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}
