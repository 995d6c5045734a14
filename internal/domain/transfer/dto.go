package transfer

import "github.com/shopspring/decimal"

type InitiateTransferRequest struct {
	ReceiverEmail string          `json:"receiver_email" validate:"required,email"`
	Amount        decimal.Decimal `json:"amount" validate:"required,amount"`
	Description   string          `json:"description" validate:"max=255"`
}

type InitiateWithdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,amount"`
	AccountName string          `json:"account_name" validate:"required,max=128"`
	AccountIBAN string          `json:"account_iban" validate:"required,min=15,max=34"`
}

type VerifyRequest struct {
	Token string `json:"token" validate:"required,uuid4"`
	Code  string `json:"code" validate:"required,numeric"`
}

type ResendRequest struct {
	Token string `json:"token" validate:"required,uuid4"`
}

type InitiateResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in_seconds"`
}
