package transfer

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finvault/finvault-api/internal/domain/fraud"
	"github.com/finvault/finvault-api/internal/domain/limits"
	"github.com/finvault/finvault-api/internal/domain/wallet"
	"github.com/finvault/finvault-api/internal/middleware"
	"github.com/finvault/finvault-api/internal/pkg/response"
	"github.com/finvault/finvault-api/internal/pkg/validator"
)

type Handler struct {
	svc    *Service
	expiry int // seconds, echoed back so clients can show a countdown
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, expiry: int(svc.opts.CodeTTL.Seconds())}
}

// InitiateTransfer handles POST /transfers
func (h *Handler) InitiateTransfer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req InitiateTransferRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, "validation failed", details)
		return
	}

	token, err := h.svc.InitiateTransfer(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, InitiateResponse{Token: token, ExpiresIn: h.expiry})
}

// InitiateWithdrawal handles POST /withdrawals
func (h *Handler) InitiateWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req InitiateWithdrawalRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, "validation failed", details)
		return
	}

	token, err := h.svc.InitiateWithdrawal(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, InitiateResponse{Token: token, ExpiresIn: h.expiry})
}

func (h *Handler) verify(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == uuid.Nil {
			response.Unauthorized(w, "unauthorized")
			return
		}

		var req VerifyRequest
		if err := response.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		if details := validator.Validate(req); details != nil {
			response.ValidationError(w, "validation failed", details)
			return
		}

		receipt, err := h.svc.Verify(r.Context(), userID, kind, req.Token, req.Code)
		if err != nil {
			h.writeError(w, err)
			return
		}
		response.OK(w, receipt)
	}
}

// Resend handles POST /transfers/resend and /withdrawals/resend
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req ResendRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, "validation failed", details)
		return
	}

	if err := h.svc.Resend(r.Context(), userID, req.Token); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"resent": true})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var limitErr *limits.LimitError
	switch {
	case errors.Is(err, ErrSelfTransfer):
		response.BadRequest(w, "cannot transfer to your own wallet")
	case errors.Is(err, ErrReceiverNotFound):
		response.NotFound(w, "receiver not found")
	case errors.Is(err, ErrPendingExpired):
		response.NotFound(w, "operation expired or not found")
	case errors.Is(err, ErrInvalidOTP):
		response.BadRequest(w, "invalid verification code, try again")
	case errors.Is(err, ErrTooManyAttempts):
		response.Forbidden(w, "verification attempts exhausted, start over")
	case errors.Is(err, ErrResendCooldown):
		response.TooManyRequests(w, "a code was sent recently, wait before resending")
	case errors.Is(err, wallet.ErrInsufficientBalance):
		response.PaymentRequired(w, "insufficient balance")
	case errors.Is(err, wallet.ErrInvalidAmount):
		response.BadRequest(w, "amount must be positive")
	case errors.Is(err, wallet.ErrWalletFlagged):
		response.Forbidden(w, "wallet is restricted")
	case errors.Is(err, wallet.ErrCurrencyMismatch):
		response.BadRequest(w, "wallets hold different currencies")
	case errors.Is(err, wallet.ErrWalletNotFound):
		response.NotFound(w, "wallet not found")
	case errors.As(err, &limitErr):
		response.Forbidden(w, limitErr.Error())
	case errors.Is(err, fraud.ErrFraudulentTransaction):
		response.Forbidden(w, "transaction declined")
	default:
		response.InternalError(w)
	}
}

// TransferRoutes mounts the transfer half of the two-phase protocol
func (h *Handler) TransferRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.InitiateTransfer)
	r.Post("/verify", h.verify(KindTransfer))
	r.Post("/resend", h.Resend)
	return r
}

// WithdrawalRoutes mounts the withdrawal half
func (h *Handler) WithdrawalRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.InitiateWithdrawal)
	r.Post("/verify", h.verify(KindWithdrawal))
	r.Post("/resend", h.Resend)
	return r
}
