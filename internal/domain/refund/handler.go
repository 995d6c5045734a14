package refund

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finvault/finvault-api/internal/domain/transaction"
	"github.com/finvault/finvault-api/internal/domain/wallet"
	"github.com/finvault/finvault-api/internal/middleware"
	"github.com/finvault/finvault-api/internal/pkg/response"
	"github.com/finvault/finvault-api/internal/pkg/settlement"
	"github.com/finvault/finvault-api/internal/pkg/validator"
)

type Handler struct {
	svc  *Service
	rail settlement.Provider
}

func NewHandler(svc *Service, rail settlement.Provider) *Handler {
	return &Handler{svc: svc, rail: rail}
}

// InitiateDeposit opens a pending pay-in and returns the reference the
// caller presents to the rail
func (h *Handler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req InitiateDepositRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, "validation failed", details)
		return
	}

	leg, err := h.svc.InitiateDeposit(r.Context(), userID, req.Amount, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, DepositResponse{
		ID:        leg.ID.String(),
		Reference: leg.Reference,
		Amount:    leg.Amount,
		Status:    string(leg.Status),
	})
}

// RefundableTotal answers how much of the caller's deposits is still
// refundable across the whole wallet
func (h *Handler) RefundableTotal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	total, err := h.svc.RefundableTotal(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{"refundable_total": total})
}

// Refund sends a deposit's remaining refundable amount back to the rail
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	depositID, err := uuid.Parse(chi.URLParam(r, "depositID"))
	if err != nil {
		response.BadRequest(w, "invalid deposit id")
		return
	}

	leg, err := h.svc.Refund(r.Context(), depositID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, RefundResponse{
		ID:        leg.ID.String(),
		Reference: leg.Reference,
		Amount:    leg.Amount,
	})
}

// Webhook receives settlement callbacks from the rail. The rail retries
// until it sees a 2xx, so every branch here is idempotent.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		response.BadRequest(w, "unreadable body")
		return
	}

	event, err := h.rail.ParseWebhook(body, r.Header.Get("X-Signature"))
	if err != nil {
		log.Warn().Err(err).Msg("settlement webhook rejected")
		response.Unauthorized(w, "invalid signature")
		return
	}

	switch event.EventType {
	case "deposit.completed":
		err = h.svc.CompleteDeposit(r.Context(), event.Reference)
	case "deposit.failed":
		err = h.svc.FailDeposit(r.Context(), event.Reference)
	case "payout.failed":
		err = h.svc.FailPayout(r.Context(), event.Reference)
	case "payout.completed":
		err = h.svc.CompletePayout(r.Context(), event.Reference)
	default:
		log.Warn().Str("event_type", event.EventType).Msg("unknown settlement event")
	}
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			response.NotFound(w, "unknown reference")
			return
		}
		log.Error().Err(err).Str("event_type", event.EventType).Str("reference", event.Reference).Msg("settlement webhook failed")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"received": true})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount):
		response.BadRequest(w, "amount must be positive")
	case errors.Is(err, wallet.ErrWalletNotFound):
		response.NotFound(w, "wallet not found")
	case errors.Is(err, transaction.ErrTransactionNotFound):
		response.NotFound(w, "deposit not found")
	case errors.Is(err, ErrNothingToRefund):
		response.Conflict(w, "deposit has no refundable amount left")
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(w, "deposit belongs to another user")
	default:
		response.InternalError(w)
	}
}

// Routes mounts the authenticated deposit and refund endpoints
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.InitiateDeposit)
	r.Get("/refundable-total", h.RefundableTotal)
	r.Post("/{depositID}/refund", h.Refund)
	return r
}

// WebhookRoutes mounts the unauthenticated rail callback endpoint
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/settlement", h.Webhook)
	return r
}
