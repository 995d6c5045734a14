package wallet

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finvault/finvault-api/internal/middleware"
	"github.com/finvault/finvault-api/internal/pkg/response"
)

type Handler struct {
	svc             *Service
	defaultCurrency string
}

func NewHandler(svc *Service, defaultCurrency string) *Handler {
	return &Handler{svc: svc, defaultCurrency: defaultCurrency}
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	wlt, err := h.svc.GetForUser(r.Context(), userID, h.defaultCurrency)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"wallet_id": wlt.ID,
		"balance":   wlt.Balance,
		"currency":  wlt.Currency,
		"flagged":   wlt.Flagged,
	})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Balance)
	return r
}
