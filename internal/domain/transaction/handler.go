package transaction

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finvault/finvault-api/internal/middleware"
	"github.com/finvault/finvault-api/internal/pkg/response"
)

type Handler struct {
	repo     *Repository
	walletID func(r *http.Request, userID uuid.UUID) (uuid.UUID, error)
}

func NewHandler(repo *Repository, walletID func(r *http.Request, userID uuid.UUID) (uuid.UUID, error)) *Handler {
	return &Handler{repo: repo, walletID: walletID}
}

// List returns the caller's statement, newest first
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	walletID, err := h.walletID(r, userID)
	if err != nil {
		response.NotFound(w, "wallet not found")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	legs, err := h.repo.ListByWallet(r.Context(), walletID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"transactions": legs})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	return r
}
