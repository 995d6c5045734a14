package limits

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finvault/finvault-api/internal/middleware"
	"github.com/finvault/finvault-api/internal/pkg/response"
	"github.com/finvault/finvault-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Overview shows the caller's tier, ceilings and today's usage
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	overview, err := h.svc.Overview(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, overview)
}

type setOverrideRequest struct {
	Tier int `json:"tier" validate:"required,min=1,max=3"`
}

// SetOverride pins a user to a tier, admin only
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	var req setOverrideRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, "validation failed", details)
		return
	}

	if err := h.svc.SetOverride(r.Context(), userID, Tier(req.Tier)); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"user_id": userID, "tier": Tier(req.Tier).String()})
}

// ClearOverride removes a user's tier pin, admin only
func (h *Handler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}
	if err := h.svc.ClearOverride(r.Context(), userID); err != nil {
		response.InternalError(w)
		return
	}
	response.NoContent(w)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Overview)
	return r
}

// AdminRoutes exposes the override management endpoints
func (h *Handler) AdminRoutes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(adminMiddleware)
	r.Put("/{userID}", h.SetOverride)
	r.Delete("/{userID}", h.ClearOverride)
	return r
}
