package schedule

import (
	"errors"
	"net/http"
	"strconv"

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

// Create handles POST /schedules
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req ScheduleRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, "validation failed", details)
		return
	}

	row, err := h.svc.Schedule(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, row)
}

// List handles GET /schedules
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
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

	rows, err := h.svc.List(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"schedules": rows})
}

// Series handles GET /schedules/{scheduleID}/series
func (h *Handler) Series(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.BadRequest(w, "invalid schedule id")
		return
	}

	rows, err := h.svc.Series(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"schedules": rows})
}

// Update handles PATCH /schedules/{scheduleID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.BadRequest(w, "invalid schedule id")
		return
	}

	var req UpdateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, "validation failed", details)
		return
	}

	row, err := h.svc.Update(r.Context(), id, userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, row)
}

// Cancel handles DELETE /schedules/{scheduleID}
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.BadRequest(w, "invalid schedule id")
		return
	}

	if err := h.svc.Cancel(r.Context(), id, userID); err != nil {
		h.writeError(w, err)
		return
	}
	response.NoContent(w)
}

// CancelSeries handles DELETE /schedules/{scheduleID}/series
func (h *Handler) CancelSeries(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.BadRequest(w, "invalid schedule id")
		return
	}

	n, err := h.svc.CancelSeries(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"cancelled": n})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrScheduleNotFound):
		response.NotFound(w, "scheduled transfer not found")
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(w, "scheduled transfer belongs to another user")
	case errors.Is(err, ErrNotPending):
		response.Conflict(w, "scheduled transfer is no longer pending")
	case errors.Is(err, ErrPastSchedule):
		response.BadRequest(w, "scheduled time must be in the future")
	case errors.Is(err, ErrRecurrenceParams):
		response.BadRequest(w, "recurring transfer needs a future end date or a positive occurrence count")
	case errors.Is(err, ErrSelfSchedule):
		response.BadRequest(w, "cannot schedule a transfer to yourself")
	case errors.Is(err, ErrReceiverNotFound):
		response.NotFound(w, "receiver not found")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{scheduleID}/series", h.Series)
	r.Patch("/{scheduleID}", h.Update)
	r.Delete("/{scheduleID}", h.Cancel)
	r.Delete("/{scheduleID}/series", h.CancelSeries)
	return r
}
