package kyc

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finvault/finvault-api/internal/middleware"
	"github.com/finvault/finvault-api/internal/pkg/response"
)

const maxUploadBytes = 10 << 20 // 10 MiB

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Upload accepts a multipart form with a "document" file and a "kind" field
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(w, "file too large or malformed form")
		return
	}

	kind, err := ParseKind(r.FormValue("kind"))
	if err != nil {
		response.BadRequest(w, "kind must be IDENTITY or ADDRESS")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		response.BadRequest(w, "document file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.svc.Upload(r.Context(), userID, kind, header.Filename, contentType, file)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, map[string]interface{}{
		"id":     doc.ID,
		"kind":   doc.Kind,
		"status": doc.Status,
	})
}

// ListMine returns the caller's documents
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	docs, err := h.svc.ListMine(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"documents": docs})
}

// ListPending returns documents awaiting review, admin only
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	docs, err := h.svc.ListPending(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"documents": docs})
}

// Download streams a document file to a reviewer, admin only
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		response.BadRequest(w, "invalid document id")
		return
	}

	doc, rc, err := h.svc.Download(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			response.NotFound(w, "document not found")
			return
		}
		response.InternalError(w)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	io.Copy(w, rc)
}

// Approve marks a document APPROVED, admin only
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		response.BadRequest(w, "invalid document id")
		return
	}

	if err := h.svc.Approve(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrDocumentNotFound):
			response.NotFound(w, "document not found")
		case errors.Is(err, ErrAlreadyApproved):
			response.Conflict(w, "document already approved")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, map[string]interface{}{"id": id, "status": StatusApproved})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject marks a document REJECTED with a reason, admin only
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		response.BadRequest(w, "invalid document id")
		return
	}

	var req rejectRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.svc.Reject(r.Context(), id, req.Reason); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			response.NotFound(w, "document not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"id": id, "status": StatusRejected})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Upload)
	r.Get("/", h.ListMine)
	return r
}

func (h *Handler) AdminRoutes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(adminMiddleware)
	r.Get("/pending", h.ListPending)
	r.Get("/{documentID}/file", h.Download)
	r.Post("/{documentID}/approve", h.Approve)
	r.Post("/{documentID}/reject", h.Reject)
	return r
}
