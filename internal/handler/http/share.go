package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/service"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
	"github.com/inkwellhq/inkwell/pkg/httputil"
	"github.com/inkwellhq/inkwell/pkg/validator"
)

// ShareHandler handles HTTP requests for note sharing endpoints.
type ShareHandler struct {
	service *service.ShareService
	logger  *slog.Logger
}

// NewShareHandler creates a new share HTTP handler.
func NewShareHandler(svc *service.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{service: svc, logger: logger}
}

// CreateShareRequest is the JSON request body for sharing a note.
type CreateShareRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	Permission  string `json:"permission" validate:"required,oneof=read write"`
}

// Create handles POST /api/v1/notes/{id}/shares
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	noteID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	share, err := h.service.Create(r.Context(), service.CreateShareInput{
		NoteID:      noteID.String(),
		RecipientID: req.RecipientID,
		Permission:  req.Permission,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: share})
}

// ListForNote handles GET /api/v1/notes/{id}/shares
func (h *ShareHandler) ListForNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	shares, err := h.service.ListForNote(r.Context(), noteID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if shares == nil {
		shares = []domain.NoteShare{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shares})
}

// UpdateShareRequest is the JSON request body for changing a share's permission.
type UpdateShareRequest struct {
	Permission string `json:"permission" validate:"required,oneof=read write"`
}

// Update handles PUT /api/v1/shares/{id}
func (h *ShareHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req UpdateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	share, err := h.service.UpdatePermission(r.Context(), id.String(), req.Permission)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: share})
}

// Revoke handles DELETE /api/v1/shares/{id}
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Revoke(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
