package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwellhq/inkwell/internal/audit"
	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/notecipher"
	"github.com/inkwellhq/inkwell/internal/service"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
	"github.com/inkwellhq/inkwell/pkg/httputil"
	"github.com/inkwellhq/inkwell/pkg/validator"
)

// NoteHandler handles HTTP requests for note endpoints.
type NoteHandler struct {
	service  *service.NoteService
	recorder audit.Recorder
	logger   *slog.Logger
}

// NewNoteHandler creates a new note HTTP handler.
func NewNoteHandler(svc *service.NoteService, recorder audit.Recorder, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{service: svc, recorder: recorder, logger: logger}
}

// CreateNoteRequest is the JSON request body for creating a note.
type CreateNoteRequest struct {
	Title     string `json:"title" validate:"required,min=1,max=200"`
	Content   string `json:"content"`
	Encrypted bool   `json:"encrypted"`
}

// UpdateNoteRequest is the JSON request body for updating a note. Omitted
// fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content *string `json:"content"`
}

// Create handles POST /api/v1/notes
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	note, err := h.service.Create(r.Context(), service.CreateNoteInput{
		Title:     req.Title,
		Content:   req.Content,
		Encrypted: req.Encrypted,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: note})
}

// List handles GET /api/v1/notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	notes, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(notes, total, page, perPage))
}

// Get handles GET /api/v1/notes/{id}
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	note, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		h.reportIntegrityFailure(r, id.String(), err)
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: note})
}

// Update handles PUT /api/v1/notes/{id}
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	note, err := h.service.Update(r.Context(), id.String(), service.UpdateNoteInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		h.reportIntegrityFailure(r, id.String(), err)
		h.reportPermissionDenied(r, id.String(), "update", err)
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: note})
}

// Delete handles DELETE /api/v1/notes/{id}
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id.String()); err != nil {
		h.reportPermissionDenied(r, id.String(), "delete", err)
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// reportPermissionDenied records a security event when a principal who can
// see a note attempts a write their share does not grant. Row security hides
// notes outright, so reaching a 403 means a read grant was used to probe for
// write access.
func (h *NoteHandler) reportPermissionDenied(r *http.Request, noteID, action string, err error) {
	if !errors.Is(err, apperrors.ErrForbidden) {
		return
	}

	var principalID *string
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		principalID = &p.ID
	}
	h.recorder.Record(r.Context(), &domain.SecurityEvent{
		EventType:     domain.SecurityEventPermissionEscalation,
		Severity:      domain.SeverityWarning,
		PrincipalID:   principalID,
		SourceAddress: clientAddr(r),
		Details:       action + " denied on note " + noteID,
	})
}

// reportIntegrityFailure records a security event when stored ciphertext
// failed its integrity check. That means the database row was altered outside
// the application, which is never routine.
func (h *NoteHandler) reportIntegrityFailure(r *http.Request, noteID string, err error) {
	if !errors.Is(err, notecipher.ErrIntegrity) {
		return
	}

	var principalID *string
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		principalID = &p.ID
	}
	h.recorder.Record(r.Context(), &domain.SecurityEvent{
		EventType:     domain.SecurityEventIntegrityFailure,
		Severity:      domain.SeverityCritical,
		PrincipalID:   principalID,
		SourceAddress: clientAddr(r),
		Details:       "note " + noteID + ": stored ciphertext failed integrity check",
	})
}
