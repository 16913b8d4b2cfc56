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

// FriendHandler handles HTTP requests for friendship endpoints.
type FriendHandler struct {
	service *service.FriendService
	logger  *slog.Logger
}

// NewFriendHandler creates a new friend HTTP handler.
func NewFriendHandler(svc *service.FriendService, logger *slog.Logger) *FriendHandler {
	return &FriendHandler{service: svc, logger: logger}
}

// FriendRequestRequest is the JSON request body for sending a friend request.
type FriendRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Request handles POST /api/v1/friends
func (h *FriendHandler) Request(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req FriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	friendship, err := h.service.Request(r.Context(), req.Email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: friendship})
}

// Accept handles POST /api/v1/friends/{id}/accept
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	friendship, err := h.service.Accept(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: friendship})
}

// Remove handles DELETE /api/v1/friends/{id}
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/friends
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	friendships, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if friendships == nil {
		friendships = []domain.Friendship{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: friendships})
}
