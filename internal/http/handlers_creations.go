package httpx

import (
	"net/http"

	"github.com/soundrise/creator-api/internal/domain/model"
	"github.com/soundrise/creator-api/internal/service"
)

// CreationHandlers provides HTTP handlers for creation records.
type CreationHandlers struct {
	Svc *service.CreationService
}

const (
	defaultCreationLimit = 20
	maxCreationLimit     = 100
)

// CreateCreation handles HTTP requests to publish a creation.
func (h *CreationHandlers) CreateCreation(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCreationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.UserID = CurrentUserID(r.Context())

	c, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

// ListCreations handles HTTP requests to list the caller's creations.
func (h *CreationHandlers) ListCreations(w http.ResponseWriter, r *http.Request) {
	limit := ParseLimit(r, defaultCreationLimit, maxCreationLimit)

	creations, err := h.Svc.ListByUser(r.Context(), CurrentUserID(r.Context()), limit)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"creations": creations})
}
