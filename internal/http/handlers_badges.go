package httpx

import (
	"net/http"

	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
	"github.com/soundrise/creator-api/internal/service"
)

// BadgeHandlers provides HTTP handlers for badge reads.
type BadgeHandlers struct {
	Svc *service.BadgeService
}

// ListBadges handles HTTP requests for the caller's earned badges.
// Evaluation runs first so a crossed threshold shows up on the same read.
// A caller with no ledger profile yet simply has no badges.
func (h *BadgeHandlers) ListBadges(w http.ResponseWriter, r *http.Request) {
	userID := CurrentUserID(r.Context())

	newlyEarned, err := h.Svc.EvaluateUser(r.Context(), userID)
	if err != nil && !apperrors.IsNotFound(err) {
		WriteAppError(w, err)
		return
	}
	badges, err := h.Svc.GetUserBadges(r.Context(), userID)
	if err != nil && !apperrors.IsNotFound(err) {
		WriteAppError(w, err)
		return
	}
	if badges == nil {
		badges = []model.EarnedBadge{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"badges":       badges,
		"newly_earned": newlyEarned,
	})
}

// BadgeProgress handles HTTP requests for progress toward unearned badges.
func (h *BadgeHandlers) BadgeProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.Svc.GetBadgeProgress(r.Context(), CurrentUserID(r.Context()))
	if err != nil {
		if apperrors.IsNotFound(err) {
			WriteJSON(w, http.StatusOK, map[string]any{"progress": []model.BadgeProgress{}})
			return
		}
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"progress": progress})
}
