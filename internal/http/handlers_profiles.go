package httpx

import (
	"log/slog"
	"net/http"

	"github.com/soundrise/creator-api/internal/service"
)

// ProfileHandlers provides HTTP handlers for ledger profile reads.
type ProfileHandlers struct {
	Ledger *service.LedgerService
	Badges *service.BadgeService
	Logger *slog.Logger // Optional
}

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// GetProfile handles HTTP requests for the caller's own ledger snapshot.
// Badge evaluation runs lazily here so thresholds crossed by background
// job completions surface on the next dashboard load.
func (h *ProfileHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := CurrentUserID(r.Context())

	if _, err := h.Ledger.EnsureProfile(r.Context(), userID); err != nil {
		WriteAppError(w, err)
		return
	}
	if h.Badges != nil {
		if _, err := h.Badges.EvaluateUser(r.Context(), userID); err != nil {
			// Evaluation failure must not block the profile read.
			h.logger().Warn("badge evaluation failed", "user_id", userID, "err", err)
		}
	}

	profile, err := h.Ledger.GetProfile(r.Context(), userID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"profile":              profile,
		"next_level_threshold": h.Ledger.NextLevelThreshold(profile.PointsTotal),
	})
}

func (h *ProfileHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// GetActivity handles HTTP requests for the caller's recent credit log.
func (h *ProfileHandlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	limit := ParseLimit(r, defaultActivityLimit, maxActivityLimit)

	entries, err := h.Ledger.GetUserActivity(r.Context(), CurrentUserID(r.Context()), limit)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"activity": entries})
}
