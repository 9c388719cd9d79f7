package httpx

import (
	"net/http"

	"github.com/soundrise/creator-api/internal/domain/model"
	"github.com/soundrise/creator-api/internal/service"
)

// LeaderboardHandlers provides HTTP handlers for leaderboard reads.
type LeaderboardHandlers struct {
	Svc *service.LeaderboardService
}

// GetLeaderboard handles HTTP requests for one ranked view. Type and
// period come from the path, the window size from the query, and the
// requester's own row is always included when authenticated.
func (h *LeaderboardHandlers) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	query := model.LeaderboardQuery{
		Type:   model.LeaderboardType(r.PathValue("type")),
		Period: model.LeaderboardPeriod(r.PathValue("period")),
		Limit:  parseIntQuery(r, "limit", 0),
		UserID: CurrentUserID(r.Context()),
	}

	board, err := h.Svc.Generate(r.Context(), query)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, board)
}
