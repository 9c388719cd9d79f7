package httpx

import (
	"errors"
	"net/http"

	"github.com/soundrise/creator-api/internal/domain/model"
	"github.com/soundrise/creator-api/internal/service"
)

// ReferralHandlers provides HTTP handlers for referral operations.
type ReferralHandlers struct {
	Svc *service.ReferralService
}

// CreateReferral handles HTTP requests to record a referral signup. The
// referrer is the authenticated caller.
func (h *ReferralHandlers) CreateReferral(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReferralRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.ReferrerID = CurrentUserID(r.Context())

	ref, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ref)
}

// CompleteReferral handles HTTP requests to mark a referral's onboarding
// complete, crediting the referrer exactly once.
func (h *ReferralHandlers) CompleteReferral(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("referral id is required")})
		return
	}

	ref, err := h.Svc.Complete(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ref)
}

// ListReferrals handles HTTP requests to list the caller's referrals.
func (h *ReferralHandlers) ListReferrals(w http.ResponseWriter, r *http.Request) {
	refs, err := h.Svc.ListByReferrer(r.Context(), CurrentUserID(r.Context()))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"referrals": refs})
}
