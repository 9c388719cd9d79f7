// Package httpx provides the JSON API for the creator gamification engine.
package httpx

import (
	"errors"
	"net/http"

	"github.com/soundrise/creator-api/internal/domain/model"
	"github.com/soundrise/creator-api/internal/service"
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc *service.JobService
}

const (
	defaultJobListLimit = 20
	maxJobListLimit     = 100
)

// CreateJob handles HTTP requests to submit a new processing job.
// The user and tier come from the session, never from the body.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())

	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.UserID = sess.UserID
	req.Tier = model.Tier(sess.Tier)

	job, err := h.Svc.CreateJob(r.Context(), req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// GetJob handles HTTP requests to fetch one of the caller's jobs.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	job, err := h.Svc.GetJob(r.Context(), CurrentUserID(r.Context()), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles HTTP requests to list the caller's jobs.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := ParseLimit(r, defaultJobListLimit, maxJobListLimit)

	jobs, err := h.Svc.GetUserJobs(r.Context(), CurrentUserID(r.Context()), limit)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// JobStats handles HTTP requests for the caller's per-status job counts.
func (h *JobHandlers) JobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.GetUserJobStats(r.Context(), CurrentUserID(r.Context()))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// CancelJob handles HTTP requests to cancel a still-queued job.
func (h *JobHandlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	job, err := h.Svc.CancelJob(r.Context(), CurrentUserID(r.Context()), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}
