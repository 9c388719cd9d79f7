package memstore

import (
	"context"
	"sort"
	"sync"

	"time"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// JobRepo stores jobs in memory. Status transitions run under the write
// lock, so a job has exactly one terminal transition.
type JobRepo struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
	// byUser keeps insertion order per user for most-recent-first listings.
	byUser map[string][]string
}

var _ core.JobRepository = (*JobRepo)(nil)

// NewJobRepo creates an empty JobRepo.
func NewJobRepo() *JobRepo {
	return &JobRepo{
		jobs:   make(map[string]*model.Job),
		byUser: make(map[string][]string),
	}
}

// Create stores a new job.
func (r *JobRepo) Create(_ context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return apperrors.Validation("job id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return apperrors.Conflictf("job %s already exists", job.ID)
	}
	cp := *job
	r.jobs[job.ID] = &cp
	r.byUser[job.UserID] = append(r.byUser[job.UserID], job.ID)
	return nil
}

// GetByID returns the job or a NotFound error.
func (r *JobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

// ListByUser returns the user's jobs most-recent-first.
func (r *JobRepo) ListByUser(_ context.Context, userID string, limit int) ([]*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	out := make([]*model.Job, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *r.jobs[ids[i]]
		out = append(out, &cp)
	}
	// Insertion order already matches creation time; keep the sort as a
	// guard for jobs created with explicit timestamps in tests.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListPending returns every job still queued or running, oldest first.
func (r *JobRepo) ListPending(_ context.Context) ([]*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Job
	for _, job := range r.jobs {
		if job.Status == model.JobStatusQueued || job.Status == model.JobStatusRunning {
			cp := *job
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRunning transitions queued → running.
func (r *JobRepo) MarkRunning(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false, apperrors.NotFoundf("job %s not found", id)
	}
	if job.Status != model.JobStatusQueued {
		return false, nil
	}
	job.Status = model.JobStatusRunning
	t := at.UTC()
	job.StartedAt = &t
	return true, nil
}

// Complete transitions running → done and records the reward.
func (r *JobRepo) Complete(_ context.Context, id string, p core.CompleteJobParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false, apperrors.NotFoundf("job %s not found", id)
	}
	if job.Status != model.JobStatusRunning {
		return false, nil
	}
	job.Status = model.JobStatusDone
	t := p.At.UTC()
	job.CompletedAt = &t
	job.ResultURL = p.ResultURL
	job.PointsEarned = p.Points
	job.TimeSavedSec = p.TimeSavedSec
	return true, nil
}

// Fail transitions queued|running → failed with a reason.
func (r *JobRepo) Fail(_ context.Context, id, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false, apperrors.NotFoundf("job %s not found", id)
	}
	if job.Status.Terminal() {
		return false, nil
	}
	job.Status = model.JobStatusFailed
	t := at.UTC()
	job.CompletedAt = &t
	job.Error = &reason
	return true, nil
}

// StatsByUser aggregates the user's jobs by status plus reward totals.
func (r *JobRepo) StatsByUser(_ context.Context, userID string) (*model.JobStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &model.JobStats{}
	for _, id := range r.byUser[userID] {
		job := r.jobs[id]
		stats.Total++
		switch job.Status {
		case model.JobStatusQueued:
			stats.Queued++
		case model.JobStatusRunning:
			stats.Running++
		case model.JobStatusDone:
			stats.Done++
			stats.PointsEarned += job.PointsEarned
			stats.TimeSavedSec += job.TimeSavedSec
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}
