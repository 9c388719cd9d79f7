package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// ActivityRepo is the in-memory append-only point log.
type ActivityRepo struct {
	mu      sync.RWMutex
	entries []*model.Activity
	byUser  map[string][]int
}

var _ core.ActivityRepository = (*ActivityRepo)(nil)

// NewActivityRepo creates an empty ActivityRepo.
func NewActivityRepo() *ActivityRepo {
	return &ActivityRepo{byUser: make(map[string][]int)}
}

// Append records one credit.
func (r *ActivityRepo) Append(_ context.Context, entry *model.Activity) error {
	if entry == nil || entry.UserID == "" {
		return apperrors.Validation("activity user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entry
	r.entries = append(r.entries, &cp)
	r.byUser[entry.UserID] = append(r.byUser[entry.UserID], len(r.entries)-1)
	return nil
}

// TotalsSince sums activity per user for entries at or after since.
func (r *ActivityRepo) TotalsSince(_ context.Context, since time.Time) (map[string]core.ActivityTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := make(map[string]core.ActivityTotals)
	for _, e := range r.entries {
		if e.OccurredAt.Before(since) {
			continue
		}
		t := totals[e.UserID]
		t.Points += e.Points
		t.TimeSavedSec += e.TimeSavedSec
		if e.Kind == model.ActivityKindReferral {
			t.Referrals++
		}
		totals[e.UserID] = t
	}
	return totals, nil
}

// ListByUser returns the user's entries most-recent-first.
func (r *ActivityRepo) ListByUser(_ context.Context, userID string, limit int) ([]*model.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idxs := r.byUser[userID]
	out := make([]*model.Activity, 0, len(idxs))
	for i := len(idxs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *r.entries[idxs[i]]
		out = append(out, &cp)
	}
	return out, nil
}
