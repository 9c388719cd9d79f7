package memstore

import (
	"context"
	"sync"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// CreationRepo stores creation records in memory, append-only.
type CreationRepo struct {
	mu        sync.RWMutex
	creations map[string]*model.Creation
	byUser    map[string][]string
}

var _ core.CreationRepository = (*CreationRepo)(nil)

// NewCreationRepo creates an empty CreationRepo.
func NewCreationRepo() *CreationRepo {
	return &CreationRepo{
		creations: make(map[string]*model.Creation),
		byUser:    make(map[string][]string),
	}
}

// Create stores a new creation record.
func (r *CreationRepo) Create(_ context.Context, c *model.Creation) error {
	if c == nil || c.ID == "" {
		return apperrors.Validation("creation id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.creations[c.ID]; ok {
		return apperrors.Conflictf("creation %s already exists", c.ID)
	}
	cp := *c
	r.creations[c.ID] = &cp
	r.byUser[c.UserID] = append(r.byUser[c.UserID], c.ID)
	return nil
}

// ListByUser returns the user's creations most-recent-first.
func (r *CreationRepo) ListByUser(_ context.Context, userID string, limit int) ([]*model.Creation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	out := make([]*model.Creation, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *r.creations[ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}
