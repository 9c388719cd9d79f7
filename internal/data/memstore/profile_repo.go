// Package memstore provides in-memory implementations of the core
// repository ports. It is the default single-process deployment store and
// the store used by unit tests; the Postgres repositories in internal/data
// implement the same contracts for external persistence.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// ProfileRepo stores profiles in a map guarded by a read-write lock.
// Per-user mutation locks serialize read-modify-write cycles for one user
// while letting different users update in parallel.
type ProfileRepo struct {
	mu       sync.RWMutex
	profiles map[string]*model.Profile
	locks    sync.Map // userID -> *sync.Mutex
	now      func() time.Time
}

var _ core.ProfileRepository = (*ProfileRepo)(nil)

// NewProfileRepo creates an empty ProfileRepo.
func NewProfileRepo(now func() time.Time) *ProfileRepo {
	if now == nil {
		now = time.Now
	}
	return &ProfileRepo{
		profiles: make(map[string]*model.Profile),
		now:      now,
	}
}

// Get returns an immutable snapshot of the user's profile.
func (r *ProfileRepo) Get(_ context.Context, userID string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, apperrors.NotFoundf("profile %s not found", userID)
	}
	return p.Clone(), nil
}

// Create provisions a profile with zeroed counters.
func (r *ProfileRepo) Create(_ context.Context, userID, handle string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[userID]; ok {
		return nil, apperrors.Conflictf("profile %s already exists", userID)
	}
	p := r.newProfile(userID, handle)
	r.profiles[userID] = p
	return p.Clone(), nil
}

// UpdateAtomic applies fn to the user's profile under a per-user lock.
func (r *ProfileRepo) UpdateAtomic(
	_ context.Context,
	userID string,
	fn func(p *model.Profile) error,
) (*model.Profile, error) {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	current, ok := r.profiles[userID]
	r.mu.RUnlock()

	var work *model.Profile
	if ok {
		work = current.Clone()
	} else {
		work = r.newProfile(userID, "")
	}

	if err := fn(work); err != nil {
		return nil, err
	}
	work.UpdatedAt = r.now().UTC()

	r.mu.Lock()
	r.profiles[userID] = work
	r.mu.Unlock()

	return work.Clone(), nil
}

// List returns a point-in-time snapshot of every profile. Map swaps happen
// under the write lock, so a scan under the read lock never observes a
// half-applied mutation.
func (r *ProfileRepo) List(_ context.Context) ([]*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (r *ProfileRepo) userLock(userID string) *sync.Mutex {
	v, _ := r.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (r *ProfileRepo) newProfile(userID, handle string) *model.Profile {
	if handle == "" {
		handle = defaultHandle(userID)
	}
	now := r.now().UTC()
	return &model.Profile{
		UserID:    userID,
		Handle:    handle,
		Badges:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// defaultHandle derives a stable display handle for profiles provisioned
// implicitly on first credit.
func defaultHandle(userID string) string {
	short := userID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("creator-%s", short)
}
