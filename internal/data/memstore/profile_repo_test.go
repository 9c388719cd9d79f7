package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

func TestProfileRepo_GetNotFound(t *testing.T) {
	t.Parallel()

	r := NewProfileRepo(nil)
	_, err := r.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
}

func TestProfileRepo_CreateAndGet(t *testing.T) {
	t.Parallel()

	r := NewProfileRepo(nil)
	ctx := context.Background()

	created, err := r.Create(ctx, "user-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Handle)
	assert.Equal(t, int64(0), created.PointsTotal)
	assert.NotNil(t, created.Badges)

	got, err := r.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = r.Create(ctx, "user-1", "alice")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
}

func TestProfileRepo_SnapshotsAreImmutable(t *testing.T) {
	t.Parallel()

	r := NewProfileRepo(nil)
	ctx := context.Background()

	created, err := r.Create(ctx, "user-1", "alice")
	require.NoError(t, err)

	created.PointsTotal = 999
	created.Badges = append(created.Badges, "hacked")

	got, err := r.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.PointsTotal)
	assert.Empty(t, got.Badges)
}

func TestProfileRepo_UpdateAtomicProvisionsMissingProfile(t *testing.T) {
	t.Parallel()

	r := NewProfileRepo(nil)

	p, err := r.UpdateAtomic(context.Background(), "new-user-id", func(p *model.Profile) error {
		p.PointsTotal += 10
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.PointsTotal)
	assert.Equal(t, "creator-new-user", p.Handle)
}

func TestProfileRepo_UpdateAtomicErrorLeavesProfileUnchanged(t *testing.T) {
	t.Parallel()

	r := NewProfileRepo(nil)
	ctx := context.Background()
	_, err := r.Create(ctx, "user-1", "alice")
	require.NoError(t, err)

	_, err = r.UpdateAtomic(ctx, "user-1", func(p *model.Profile) error {
		p.PointsTotal = 500
		return apperrors.Validation("nope")
	})
	require.Error(t, err)

	got, err := r.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.PointsTotal)
}

func TestProfileRepo_UpdateAtomicConcurrentIncrementsNeverLost(t *testing.T) {
	t.Parallel()

	r := NewProfileRepo(nil)
	ctx := context.Background()

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := r.UpdateAtomic(ctx, "user-1", func(p *model.Profile) error {
					p.PointsTotal++
					return nil
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := r.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), got.PointsTotal)
}

func TestProfileRepo_UpdateAtomicSetsUpdatedAt(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	current := base
	r := NewProfileRepo(func() time.Time { return current })
	ctx := context.Background()

	_, err := r.Create(ctx, "user-1", "alice")
	require.NoError(t, err)

	current = base.Add(time.Hour)
	p, err := r.UpdateAtomic(ctx, "user-1", func(p *model.Profile) error {
		p.PointsTotal = 5
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, base, p.CreatedAt)
	assert.Equal(t, base.Add(time.Hour), p.UpdatedAt)
}

func TestProfileRepo_ListSnapshot(t *testing.T) {
	t.Parallel()

	r := NewProfileRepo(nil)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := r.Create(ctx, id, "")
		require.NoError(t, err)
	}

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	seen := map[string]bool{}
	for _, p := range all {
		assert.False(t, seen[p.UserID], "profile %s observed twice", p.UserID)
		seen[p.UserID] = true
	}
}
