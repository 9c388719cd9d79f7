package data

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
	"github.com/soundrise/creator-api/internal/testutil"
)

// These tests exercise the Postgres repositories against a real database
// and skip when none is reachable (see testutil.SkipIfNoTestDB). They
// share one database, so they run sequentially.

func newQueuedJob(userID string) *model.Job {
	return &model.Job{
		ID:               uuid.NewString(),
		UserID:           userID,
		Type:             model.JobTypeEnhance,
		Status:           model.JobStatusQueued,
		Tier:             model.TierFree,
		InputDurationSec: 120,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestProfileRepo_GetUnknownIsNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	_, err := NewProfileRepo(db).Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProfileRepo_UpdateAtomicKeepsConcurrentIncrements(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	repo := NewProfileRepo(db)
	ctx := context.Background()

	const (
		writers = 8
		rounds  = 5
		delta   = int64(10)
	)

	var wg sync.WaitGroup
	errs := make(chan error, writers*rounds)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, err := repo.UpdateAtomic(ctx, "alice", func(p *model.Profile) error {
					p.PointsTotal += delta
					p.TotalJobs++
					return nil
				})
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// The row lock serializes every read-modify-write, so no increment is
	// lost even under contention.
	profile, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(writers*rounds)*delta, profile.PointsTotal)
	assert.Equal(t, writers*rounds, profile.TotalJobs)
	assert.Equal(t, "creator-alice", profile.Handle)
}

func TestProfileRepo_UpdateAtomicRollsBackOnError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	repo := NewProfileRepo(db)
	ctx := context.Background()

	_, err := repo.UpdateAtomic(ctx, "bob", func(p *model.Profile) error {
		p.PointsTotal += 100
		return nil
	})
	require.NoError(t, err)

	_, err = repo.UpdateAtomic(ctx, "bob", func(p *model.Profile) error {
		p.PointsTotal += 999
		return apperrors.Validation("rejected")
	})
	require.Error(t, err)

	profile, err := repo.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(100), profile.PointsTotal, "failed update leaves the row unchanged")
}

func TestJobRepo_SingleTerminalTransition(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	repo := NewJobRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	job := newQueuedJob("alice")
	require.NoError(t, repo.Create(ctx, job))

	// Completion requires the running state.
	ok, err := repo.Complete(ctx, job.ID, core.CompleteJobParams{At: now, Points: 20})
	require.NoError(t, err)
	assert.False(t, ok, "queued job cannot complete")

	ok, err = repo.MarkRunning(ctx, job.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkRunning(ctx, job.ID, now)
	require.NoError(t, err)
	assert.False(t, ok, "running job cannot start again")

	ok, err = repo.Complete(ctx, job.ID, core.CompleteJobParams{At: now, Points: 20, TimeSavedSec: 480})
	require.NoError(t, err)
	assert.True(t, ok)

	// Terminal means terminal: neither transition fires again.
	ok, err = repo.Fail(ctx, job.ID, "too late", now)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.Complete(ctx, job.ID, core.CompleteJobParams{At: now, Points: 20})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, got.Status)
	assert.Equal(t, int64(20), got.PointsEarned)
	assert.Equal(t, int64(480), got.TimeSavedSec)
}

func TestJobRepo_FailFromQueued(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	repo := NewJobRepo(db)
	ctx := context.Background()

	job := newQueuedJob("alice")
	require.NoError(t, repo.Create(ctx, job))

	ok, err := repo.Fail(ctx, job.ID, "canceled by user", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkRunning(ctx, job.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok, "failed job cannot start")

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Error)
	assert.Equal(t, "canceled by user", *got.Error)
}

func TestJobRepo_ListPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	repo := NewJobRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	older := newQueuedJob("alice")
	older.CreatedAt = now.Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, older))

	running := newQueuedJob("bob")
	require.NoError(t, repo.Create(ctx, running))
	ok, err := repo.MarkRunning(ctx, running.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	done := newQueuedJob("carol")
	require.NoError(t, repo.Create(ctx, done))
	ok, err = repo.MarkRunning(ctx, done.ID, now)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.Complete(ctx, done.ID, core.CompleteJobParams{At: now})
	require.NoError(t, err)
	require.True(t, ok)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID, "oldest first")
	assert.Equal(t, running.ID, pending[1].ID)
	assert.Equal(t, model.JobStatusRunning, pending[1].Status)
}

func TestReferralRepo_CreditExactlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	repo := NewReferralRepo(db)
	ctx := context.Background()

	ref := &model.Referral{
		ID:         uuid.NewString(),
		ReferrerID: "alice",
		ReferredID: "bob",
		Code:       "WELCOME",
		Status:     model.ReferralStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, ref))

	// The unique referred_id constraint rejects a second referral for bob.
	dup := &model.Referral{
		ID:         uuid.NewString(),
		ReferrerID: "carol",
		ReferredID: "bob",
		Code:       "WELCOME",
		Status:     model.ReferralStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	err := repo.Create(ctx, dup)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))

	ok, err := repo.Credit(ctx, ref.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Credit(ctx, ref.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok, "credit pays out once")

	got, err := repo.GetByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusCredited, got.Status)
	require.NotNil(t, got.CreditedAt)
}
