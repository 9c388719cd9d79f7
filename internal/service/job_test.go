package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/soundrise/creator-api/internal/data/memstore"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
	"github.com/soundrise/creator-api/internal/mocks"
	"github.com/soundrise/creator-api/internal/testutil"
)

// fakeScheduler captures scheduled tasks so tests can fire them manually
// instead of waiting on real timers.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks map[string]func()
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{tasks: make(map[string]func())}
}

func (s *fakeScheduler) Schedule(id string, _ time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = fn
}

func (s *fakeScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	delete(s.tasks, id)
	return ok
}

func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *fakeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]func())
}

// fire runs and removes the task with the given id, failing the test when
// no such task is pending.
func (s *fakeScheduler) fire(t *testing.T, id string) {
	t.Helper()
	s.mu.Lock()
	fn, ok := s.tasks[id]
	delete(s.tasks, id)
	s.mu.Unlock()
	require.True(t, ok, "no pending task %q", id)
	fn()
}

type jobFixture struct {
	svc       *JobService
	ledger    *LedgerService
	scheduler *fakeScheduler
	repo      *memstore.JobRepo
}

func newJobFixture(t *testing.T, failFunc func(*model.Job) (bool, string)) *jobFixture {
	t.Helper()

	profiles := memstore.NewProfileRepo(nil)
	activities := memstore.NewActivityRepo()
	ledger := NewLedgerService(LedgerServiceOptions{
		Repos: LedgerRepos{Profiles: profiles, Activities: activities},
	})

	sched := newFakeScheduler()
	repo := memstore.NewJobRepo()
	svc := NewJobService(JobServiceOptions{
		Deps: JobDeps{
			Jobs:      repo,
			Ledger:    ledger,
			Scheduler: sched,
		},
		FailFunc: failFunc,
	})
	return &jobFixture{svc: svc, ledger: ledger, scheduler: sched, repo: repo}
}

func TestJobService_CreateJob(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, nil)
	ctx := context.Background()

	req := testutil.NewJobRequest().WithUser("user-1").WithInputURL("https://cdn.example.com/in.wav").Build()
	job, err := f.svc.CreateJob(ctx, req)
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, model.TierFree, job.Tier)
	assert.Equal(t, 1, f.scheduler.Pending(), "pickup task scheduled")
}

func TestJobService_CreateJobValidation(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  model.CreateJobRequest
	}{
		{"missing user", testutil.NewJobRequest().WithUser("").Build()},
		{"unknown type", testutil.NewJobRequest().WithType("remix").Build()},
		{"zero duration", testutil.NewJobRequest().WithDuration(0).Build()},
		{"bad tier", testutil.NewJobRequest().WithTier("platinum").Build()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.svc.CreateJob(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
			assert.Equal(t, 0, f.scheduler.Pending())
		})
	}
}

func TestJobService_LifecycleCompletesAndCredits(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, nil)
	ctx := context.Background()

	req := testutil.NewJobRequest().
		WithUser("user-1").
		WithType(model.JobTypeEnhance).
		WithDuration(120).
		WithInputURL("https://cdn.example.com/in.wav").
		Build()
	job, err := f.svc.CreateJob(ctx, req)
	require.NoError(t, err)

	f.scheduler.fire(t, "job:"+job.ID+":start")
	got, err := f.svc.GetJob(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)

	f.scheduler.fire(t, "job:"+job.ID+":finish")
	got, err = f.svc.GetJob(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, got.Status)
	assert.Equal(t, int64(20), got.PointsEarned)
	assert.Equal(t, int64(480), got.TimeSavedSec)
	require.NotNil(t, got.ResultURL)
	assert.Equal(t, "https://cdn.example.com/in.wav?processed=enhance", *got.ResultURL)

	profile, err := f.ledger.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), profile.PointsTotal)
	assert.Equal(t, int64(480), profile.TimeSavedSecTotal)
	assert.Equal(t, 1, profile.TotalJobs)
}

func TestJobService_FailedJobEarnsNothing(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, func(*model.Job) (bool, string) {
		return true, "decode error"
	})
	ctx := context.Background()

	job, err := f.svc.CreateJob(ctx, testutil.NewJobRequest().WithUser("user-1").Build())
	require.NoError(t, err)

	f.scheduler.fire(t, "job:"+job.ID+":start")
	f.scheduler.fire(t, "job:"+job.ID+":finish")

	got, err := f.svc.GetJob(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "decode error", *got.Error)
	assert.Equal(t, int64(0), got.PointsEarned)

	// No credit means no ledger profile was ever provisioned.
	_, err = f.ledger.GetProfile(ctx, "user-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobService_CancelQueuedJob(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, nil)
	ctx := context.Background()

	job, err := f.svc.CreateJob(ctx, testutil.NewJobRequest().WithUser("user-1").Build())
	require.NoError(t, err)

	canceled, err := f.svc.CancelJob(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, canceled.Status)
	require.NotNil(t, canceled.Error)
	assert.Equal(t, "canceled by user", *canceled.Error)
	assert.Equal(t, 0, f.scheduler.Pending(), "pickup timer removed")
}

func TestJobService_CancelRunningJobConflicts(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, nil)
	ctx := context.Background()

	job, err := f.svc.CreateJob(ctx, testutil.NewJobRequest().WithUser("user-1").Build())
	require.NoError(t, err)
	f.scheduler.fire(t, "job:"+job.ID+":start")

	_, err = f.svc.CancelJob(ctx, "user-1", job.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
}

func TestJobService_GetJobHidesOtherUsers(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, nil)
	ctx := context.Background()

	job, err := f.svc.CreateJob(ctx, testutil.NewJobRequest().WithUser("user-1").Build())
	require.NoError(t, err)

	_, err = f.svc.GetJob(ctx, "user-2", job.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err), "foreign jobs look absent")

	_, err = f.svc.CancelJob(ctx, "user-2", job.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
}

func TestJobService_RecoverPending(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, nil)
	ctx := context.Background()

	queued, err := f.svc.CreateJob(ctx, testutil.NewJobRequest().WithUser("user-1").Build())
	require.NoError(t, err)
	running, err := f.svc.CreateJob(ctx, testutil.NewJobRequest().WithUser("user-1").Build())
	require.NoError(t, err)
	f.scheduler.fire(t, "job:"+running.ID+":start")

	// Simulate a restart: all timers are gone.
	f.scheduler.Stop()
	require.Equal(t, 0, f.scheduler.Pending())

	recovered, err := f.svc.RecoverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, recovered)
	assert.Equal(t, 2, f.scheduler.Pending())

	f.scheduler.fire(t, "job:"+queued.ID+":start")
	f.scheduler.fire(t, "job:"+queued.ID+":finish")
	f.scheduler.fire(t, "job:"+running.ID+":finish")

	stats, err := f.svc.GetUserJobStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Done)
}

func TestJobService_RecoverPendingWithoutProfile(t *testing.T) {
	t.Parallel()
	f := newJobFixture(t, nil)
	ctx := context.Background()

	// A brand-new user has a queued job but no ledger profile yet; the
	// profile only appears with the first credit.
	job, err := f.svc.CreateJob(ctx, testutil.NewJobRequest().WithUser("fresh-user").Build())
	require.NoError(t, err)
	_, err = f.ledger.GetProfile(ctx, "fresh-user")
	require.Error(t, err)
	require.True(t, apperrors.IsNotFound(err))

	f.scheduler.Stop()
	recovered, err := f.svc.RecoverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	f.scheduler.fire(t, "job:"+job.ID+":start")
	f.scheduler.fire(t, "job:"+job.ID+":finish")

	got, err := f.svc.GetJob(ctx, "fresh-user", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, got.Status)
}

func TestJobService_CreateJobRepoErrorSurfaces(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := mocks.NewMockJobRepository(ctrl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("storage down"))

	ledger := NewLedgerService(LedgerServiceOptions{
		Repos: LedgerRepos{
			Profiles:   memstore.NewProfileRepo(nil),
			Activities: memstore.NewActivityRepo(),
		},
	})
	svc := NewJobService(JobServiceOptions{
		Deps: JobDeps{
			Jobs:      repo,
			Ledger:    ledger,
			Scheduler: newFakeScheduler(),
		},
	})

	_, err := svc.CreateJob(context.Background(), testutil.NewJobRequest().Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage down")
}
