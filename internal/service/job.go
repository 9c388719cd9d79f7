package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	"github.com/soundrise/creator-api/internal/domain/scoring"
	apperrors "github.com/soundrise/creator-api/internal/errors"
	"github.com/soundrise/creator-api/internal/observability/metrics"
	"github.com/soundrise/creator-api/internal/observability/statsd"
)

// queueDelay is the simulated dwell time between accepting a job and the
// worker picking it up.
const queueDelay = 500 * time.Millisecond

// taskTimeout bounds the background storage work a fired timer performs.
const taskTimeout = 10 * time.Second

// JobDeps groups the collaborators of JobService.
type JobDeps struct {
	Jobs      core.JobRepository
	Ledger    *LedgerService
	Scheduler core.TaskScheduler
	Metrics   statsd.Sink // Optional
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Deps   JobDeps
	Policy *scoring.Policy
	// FailFunc optionally decides whether a running job fails instead of
	// completing, returning the failure reason. Nil means jobs always
	// succeed.
	FailFunc func(job *model.Job) (bool, string)
}

// JobService owns the job lifecycle. Jobs move queued → running →
// done|failed; both hops are driven by cancellable scheduler tasks, never
// by callers, and a successful completion credits the reward through the
// ledger exactly once.
type JobService struct {
	jobs      core.JobRepository
	ledger    *LedgerService
	scheduler core.TaskScheduler
	policy    *scoring.Policy
	failFunc  func(job *model.Job) (bool, string)
	metrics   statsd.Sink
	logger    *slog.Logger
	now       func() time.Time
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) *JobService {
	if opts.Deps.Jobs == nil {
		panic("JobRepository is required")
	}
	if opts.Deps.Ledger == nil {
		panic("LedgerService is required")
	}
	if opts.Deps.Scheduler == nil {
		panic("TaskScheduler is required")
	}
	policy := opts.Policy
	if policy == nil {
		policy = scoring.DefaultPolicy()
	}
	return &JobService{
		jobs:      opts.Deps.Jobs,
		ledger:    opts.Deps.Ledger,
		scheduler: opts.Deps.Scheduler,
		policy:    policy,
		failFunc:  opts.FailFunc,
		metrics:   opts.Deps.Metrics,
		logger:    slog.Default().With("component", "jobs"),
		now:       time.Now,
	}
}

// CreateJob validates and stores a new job in status queued, then schedules
// the simulated worker pickup. The call returns as soon as the job is
// accepted; processing happens behind the scheduler.
func (s *JobService) CreateJob(ctx context.Context, req model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Normalize()

	job := &model.Job{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		Type:             req.Type,
		Status:           model.JobStatusQueued,
		Tier:             req.Tier,
		InputDurationSec: req.InputDurationSec,
		InputURL:         req.InputURL,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.scheduler.Schedule(startTaskID(job.ID), queueDelay, func() { s.startJob(job) })
	s.logger.InfoContext(ctx, "job accepted",
		"job_id", job.ID, "user_id", job.UserID, "type", job.Type, "tier", job.Tier)
	return job, nil
}

// GetJob returns the job when it belongs to userID, otherwise NotFound.
// Ownership is folded into NotFound so job IDs are not enumerable across
// users.
func (s *JobService) GetJob(ctx context.Context, userID, id string) (*model.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	return job, nil
}

// GetUserJobs returns the user's jobs most-recent-first.
func (s *JobService) GetUserJobs(ctx context.Context, userID string, limit int) ([]*model.Job, error) {
	if userID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	return s.jobs.ListByUser(ctx, userID, limit)
}

// GetUserJobStats aggregates the user's jobs by status plus reward totals.
func (s *JobService) GetUserJobStats(ctx context.Context, userID string) (*model.JobStats, error) {
	if userID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	return s.jobs.StatsByUser(ctx, userID)
}

// CancelJob fails a still-queued job on behalf of its owner. Running and
// terminal jobs cannot be canceled; the attempt returns Conflict.
func (s *JobService) CancelJob(ctx context.Context, userID, id string) (*model.Job, error) {
	job, err := s.GetJob(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusQueued {
		return nil, apperrors.Conflictf("job %s is %s and cannot be canceled", id, job.Status)
	}

	// Cancel the pickup timer first so the worker cannot race the Fail.
	// If the timer already fired, the guarded transition below reports the
	// conflict.
	s.scheduler.Cancel(startTaskID(id))
	ok, err := s.jobs.Fail(ctx, id, "canceled by user", s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflictf("job %s is no longer queued", id)
	}
	return s.jobs.GetByID(ctx, id)
}

// Stop cancels all pending simulated work. In-flight state transitions
// finish; jobs still queued or running stay where they are and a restart
// sweep can requeue them.
func (s *JobService) Stop() {
	s.scheduler.Stop()
}

// RecoverPending reschedules simulated processing for jobs that were
// queued or running when the process last stopped. Enumeration goes by
// job status, so jobs from users without a ledger profile yet are
// recovered too.
func (s *JobService) RecoverPending(ctx context.Context) (int, error) {
	jobs, err := s.jobs.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending jobs: %w", err)
	}
	for _, job := range jobs {
		switch job.Status {
		case model.JobStatusQueued:
			s.scheduler.Schedule(startTaskID(job.ID), queueDelay, s.startFunc(job))
		case model.JobStatusRunning:
			s.scheduler.Schedule(finishTaskID(job.ID), s.processingDelay(job), s.finishFunc(job))
		case model.JobStatusDone, model.JobStatusFailed:
		}
	}
	return len(jobs), nil
}

func (s *JobService) startFunc(job *model.Job) func() {
	return func() { s.startJob(job) }
}

func (s *JobService) finishFunc(job *model.Job) func() {
	return func() { s.finishJob(job) }
}

// startJob is the pickup timer callback: queued → running, then schedule
// completion after the simulated processing delay.
func (s *JobService) startJob(job *model.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	ok, err := s.jobs.MarkRunning(ctx, job.ID, s.now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "mark running failed", "job_id", job.ID, "err", err)
		return
	}
	if !ok {
		// Canceled or otherwise transitioned while the timer was pending.
		return
	}

	s.scheduler.Schedule(finishTaskID(job.ID), s.processingDelay(job), s.finishFunc(job))
}

// finishJob is the completion timer callback: running → done|failed, plus
// the ledger credit on success.
func (s *JobService) finishJob(job *model.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	if failed, reason := s.shouldFail(job); failed {
		if _, err := s.jobs.Fail(ctx, job.ID, reason, s.now().UTC()); err != nil {
			s.logger.ErrorContext(ctx, "fail transition failed", "job_id", job.ID, "err", err)
		}
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			JobType:    string(job.Type),
			Tier:       string(job.Tier),
			Transition: "failed",
			Result:     metrics.ResultError,
		})
		return
	}

	reward := s.policy.JobReward(job.Type, job.Tier, job.InputDurationSec)
	ok, err := s.jobs.Complete(ctx, job.ID, core.CompleteJobParams{
		At:           s.now().UTC(),
		ResultURL:    resultURL(job),
		Points:       reward.Points,
		TimeSavedSec: reward.TimeSavedSec,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "complete transition failed", "job_id", job.ID, "err", err)
		return
	}
	if !ok {
		return
	}

	// The guarded transition above makes this credit fire at most once per
	// job, even if the timer is somehow scheduled twice.
	if _, err := s.ledger.CreditJobCompletion(ctx, job.UserID, reward); err != nil {
		s.logger.ErrorContext(ctx, "job credit failed",
			"job_id", job.ID, "user_id", job.UserID, "err", err)
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			JobType:    string(job.Type),
			Tier:       string(job.Tier),
			Transition: "credit",
			Result:     metrics.ResultError,
			Err:        err,
		})
		return
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    string(job.Type),
		Tier:       string(job.Tier),
		Transition: "done",
		Result:     metrics.ResultSuccess,
		Duration:   s.processingDelay(job),
	})
	s.logger.InfoContext(ctx, "job done",
		"job_id", job.ID, "user_id", job.UserID, "points", reward.Points)
}

func (s *JobService) shouldFail(job *model.Job) (bool, string) {
	if s.failFunc == nil {
		return false, ""
	}
	return s.failFunc(job)
}

func (s *JobService) processingDelay(job *model.Job) time.Duration {
	return s.policy.ProcessingDelay(job.Type, job.Tier, job.InputDurationSec)
}

// resultURL derives the simulated output location from the input.
func resultURL(job *model.Job) *string {
	if job.InputURL == nil {
		return nil
	}
	u := *job.InputURL + "?processed=" + string(job.Type)
	return &u
}

func startTaskID(jobID string) string  { return "job:" + jobID + ":start" }
func finishTaskID(jobID string) string { return "job:" + jobID + ":finish" }
