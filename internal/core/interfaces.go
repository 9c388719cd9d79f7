// Package core defines the ports between the gamification services and the
// data layer. Services depend on these interfaces; the data layer provides
// Postgres and in-memory implementations.
package core

import (
	"context"
	"time"

	"github.com/soundrise/creator-api/internal/domain/model"
)

// ProfileRepository provides access to per-user ledger profiles.
type ProfileRepository interface {
	// Get returns an immutable snapshot of the user's profile.
	// Returns a NotFound error if the user does not exist.
	Get(ctx context.Context, userID string) (*model.Profile, error)

	// Create provisions a profile with zeroed counters.
	// Returns a Conflict error if the user already has one.
	Create(ctx context.Context, userID, handle string) (*model.Profile, error)

	// UpdateAtomic applies fn to the user's profile as a serialized
	// read-modify-write: concurrent updates to the same user never lose
	// increments, updates to different users proceed in parallel. A missing
	// profile is provisioned with zeroed counters before fn runs. If fn
	// returns an error the profile is left unchanged. Returns a snapshot of
	// the updated profile.
	UpdateAtomic(ctx context.Context, userID string, fn func(p *model.Profile) error) (*model.Profile, error)

	// List returns a point-in-time snapshot of every profile. A profile is
	// never observed twice or omitted due to a concurrent mutation.
	List(ctx context.Context) ([]*model.Profile, error)
}

// CompleteJobParams carries the terminal-success fields for JobRepository.Complete.
type CompleteJobParams struct {
	At           time.Time
	ResultURL    *string
	Points       int64
	TimeSavedSec int64
}

// JobRepository provides access to processing jobs.
//
// Transition methods enforce the state machine at the storage boundary:
// each returns false (without error) when the job was not in the required
// prior state, so a terminal job can never transition again.
type JobRepository interface {
	// Create stores a new job. The job must arrive in status queued.
	Create(ctx context.Context, job *model.Job) error

	// GetByID returns the job or a NotFound error.
	GetByID(ctx context.Context, id string) (*model.Job, error)

	// ListByUser returns the user's jobs most-recent-first, truncated to
	// limit when limit > 0.
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Job, error)

	// ListPending returns every job still queued or running, oldest first.
	// Recovery after a restart reschedules these.
	ListPending(ctx context.Context) ([]*model.Job, error)

	// MarkRunning transitions queued → running.
	MarkRunning(ctx context.Context, id string, at time.Time) (bool, error)

	// Complete transitions running → done and records the reward.
	Complete(ctx context.Context, id string, p CompleteJobParams) (bool, error)

	// Fail transitions queued|running → failed with a reason.
	Fail(ctx context.Context, id, reason string, at time.Time) (bool, error)

	// StatsByUser aggregates the user's jobs by status plus reward totals.
	StatsByUser(ctx context.Context, userID string) (*model.JobStats, error)
}

// ActivityTotals aggregates one user's credited activity over a window.
type ActivityTotals struct {
	Points       int64
	TimeSavedSec int64
	Referrals    int
}

// ActivityRepository is the append-only point log behind weekly
// leaderboards.
type ActivityRepository interface {
	// Append records one credit. Entries are never updated or deleted.
	Append(ctx context.Context, entry *model.Activity) error

	// TotalsSince sums activity per user for entries at or after since.
	TotalsSince(ctx context.Context, since time.Time) (map[string]ActivityTotals, error)

	// ListByUser returns the user's entries most-recent-first, truncated to
	// limit when limit > 0.
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Activity, error)
}

// ReferralRepository provides access to referral records.
type ReferralRepository interface {
	// Create stores a pending referral. Returns a Conflict error when the
	// referred user already has a referral record.
	Create(ctx context.Context, ref *model.Referral) error

	// GetByID returns the referral or a NotFound error.
	GetByID(ctx context.Context, id string) (*model.Referral, error)

	// Credit atomically transitions pending → credited. Returns false when
	// the referral was already credited, so credit is issued exactly once.
	Credit(ctx context.Context, id string, at time.Time) (bool, error)

	// ListByReferrer returns the user's referrals most-recent-first.
	ListByReferrer(ctx context.Context, referrerID string) ([]*model.Referral, error)
}

// CreationRepository provides access to creation records.
type CreationRepository interface {
	// Create stores a new creation record.
	Create(ctx context.Context, c *model.Creation) error

	// ListByUser returns the user's creations most-recent-first, truncated
	// to limit when limit > 0.
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Creation, error)
}
