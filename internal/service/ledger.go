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
	"github.com/soundrise/creator-api/internal/invalidation"
)

// LedgerRepos groups the repositories behind the scoring ledger.
type LedgerRepos struct {
	Profiles   core.ProfileRepository
	Activities core.ActivityRepository
}

// LedgerServiceOptions groups dependencies for LedgerService.
type LedgerServiceOptions struct {
	Repos  LedgerRepos
	Policy *scoring.Policy
	Bus    *invalidation.Bus // Optional: cache invalidation fan-out
}

// LedgerService is the single writer of per-user scoring state. Every
// credit goes through one serialized read-modify-write on the profile, an
// append to the activity log, and an invalidation of the affected
// leaderboard categories, in that order.
type LedgerService struct {
	profiles   core.ProfileRepository
	activities core.ActivityRepository
	policy     *scoring.Policy
	bus        *invalidation.Bus
	logger     *slog.Logger
	now        func() time.Time
}

// NewLedgerService constructs a new LedgerService.
func NewLedgerService(opts LedgerServiceOptions) *LedgerService {
	if opts.Repos.Profiles == nil {
		panic("ProfileRepository is required")
	}
	if opts.Repos.Activities == nil {
		panic("ActivityRepository is required")
	}
	policy := opts.Policy
	if policy == nil {
		policy = scoring.DefaultPolicy()
	}
	return &LedgerService{
		profiles:   opts.Repos.Profiles,
		activities: opts.Repos.Activities,
		policy:     policy,
		bus:        opts.Bus,
		logger:     slog.Default().With("component", "ledger"),
		now:        time.Now,
	}
}

// GetProfile returns the user's ledger snapshot, or NotFound when no
// profile exists yet.
func (s *LedgerService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	return s.profiles.Get(ctx, userID)
}

// EnsureProfile returns the user's ledger snapshot, provisioning a zeroed
// profile on first call. The dashboard read path uses this so a freshly
// signed-up creator sees zeros rather than an error; everything else reads
// through GetProfile and gets NotFound for unknown users.
func (s *LedgerService) EnsureProfile(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile, err = s.profiles.UpdateAtomic(ctx, userID, func(*model.Profile) error { return nil })
	if err != nil {
		return nil, fmt.Errorf("provision profile: %w", err)
	}
	return profile, nil
}

// GetUserActivity returns the user's recent credits, most recent first.
func (s *LedgerService) GetUserActivity(ctx context.Context, userID string, limit int) ([]*model.Activity, error) {
	if userID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	return s.activities.ListByUser(ctx, userID, limit)
}

// NextLevelThreshold returns the points needed for the user's next level,
// or -1 at the top of the table.
func (s *LedgerService) NextLevelThreshold(points int64) int64 {
	return s.policy.NextThreshold(points)
}

// CreditJobCompletion credits a completed job's reward and bumps the job
// counter.
func (s *LedgerService) CreditJobCompletion(ctx context.Context, userID string, reward scoring.Reward) (*model.Profile, error) {
	c := credit{
		kind:         model.ActivityKindJob,
		points:       reward.Points,
		timeSavedSec: reward.TimeSavedSec,
		apply:        func(p *model.Profile) { p.TotalJobs++ },
		categories:   []invalidation.Category{invalidation.CategoryPopularity, invalidation.CategoryTimeSaved},
	}
	return s.applyCredit(ctx, userID, c)
}

// CreditCreation credits a published creation and bumps the creation
// counter.
func (s *LedgerService) CreditCreation(ctx context.Context, userID string) (*model.Profile, error) {
	c := credit{
		kind:       model.ActivityKindCreation,
		points:     scoring.CreationPoints,
		apply:      func(p *model.Profile) { p.TotalCreations++ },
		categories: []invalidation.Category{invalidation.CategoryPopularity},
	}
	return s.applyCredit(ctx, userID, c)
}

// CreditReferral credits the referrer for a completed referral and bumps
// the referral counter.
func (s *LedgerService) CreditReferral(ctx context.Context, referrerID string) (*model.Profile, error) {
	c := credit{
		kind:       model.ActivityKindReferral,
		points:     scoring.ReferralPoints,
		apply:      func(p *model.Profile) { p.TotalReferrals++ },
		categories: []invalidation.Category{invalidation.CategoryPopularity, invalidation.CategoryReferrals},
	}
	return s.applyCredit(ctx, referrerID, c)
}

// CreditBadgeBonus records a badge on the profile and credits its bonus.
// The bonus is issued at most once per (user, badge): if the profile
// already holds the badge the call is a no-op and awarded is false.
func (s *LedgerService) CreditBadgeBonus(
	ctx context.Context,
	userID string,
	def model.BadgeDefinition,
) (profile *model.Profile, awarded bool, err error) {
	if userID == "" {
		return nil, false, apperrors.ValidationField("user_id", "user id is required")
	}

	profile, err = s.profiles.UpdateAtomic(ctx, userID, func(p *model.Profile) error {
		if p.HasBadge(def.ID) {
			return nil
		}
		awarded = true
		p.Badges = append(p.Badges, def.ID)
		s.mutateScore(p, def.RewardPoints, def.RewardTimeSavedSec)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("award badge %s: %w", def.ID, err)
	}
	if !awarded {
		return profile, false, nil
	}

	s.appendActivity(ctx, userID, model.ActivityKindBadge, def.RewardPoints, def.RewardTimeSavedSec)
	s.invalidate(invalidation.CategoryPopularity, invalidation.CategoryTimeSaved)
	s.logger.InfoContext(ctx, "badge awarded",
		"user_id", userID, "badge_id", def.ID, "points", def.RewardPoints)
	return profile, true, nil
}

// credit describes one ledger mutation.
type credit struct {
	kind         model.ActivityKind
	points       int64
	timeSavedSec int64
	apply        func(p *model.Profile)
	categories   []invalidation.Category
}

func (s *LedgerService) applyCredit(ctx context.Context, userID string, c credit) (*model.Profile, error) {
	if userID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}

	profile, err := s.profiles.UpdateAtomic(ctx, userID, func(p *model.Profile) error {
		s.mutateScore(p, c.points, c.timeSavedSec)
		if c.apply != nil {
			c.apply(p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("credit %s: %w", c.kind, err)
	}

	s.appendActivity(ctx, userID, c.kind, c.points, c.timeSavedSec)
	s.invalidate(c.categories...)
	return profile, nil
}

// mutateScore applies points and time saved to a locked profile and
// recomputes the level. Totals are clamped at zero so a misconfigured
// negative reward can never drive the ledger negative.
func (s *LedgerService) mutateScore(p *model.Profile, points, timeSavedSec int64) {
	p.PointsTotal += points
	if p.PointsTotal < 0 {
		p.PointsTotal = 0
	}
	p.TimeSavedSecTotal += timeSavedSec
	if p.TimeSavedSecTotal < 0 {
		p.TimeSavedSecTotal = 0
	}
	p.Level = s.policy.Level(p.PointsTotal)
}

// appendActivity records the credit in the point log. The profile update
// has already committed, so a log failure is reported but not rolled back;
// weekly boards may briefly undercount until the next credit.
func (s *LedgerService) appendActivity(ctx context.Context, userID string, kind model.ActivityKind, points, timeSavedSec int64) {
	entry := &model.Activity{
		ID:           uuid.NewString(),
		UserID:       userID,
		Kind:         kind,
		Points:       points,
		TimeSavedSec: timeSavedSec,
		OccurredAt:   s.now().UTC(),
	}
	if err := s.activities.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "append activity failed",
			"user_id", userID, "kind", kind, "err", err)
	}
}

func (s *LedgerService) invalidate(categories ...invalidation.Category) {
	if s.bus == nil {
		return
	}
	s.bus.Invalidate(categories...)
}
