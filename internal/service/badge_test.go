package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundrise/creator-api/internal/data/memstore"
	"github.com/soundrise/creator-api/internal/domain/model"
	"github.com/soundrise/creator-api/internal/domain/scoring"
)

func newBadgeFixture(t *testing.T, catalog []model.BadgeDefinition) (*BadgeService, *LedgerService) {
	t.Helper()
	ledger := NewLedgerService(LedgerServiceOptions{
		Repos: LedgerRepos{
			Profiles:   memstore.NewProfileRepo(nil),
			Activities: memstore.NewActivityRepo(),
		},
	})
	svc := NewBadgeService(BadgeServiceOptions{Ledger: ledger, Catalog: catalog})
	return svc, ledger
}

func TestBadgeService_PanicsOnBadMetric(t *testing.T) {
	t.Parallel()
	_, ledger := newBadgeFixture(t, nil)

	assert.Panics(t, func() {
		NewBadgeService(BadgeServiceOptions{
			Ledger: ledger,
			Catalog: []model.BadgeDefinition{
				{ID: "broken", Metric: "total_jobs[", Threshold: 1},
			},
		})
	})
}

func TestBadgeService_EvaluateAwardsCrossedThresholds(t *testing.T) {
	t.Parallel()
	svc, ledger := newBadgeFixture(t, nil)
	ctx := context.Background()

	// One completed job crosses first_job only.
	_, err := ledger.CreditJobCompletion(ctx, "user-1", scoring.Reward{Points: 20, TimeSavedSec: 480})
	require.NoError(t, err)

	earned, err := svc.EvaluateUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, "first_job", earned[0].ID)
	assert.Equal(t, "First Steps", earned[0].Name)

	profile, err := ledger.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Contains(t, profile.Badges, "first_job")
	assert.Equal(t, int64(45), profile.PointsTotal, "job points plus badge bonus")
}

func TestBadgeService_EvaluateIsIdempotent(t *testing.T) {
	t.Parallel()
	svc, ledger := newBadgeFixture(t, nil)
	ctx := context.Background()

	_, err := ledger.CreditJobCompletion(ctx, "user-1", scoring.Reward{Points: 20})
	require.NoError(t, err)

	first, err := svc.EvaluateUser(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.EvaluateUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, second, "re-evaluation never re-awards")

	profile, err := ledger.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(45), profile.PointsTotal)
}

func TestBadgeService_TimeSavedBadge(t *testing.T) {
	t.Parallel()
	svc, ledger := newBadgeFixture(t, nil)
	ctx := context.Background()

	// 3600 seconds saved = 60 minutes, exactly the hour_saved threshold.
	_, err := ledger.CreditJobCompletion(ctx, "user-1", scoring.Reward{Points: 10, TimeSavedSec: 3600})
	require.NoError(t, err)

	earned, err := svc.EvaluateUser(ctx, "user-1")
	require.NoError(t, err)

	ids := make([]string, 0, len(earned))
	for _, b := range earned {
		ids = append(ids, b.ID)
	}
	assert.Contains(t, ids, "first_job")
	assert.Contains(t, ids, "hour_saved")
	assert.NotContains(t, ids, "day_saved")
}

func TestBadgeService_BadgeBonusCanCascadeOnNextEvaluation(t *testing.T) {
	t.Parallel()

	catalog := []model.BadgeDefinition{
		{ID: "hundred_points", Name: "Hundred", Metric: "points_total", Threshold: 100, RewardPoints: 100},
		{ID: "two_hundred_points", Name: "Two Hundred", Metric: "points_total", Threshold: 200},
	}
	svc, ledger := newBadgeFixture(t, catalog)
	ctx := context.Background()

	_, err := ledger.CreditJobCompletion(ctx, "user-1", scoring.Reward{Points: 100})
	require.NoError(t, err)

	// First pass sees the pre-bonus snapshot: only the first badge crosses.
	earned, err := svc.EvaluateUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, "hundred_points", earned[0].ID)

	// The bonus pushed the total to 200; the next pass picks up the second.
	earned, err = svc.EvaluateUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, "two_hundred_points", earned[0].ID)
}

func TestBadgeService_GetUserBadgesKeepsUnknownIDs(t *testing.T) {
	t.Parallel()

	catalog := []model.BadgeDefinition{
		{ID: "known", Name: "Known", Metric: "total_jobs", Threshold: 1},
	}
	svc, ledger := newBadgeFixture(t, catalog)
	ctx := context.Background()

	// Simulate a badge earned under an older catalog.
	_, _, err := ledger.CreditBadgeBonus(ctx, "user-1", model.BadgeDefinition{ID: "retired"})
	require.NoError(t, err)
	_, _, err = ledger.CreditBadgeBonus(ctx, "user-1", model.BadgeDefinition{ID: "known"})
	require.NoError(t, err)

	badges, err := svc.GetUserBadges(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, badges, 2)
	assert.Equal(t, model.EarnedBadge{ID: "retired"}, badges[0], "earn record survives catalog removal")
	assert.Equal(t, "Known", badges[1].Name)
}

func TestBadgeService_GetBadgeProgress(t *testing.T) {
	t.Parallel()

	catalog := []model.BadgeDefinition{
		{ID: "ten_jobs", Name: "Regular", Metric: "total_jobs", Threshold: 10},
	}
	svc, ledger := newBadgeFixture(t, catalog)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := ledger.CreditJobCompletion(ctx, "user-1", scoring.Reward{Points: 1})
		require.NoError(t, err)
	}

	progress, err := svc.GetBadgeProgress(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, "ten_jobs", progress[0].BadgeID)
	assert.InDelta(t, 0.4, progress[0].Progress, 1e-9)
	assert.Equal(t, 4.0, progress[0].Value)
	assert.Equal(t, 10.0, progress[0].Threshold)
}

func TestBadgeService_ProgressExcludesEarnedAndClamps(t *testing.T) {
	t.Parallel()

	catalog := []model.BadgeDefinition{
		{ID: "one_job", Name: "One", Metric: "total_jobs", Threshold: 1},
		{ID: "large", Name: "Large", Metric: "points_total", Threshold: 1_000_000},
	}
	svc, ledger := newBadgeFixture(t, catalog)
	ctx := context.Background()

	_, err := ledger.CreditJobCompletion(ctx, "user-1", scoring.Reward{Points: 10})
	require.NoError(t, err)
	_, err = svc.EvaluateUser(ctx, "user-1")
	require.NoError(t, err)

	progress, err := svc.GetBadgeProgress(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, progress, 1, "earned badge drops out of the progress list")
	assert.Equal(t, "large", progress[0].BadgeID)
	assert.LessOrEqual(t, progress[0].Progress, 1.0)
}
