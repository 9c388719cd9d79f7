package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	"github.com/soundrise/creator-api/internal/invalidation"
	"github.com/soundrise/creator-api/internal/observability/metrics"
	"github.com/soundrise/creator-api/internal/observability/statsd"
)

// LeaderboardRepos groups the read models behind leaderboard generation.
type LeaderboardRepos struct {
	Profiles   core.ProfileRepository
	Activities core.ActivityRepository
}

// LeaderboardServiceOptions groups dependencies for LeaderboardService.
type LeaderboardServiceOptions struct {
	Repos   LeaderboardRepos
	Bus     *invalidation.Bus // Optional: without it views are only refreshed at week boundaries
	Metrics statsd.Sink       // Optional
}

// rankedView is one cached computation: the full ranked slice for a
// (type, period) pair before any limit is applied.
type rankedView struct {
	entries   []model.LeaderboardEntry
	weekStart time.Time // zero for alltime views
	updatedAt time.Time
}

// viewKey identifies one cached view.
type viewKey struct {
	Type   model.LeaderboardType
	Period model.LeaderboardPeriod
}

// LeaderboardService serves lazily cached ranked views. A view is computed
// on first read, reused until the invalidation bus marks its category
// stale (or, for weekly views, until the ISO week rolls over), and
// recomputed on the next read. Concurrent reads of a cold view share one
// computation.
type LeaderboardService struct {
	profiles   core.ProfileRepository
	activities core.ActivityRepository
	metrics    statsd.Sink
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.RWMutex
	cache map[viewKey]*rankedView

	group singleflight.Group
}

// NewLeaderboardService constructs a new LeaderboardService and registers
// its cache invalidation callbacks on the bus.
func NewLeaderboardService(opts LeaderboardServiceOptions) *LeaderboardService {
	if opts.Repos.Profiles == nil {
		panic("ProfileRepository is required")
	}
	if opts.Repos.Activities == nil {
		panic("ActivityRepository is required")
	}
	s := &LeaderboardService{
		profiles:   opts.Repos.Profiles,
		activities: opts.Repos.Activities,
		metrics:    opts.Metrics,
		logger:     slog.Default().With("component", "leaderboard"),
		now:        time.Now,
		cache:      make(map[viewKey]*rankedView),
	}
	if opts.Bus != nil {
		opts.Bus.Subscribe(invalidation.CategoryTimeSaved, func() { s.evict(model.LeaderboardTimeSaved) })
		opts.Bus.Subscribe(invalidation.CategoryReferrals, func() { s.evict(model.LeaderboardReferrals) })
		opts.Bus.Subscribe(invalidation.CategoryPopularity, func() { s.evict(model.LeaderboardPopularity) })
	}
	return s
}

// Generate returns the ranked view for the query, computing it if the
// cached copy is missing or stale. The requester's own row, when asked
// for, comes from the same snapshot as the window so the two can never
// disagree.
func (s *LeaderboardService) Generate(ctx context.Context, query model.LeaderboardQuery) (*model.Leaderboard, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	query.Normalize()

	view, err := s.view(ctx, viewKey{Type: query.Type, Period: query.Period})
	if err != nil {
		return nil, err
	}

	out := &model.Leaderboard{
		Type:        query.Type,
		Period:      query.Period,
		LastUpdated: view.updatedAt,
	}
	limit := query.Limit
	if limit > len(view.entries) {
		limit = len(view.entries)
	}
	out.Entries = append([]model.LeaderboardEntry(nil), view.entries[:limit]...)

	if query.UserID != "" {
		for i := range view.entries {
			if view.entries[i].UserID == query.UserID {
				row := view.entries[i]
				out.Requester = &row
				break
			}
		}
	}
	return out, nil
}

// evict drops every cached period for the leaderboard type.
func (s *LeaderboardService) evict(t model.LeaderboardType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, viewKey{Type: t, Period: model.PeriodWeekly})
	delete(s.cache, viewKey{Type: t, Period: model.PeriodAllTime})
}

// view returns the cached computation for key, recomputing when absent or
// past its week boundary. Concurrent cold reads are collapsed through
// singleflight so the repos see one scan per invalidation.
func (s *LeaderboardService) view(ctx context.Context, key viewKey) (*rankedView, error) {
	if v, ok := s.fresh(key); ok {
		return v, nil
	}

	flightKey := string(key.Type) + "/" + string(key.Period)
	// The computed view is shared by every caller collapsed into this
	// flight, so it must not die with the first caller's context.
	flightCtx := context.WithoutCancel(ctx)
	result, err, _ := s.group.Do(flightKey, func() (any, error) {
		// Re-check inside the flight: a concurrent caller may have already
		// stored a fresh view before we were scheduled.
		if v, ok := s.fresh(key); ok {
			return v, nil
		}
		v, err := s.compute(flightCtx, key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = v
		s.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, fmt.Errorf("compute leaderboard %s/%s: %w", key.Type, key.Period, err)
	}
	return result.(*rankedView), nil
}

// fresh returns the cached view if present and still valid.
func (s *LeaderboardService) fresh(key viewKey) (*rankedView, bool) {
	s.mu.RLock()
	v, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if key.Period == model.PeriodWeekly && !v.weekStart.Equal(isoWeekStart(s.now())) {
		return nil, false
	}
	return v, true
}

// scored is a pre-rank row.
type scored struct {
	userID    string
	handle    string
	score     int64
	createdAt time.Time
}

func (s *LeaderboardService) compute(ctx context.Context, key viewKey) (*rankedView, error) {
	started := s.now()
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	var rows []scored
	var weekStart time.Time
	switch key.Period {
	case model.PeriodAllTime:
		rows = alltimeRows(key.Type, profiles)
	case model.PeriodWeekly:
		weekStart = isoWeekStart(s.now())
		totals, totalsErr := s.activities.TotalsSince(ctx, weekStart)
		if totalsErr != nil {
			return nil, fmt.Errorf("weekly totals: %w", totalsErr)
		}
		rows = weeklyRows(key.Type, profiles, totals)
	}

	entries := rank(rows)
	metrics.EmitLeaderboardRecompute(s.metrics, metrics.LeaderboardMetric{
		Type:     string(key.Type),
		Period:   string(key.Period),
		Rows:     len(entries),
		Duration: s.now().Sub(started),
	})
	s.logger.Debug("leaderboard recomputed",
		"type", key.Type, "period", key.Period, "rows", len(entries))
	return &rankedView{
		entries:   entries,
		weekStart: weekStart,
		updatedAt: s.now().UTC(),
	}, nil
}

func alltimeRows(t model.LeaderboardType, profiles []*model.Profile) []scored {
	rows := make([]scored, 0, len(profiles))
	for _, p := range profiles {
		var score int64
		switch t {
		case model.LeaderboardTimeSaved:
			score = p.TimeSavedSecTotal
		case model.LeaderboardReferrals:
			score = int64(p.TotalReferrals)
		case model.LeaderboardPopularity:
			score = p.PointsTotal
		}
		if score <= 0 {
			continue
		}
		rows = append(rows, scored{userID: p.UserID, handle: p.Handle, score: score, createdAt: p.CreatedAt})
	}
	return rows
}

func weeklyRows(t model.LeaderboardType, profiles []*model.Profile, totals map[string]core.ActivityTotals) []scored {
	rows := make([]scored, 0, len(totals))
	for _, p := range profiles {
		agg, ok := totals[p.UserID]
		if !ok {
			continue
		}
		var score int64
		switch t {
		case model.LeaderboardTimeSaved:
			score = agg.TimeSavedSec
		case model.LeaderboardReferrals:
			score = int64(agg.Referrals)
		case model.LeaderboardPopularity:
			score = agg.Points
		}
		if score <= 0 {
			continue
		}
		rows = append(rows, scored{userID: p.UserID, handle: p.Handle, score: score, createdAt: p.CreatedAt})
	}
	return rows
}

// rank sorts rows and assigns dense ranks: equal scores share a rank and
// the next distinct score takes the next integer. Ties are broken for
// display order by earliest account creation, then user id so the result
// is fully deterministic.
func rank(rows []scored) []model.LeaderboardEntry {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		if !rows[i].createdAt.Equal(rows[j].createdAt) {
			return rows[i].createdAt.Before(rows[j].createdAt)
		}
		return rows[i].userID < rows[j].userID
	})

	entries := make([]model.LeaderboardEntry, len(rows))
	rankN := 0
	var prevScore int64
	for i, row := range rows {
		if i == 0 || row.score != prevScore {
			rankN++
			prevScore = row.score
		}
		entries[i] = model.LeaderboardEntry{
			Rank:   rankN,
			UserID: row.userID,
			Handle: row.handle,
			Score:  row.score,
		}
	}
	return entries
}

// isoWeekStart returns 00:00 UTC of the Monday of t's ISO week.
func isoWeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO weeks start Monday; Sunday belongs to the prior week
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
