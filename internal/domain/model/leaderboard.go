package model

import (
	"fmt"
	"time"

	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// LeaderboardType selects the scoring metric for a leaderboard view.
type LeaderboardType string

// LeaderboardPeriod selects the time window for a leaderboard view.
type LeaderboardPeriod string

const (
	// LeaderboardTimeSaved ranks users by accumulated processing time saved.
	LeaderboardTimeSaved LeaderboardType = "time_saved"
	// LeaderboardReferrals ranks users by credited referrals.
	LeaderboardReferrals LeaderboardType = "referrals"
	// LeaderboardPopularity ranks users by points earned.
	LeaderboardPopularity LeaderboardType = "popularity"

	// PeriodWeekly restricts scoring to activity within the current ISO week.
	PeriodWeekly LeaderboardPeriod = "weekly"
	// PeriodAllTime uses the cumulative ledger accumulators.
	PeriodAllTime LeaderboardPeriod = "alltime"
)

// Valid returns true for a known leaderboard type.
func (t LeaderboardType) Valid() bool {
	return t == LeaderboardTimeSaved || t == LeaderboardReferrals || t == LeaderboardPopularity
}

// Valid returns true for a known leaderboard period.
func (p LeaderboardPeriod) Valid() bool {
	return p == PeriodWeekly || p == PeriodAllTime
}

// LeaderboardEntry is one ranked row. Entries are derived data: always
// regenerable from ledger, referral, and activity state, never persisted
// as source of truth.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
	Score  int64  `json:"score"`
}

// Leaderboard is a ranked view for one (type, period) pair.
type Leaderboard struct {
	Type    LeaderboardType    `json:"type"`
	Period  LeaderboardPeriod  `json:"period"`
	Entries []LeaderboardEntry `json:"entries"`
	// Requester is the requesting user's row, populated even when they fall
	// outside the truncated window. Nil when no user was supplied or the
	// user has no score.
	Requester   *LeaderboardEntry `json:"requester,omitempty"`
	LastUpdated time.Time         `json:"last_updated"`
}

// LeaderboardQuery parameterizes a leaderboard read.
type LeaderboardQuery struct {
	Type   LeaderboardType   `json:"type"`
	Period LeaderboardPeriod `json:"period"`
	Limit  int               `json:"limit"`
	// UserID optionally requests the caller's own rank alongside the window.
	UserID string `json:"user_id,omitempty"`
}

// Validate validates the LeaderboardQuery fields.
func (q *LeaderboardQuery) Validate() error {
	if !q.Type.Valid() {
		return apperrors.ValidationField("type", fmt.Sprintf("unknown leaderboard type %q", q.Type))
	}
	if !q.Period.Valid() {
		return apperrors.ValidationField("period", fmt.Sprintf("unknown leaderboard period %q", q.Period))
	}
	if q.Limit < 0 {
		return apperrors.ValidationField("limit", "limit must be non-negative")
	}
	return nil
}

// Normalize clamps the query limit to sane bounds.
func (q *LeaderboardQuery) Normalize() {
	if q.Limit == 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}
