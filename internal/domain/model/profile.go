// Package model defines the core data types used throughout the creator gamification engine.
package model

import (
	"slices"
	"time"
)

// Profile is the per-user ledger: points, level, time-saved, and activity counters.
// Counters are mutated only through the scoring ledger service; callers treat
// returned profiles as immutable snapshots.
type Profile struct {
	UserID            string    `json:"user_id"              db:"user_id"`
	Handle            string    `json:"handle"               db:"handle"`
	PointsTotal       int64     `json:"points_total"         db:"points_total"`
	Level             int       `json:"level"                db:"level"`
	TimeSavedSecTotal int64     `json:"time_saved_sec_total" db:"time_saved_sec_total"`
	TotalJobs         int       `json:"total_jobs"           db:"total_jobs"`
	TotalCreations    int       `json:"total_creations"      db:"total_creations"`
	TotalReferrals    int       `json:"total_referrals"      db:"total_referrals"`
	// Badges holds earned badge ids in earn order. A badge is never removed.
	Badges    []string  `json:"badges"     db:"badges"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasBadge reports whether the profile already holds the badge id.
func (p *Profile) HasBadge(id string) bool {
	return slices.Contains(p.Badges, id)
}

// Clone returns a deep copy so ledger snapshots can be handed out safely.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Badges = slices.Clone(p.Badges)
	return &cp
}

// ActivityKind identifies the source of a scoring activity entry.
type ActivityKind string

const (
	// ActivityKindJob records a completed processing job.
	ActivityKindJob ActivityKind = "job"
	// ActivityKindCreation records a published creation.
	ActivityKindCreation ActivityKind = "creation"
	// ActivityKindReferral records a credited referral.
	ActivityKindReferral ActivityKind = "referral"
	// ActivityKindBadge records a badge bonus credit.
	ActivityKindBadge ActivityKind = "badge"
)

// Activity is an append-only, timestamped record of a single credit.
// Weekly leaderboards are computed by restricting these entries to the
// current ISO week; alltime views use the profile accumulators.
type Activity struct {
	ID           string       `json:"id"             db:"id"`
	UserID       string       `json:"user_id"        db:"user_id"`
	Kind         ActivityKind `json:"kind"           db:"kind"`
	Points       int64        `json:"points"         db:"points"`
	TimeSavedSec int64        `json:"time_saved_sec" db:"time_saved_sec"`
	OccurredAt   time.Time    `json:"occurred_at"    db:"occurred_at"`
}
