package model

// BadgeDefinition is a static catalog entry. Definitions are immutable
// configuration, not runtime state: the catalog is injected into the badge
// engine at construction.
//
// Metric is a JMESPath expression evaluated against the user's activity
// snapshot (see badge engine); the badge is earned once the expression's
// numeric value reaches Threshold.
type BadgeDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Metric      string `json:"metric"`
	Threshold   float64 `json:"threshold"`
	// RewardPoints and RewardTimeSavedSec are credited through the scoring
	// ledger exactly once, when the badge is first awarded.
	RewardPoints       int64 `json:"reward_points"`
	RewardTimeSavedSec int64 `json:"reward_time_saved_sec"`
}

// EarnedBadge is a badge the user holds, in earn order.
type EarnedBadge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BadgeProgress reports how close a user is to a not-yet-earned badge.
// Progress is normalized to [0,1].
type BadgeProgress struct {
	BadgeID   string  `json:"badge_id"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Progress  float64 `json:"progress"`
}
