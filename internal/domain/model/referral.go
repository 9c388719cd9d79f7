package model

import (
	"strings"
	"time"

	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// ReferralStatus is the lifecycle state of a referral record.
type ReferralStatus string

const (
	// ReferralStatusPending means the referred user has signed up but not yet
	// completed a qualifying action.
	ReferralStatusPending ReferralStatus = "pending"
	// ReferralStatusCredited means the referrer has been credited. Final.
	ReferralStatusCredited ReferralStatus = "credited"
)

// Referral links a referrer to a referred user. Records are append-only and
// credited exactly once.
type Referral struct {
	ID         string         `json:"id"                    db:"id"`
	ReferrerID string         `json:"referrer_id"           db:"referrer_id"`
	ReferredID string         `json:"referred_id"           db:"referred_id"`
	Code       string         `json:"code"                  db:"code"`
	Status     ReferralStatus `json:"status"                db:"status"`
	CreatedAt  time.Time      `json:"created_at"            db:"created_at"`
	CreditedAt *time.Time     `json:"credited_at,omitempty" db:"credited_at"`
}

// CreateReferralRequest represents a request to record a referral signup.
type CreateReferralRequest struct {
	ReferrerID string `json:"referrer_id"`
	ReferredID string `json:"referred_id"`
	Code       string `json:"code,omitempty"`
}

// Validate validates the CreateReferralRequest fields.
func (r *CreateReferralRequest) Validate() error {
	if strings.TrimSpace(r.ReferrerID) == "" {
		return apperrors.ValidationField("referrer_id", "referrer id is required")
	}
	if strings.TrimSpace(r.ReferredID) == "" {
		return apperrors.ValidationField("referred_id", "referred id is required")
	}
	if r.ReferrerID == r.ReferredID {
		return apperrors.ValidationField("referred_id", "users cannot refer themselves")
	}
	return nil
}

// Creation records a piece of produced output. One job may yield zero or
// more creations; the records are append-only and feed badge/leaderboard
// computation only.
type Creation struct {
	ID        string    `json:"id"               db:"id"`
	UserID    string    `json:"user_id"          db:"user_id"`
	JobID     *string   `json:"job_id,omitempty" db:"job_id"`
	Title     string    `json:"title"            db:"title"`
	URL       *string   `json:"url,omitempty"    db:"url"`
	CreatedAt time.Time `json:"created_at"       db:"created_at"`
}

// CreateCreationRequest represents a request to publish a creation.
type CreateCreationRequest struct {
	UserID string  `json:"user_id"`
	JobID  *string `json:"job_id,omitempty"`
	Title  string  `json:"title"`
	URL    *string `json:"url,omitempty"`
}

// Validate validates the CreateCreationRequest fields.
func (r *CreateCreationRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return apperrors.ValidationField("user_id", "user id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return apperrors.ValidationField("title", "title is required")
	}
	return nil
}
