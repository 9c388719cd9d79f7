// Package testutil provides testing utilities and helpers for the creator API.
package testutil

import (
	"time"

	"github.com/soundrise/creator-api/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			UserID:           "user-1",
			Type:             model.JobTypeEnhance,
			Tier:             model.TierFree,
			InputDurationSec: 120,
		},
	}
}

// WithUser sets the requesting user.
func (b *JobRequestBuilder) WithUser(userID string) *JobRequestBuilder {
	b.req.UserID = userID
	return b
}

// WithType sets the job type.
func (b *JobRequestBuilder) WithType(jobType model.JobType) *JobRequestBuilder {
	b.req.Type = jobType
	return b
}

// WithTier sets the account tier.
func (b *JobRequestBuilder) WithTier(tier model.Tier) *JobRequestBuilder {
	b.req.Tier = tier
	return b
}

// WithDuration sets the input duration in seconds.
func (b *JobRequestBuilder) WithDuration(seconds int) *JobRequestBuilder {
	b.req.InputDurationSec = seconds
	return b
}

// WithInputURL sets the input URL.
func (b *JobRequestBuilder) WithInputURL(url string) *JobRequestBuilder {
	b.req.InputURL = &url
	return b
}

// Build returns the constructed request.
func (b *JobRequestBuilder) Build() model.CreateJobRequest {
	return *b.req
}

// ProfileBuilder provides a fluent interface for building Profile objects for testing.
type ProfileBuilder struct {
	p *model.Profile
}

// NewProfile creates a ProfileBuilder with sensible defaults.
func NewProfile(userID string) *ProfileBuilder {
	return &ProfileBuilder{
		p: &model.Profile{
			UserID:    userID,
			Handle:    "creator-" + userID,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// WithPoints sets the points total and matching level-relevant counters.
func (b *ProfileBuilder) WithPoints(points int64) *ProfileBuilder {
	b.p.PointsTotal = points
	return b
}

// WithTimeSaved sets the total time saved in seconds.
func (b *ProfileBuilder) WithTimeSaved(seconds int64) *ProfileBuilder {
	b.p.TimeSavedSecTotal = seconds
	return b
}

// WithReferrals sets the referral counter.
func (b *ProfileBuilder) WithReferrals(n int) *ProfileBuilder {
	b.p.TotalReferrals = n
	return b
}

// WithCreatedAt sets the profile creation time (leaderboard tie-break input).
func (b *ProfileBuilder) WithCreatedAt(t time.Time) *ProfileBuilder {
	b.p.CreatedAt = t
	return b
}

// Build returns the constructed profile.
func (b *ProfileBuilder) Build() *model.Profile {
	cp := *b.p
	return &cp
}
