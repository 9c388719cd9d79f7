package model

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// JobType represents the kind of audio processing a job performs.
type JobType string

// JobStatus represents the current status of a job.
type JobStatus string

// Tier distinguishes free and pro accounts; it affects simulated
// processing cost and reward multipliers.
type Tier string

const (
	// JobTypeEnhance represents an audio cleanup/denoise job.
	JobTypeEnhance JobType = "enhance"
	// JobTypeMaster represents a mastering job.
	JobTypeMaster JobType = "master"
	// JobTypeTranscribe represents a speech-to-text job.
	JobTypeTranscribe JobType = "transcribe"
	// JobTypeStemSplit represents a stem separation job.
	JobTypeStemSplit JobType = "stem_split"

	// JobStatusQueued indicates a job is waiting to be processed.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates a job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusDone indicates a job finished successfully. Terminal.
	JobStatusDone JobStatus = "done"
	// JobStatusFailed indicates a job failed to complete. Terminal.
	JobStatusFailed JobStatus = "failed"

	// TierFree is the default account tier.
	TierFree Tier = "free"
	// TierPro multiplies job rewards and shortens simulated processing.
	TierPro Tier = "pro"
)

// Valid returns true if the JobType is a known processing kind.
func (t JobType) Valid() bool {
	return t == JobTypeEnhance || t == JobTypeMaster || t == JobTypeTranscribe || t == JobTypeStemSplit
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusRunning || s == JobStatusDone || s == JobStatusFailed
}

// Terminal returns true once the status can never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Valid returns true if the Tier is valid.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// Job represents a processing job and its lifecycle state.
// Transitions are driven by the job service's scheduler, never by callers.
type Job struct {
	ID               string     `json:"id"                     db:"id"`
	UserID           string     `json:"user_id"                db:"user_id"`
	Type             JobType    `json:"type"                   db:"type"`
	Status           JobStatus  `json:"status"                 db:"status"`
	Tier             Tier       `json:"tier"                   db:"tier"`
	InputDurationSec int        `json:"input_duration_sec"     db:"input_duration_sec"`
	InputURL         *string    `json:"input_url,omitempty"    db:"input_url"`
	ResultURL        *string    `json:"result_url,omitempty"   db:"result_url"`
	Error            *string    `json:"error,omitempty"        db:"error"`
	PointsEarned     int64      `json:"points_earned"          db:"points_earned"`
	TimeSavedSec     int64      `json:"time_saved_sec"         db:"time_saved_sec"`
	CreatedAt        time.Time  `json:"created_at"             db:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"   db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// CreateJobRequest represents a request to create a new processing job.
type CreateJobRequest struct {
	UserID           string  `json:"user_id"`
	Type             JobType `json:"type"`
	Tier             Tier    `json:"tier,omitempty"`
	InputDurationSec int     `json:"input_duration_sec"`
	InputURL         *string `json:"input_url,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return apperrors.ValidationField("user_id", "user id is required")
	}
	if !r.Type.Valid() {
		return apperrors.ValidationField("type", fmt.Sprintf("unknown job type %q", r.Type))
	}
	if r.InputDurationSec <= 0 {
		return apperrors.ValidationField("input_duration_sec", "input duration must be positive")
	}
	if r.Tier != "" && !r.Tier.Valid() {
		return apperrors.ValidationField("tier", fmt.Sprintf("unknown tier %q", r.Tier))
	}
	return nil
}

// Normalize applies defaults to optional request fields.
func (r *CreateJobRequest) Normalize() {
	if r.Tier == "" {
		r.Tier = TierFree
	}
}

// JobStats summarizes a user's jobs by status plus earned totals.
type JobStats struct {
	Queued       int   `json:"queued"`
	Running      int   `json:"running"`
	Done         int   `json:"done"`
	Failed       int   `json:"failed"`
	Total        int   `json:"total"`
	PointsEarned int64 `json:"points_earned"`
	TimeSavedSec int64 `json:"time_saved_sec"`
}
