package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// ReferralServiceOptions groups dependencies for ReferralService.
type ReferralServiceOptions struct {
	Referrals core.ReferralRepository
	Ledger    *LedgerService
}

// ReferralService manages the referral lifecycle: a referral is recorded
// pending at signup and credited exactly once when the referred user
// completes onboarding.
type ReferralService struct {
	referrals core.ReferralRepository
	ledger    *LedgerService
	logger    *slog.Logger
	now       func() time.Time
}

// NewReferralService constructs a new ReferralService.
func NewReferralService(opts ReferralServiceOptions) *ReferralService {
	if opts.Referrals == nil {
		panic("ReferralRepository is required")
	}
	if opts.Ledger == nil {
		panic("LedgerService is required")
	}
	return &ReferralService{
		referrals: opts.Referrals,
		ledger:    opts.Ledger,
		logger:    slog.Default().With("component", "referrals"),
		now:       time.Now,
	}
}

// Create records a pending referral. A user can be referred at most once;
// a second referral for the same referred user returns Conflict.
func (s *ReferralService) Create(ctx context.Context, req model.CreateReferralRequest) (*model.Referral, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ref := &model.Referral{
		ID:         uuid.NewString(),
		ReferrerID: req.ReferrerID,
		ReferredID: req.ReferredID,
		Code:       req.Code,
		Status:     model.ReferralStatusPending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.referrals.Create(ctx, ref); err != nil {
		return nil, fmt.Errorf("create referral: %w", err)
	}
	return ref, nil
}

// Complete marks the referral credited and pays the referrer's bonus.
// The pending → credited transition is guarded in storage, so retries and
// concurrent completions credit once.
func (s *ReferralService) Complete(ctx context.Context, id string) (*model.Referral, error) {
	ref, err := s.referrals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	credited, err := s.referrals.Credit(ctx, id, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("credit referral: %w", err)
	}
	if !credited {
		return nil, apperrors.Conflictf("referral %s already credited", id)
	}

	if _, creditErr := s.ledger.CreditReferral(ctx, ref.ReferrerID); creditErr != nil {
		// The referral row already says credited; losing the ledger write
		// here would silently eat the bonus, so surface the error.
		return nil, fmt.Errorf("referral bonus: %w", creditErr)
	}
	s.logger.InfoContext(ctx, "referral credited",
		"referral_id", id, "referrer_id", ref.ReferrerID)

	return s.referrals.GetByID(ctx, id)
}

// ListByReferrer returns the user's referrals most-recent-first.
func (s *ReferralService) ListByReferrer(ctx context.Context, referrerID string) ([]*model.Referral, error) {
	if referrerID == "" {
		return nil, apperrors.ValidationField("referrer_id", "referrer id is required")
	}
	return s.referrals.ListByReferrer(ctx, referrerID)
}
