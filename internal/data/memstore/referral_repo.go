package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// ReferralRepo stores referral records in memory.
type ReferralRepo struct {
	mu         sync.RWMutex
	referrals  map[string]*model.Referral
	byReferrer map[string][]string
	byReferred map[string]string
}

var _ core.ReferralRepository = (*ReferralRepo)(nil)

// NewReferralRepo creates an empty ReferralRepo.
func NewReferralRepo() *ReferralRepo {
	return &ReferralRepo{
		referrals:  make(map[string]*model.Referral),
		byReferrer: make(map[string][]string),
		byReferred: make(map[string]string),
	}
}

// Create stores a pending referral. One referral record per referred user.
func (r *ReferralRepo) Create(_ context.Context, ref *model.Referral) error {
	if ref == nil || ref.ID == "" {
		return apperrors.Validation("referral id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.referrals[ref.ID]; ok {
		return apperrors.Conflictf("referral %s already exists", ref.ID)
	}
	if _, ok := r.byReferred[ref.ReferredID]; ok {
		return apperrors.Conflictf("user %s already has a referral record", ref.ReferredID)
	}
	cp := *ref
	r.referrals[ref.ID] = &cp
	r.byReferrer[ref.ReferrerID] = append(r.byReferrer[ref.ReferrerID], ref.ID)
	r.byReferred[ref.ReferredID] = ref.ID
	return nil
}

// GetByID returns the referral or a NotFound error.
func (r *ReferralRepo) GetByID(_ context.Context, id string) (*model.Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.referrals[id]
	if !ok {
		return nil, apperrors.NotFoundf("referral %s not found", id)
	}
	cp := *ref
	return &cp, nil
}

// Credit atomically transitions pending → credited.
func (r *ReferralRepo) Credit(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.referrals[id]
	if !ok {
		return false, apperrors.NotFoundf("referral %s not found", id)
	}
	if ref.Status == model.ReferralStatusCredited {
		return false, nil
	}
	ref.Status = model.ReferralStatusCredited
	t := at.UTC()
	ref.CreditedAt = &t
	return true, nil
}

// ListByReferrer returns the user's referrals most-recent-first.
func (r *ReferralRepo) ListByReferrer(_ context.Context, referrerID string) ([]*model.Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byReferrer[referrerID]
	out := make([]*model.Referral, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		cp := *r.referrals[ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}
