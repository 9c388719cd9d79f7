package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// CreationServiceOptions groups dependencies for CreationService.
type CreationServiceOptions struct {
	Creations core.CreationRepository
	Ledger    *LedgerService
}

// CreationService records published creations and credits the publishing
// bonus.
type CreationService struct {
	creations core.CreationRepository
	ledger    *LedgerService
	now       func() time.Time
}

// NewCreationService constructs a new CreationService.
func NewCreationService(opts CreationServiceOptions) *CreationService {
	if opts.Creations == nil {
		panic("CreationRepository is required")
	}
	if opts.Ledger == nil {
		panic("LedgerService is required")
	}
	return &CreationService{
		creations: opts.Creations,
		ledger:    opts.Ledger,
		now:       time.Now,
	}
}

// Create stores a creation record and credits the publish bonus.
func (s *CreationService) Create(ctx context.Context, req model.CreateCreationRequest) (*model.Creation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := &model.Creation{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		JobID:     req.JobID,
		Title:     req.Title,
		URL:       req.URL,
		CreatedAt: s.now().UTC(),
	}
	if err := s.creations.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create creation: %w", err)
	}
	if _, err := s.ledger.CreditCreation(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("creation credit: %w", err)
	}
	return c, nil
}

// ListByUser returns the user's creations most-recent-first.
func (s *CreationService) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Creation, error) {
	if userID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	return s.creations.ListByUser(ctx, userID, limit)
}
