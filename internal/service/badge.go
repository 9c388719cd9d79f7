package service

import (
	"context"
	"fmt"
	"log/slog"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// BadgeServiceOptions groups dependencies for BadgeService.
type BadgeServiceOptions struct {
	Ledger  *LedgerService
	Catalog []model.BadgeDefinition // empty means DefaultBadgeCatalog
}

// BadgeService evaluates the badge catalog against ledger snapshots.
// Evaluation is pure: it reads a profile snapshot, compares each metric
// against its threshold, and delegates the one-time bonus credit to the
// ledger. Re-running evaluation never double-awards.
type BadgeService struct {
	ledger  *LedgerService
	catalog []compiledBadge
	logger  *slog.Logger
}

// compiledBadge pairs a definition with its pre-compiled metric expression.
type compiledBadge struct {
	def  model.BadgeDefinition
	expr jmespath.JMESPath
}

// NewBadgeService constructs a new BadgeService. Metric expressions are
// compiled up front; a catalog entry that does not parse is a programmer
// error and panics.
func NewBadgeService(opts BadgeServiceOptions) *BadgeService {
	if opts.Ledger == nil {
		panic("LedgerService is required")
	}
	defs := opts.Catalog
	if len(defs) == 0 {
		defs = DefaultBadgeCatalog()
	}

	catalog := make([]compiledBadge, 0, len(defs))
	for _, def := range defs {
		expr, err := jmespath.Compile(def.Metric)
		if err != nil {
			panic(fmt.Sprintf("badge %s: bad metric %q: %v", def.ID, def.Metric, err))
		}
		catalog = append(catalog, compiledBadge{def: def, expr: expr})
	}
	return &BadgeService{
		ledger:  opts.Ledger,
		catalog: catalog,
		logger:  slog.Default().With("component", "badges"),
	}
}

// EvaluateUser checks every catalog badge against the user's current
// snapshot and awards (with bonus credit) the ones newly crossed. Returns
// the badges awarded by this call only.
func (s *BadgeService) EvaluateUser(ctx context.Context, userID string) ([]model.EarnedBadge, error) {
	profile, err := s.ledger.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("badge snapshot: %w", err)
	}

	var earned []model.EarnedBadge
	snapshot := profileSnapshot(profile)
	for _, cb := range s.catalog {
		if profile.HasBadge(cb.def.ID) {
			continue
		}
		value, ok := s.metricValue(cb, snapshot)
		if !ok || value < cb.def.Threshold {
			continue
		}

		_, awarded, awardErr := s.ledger.CreditBadgeBonus(ctx, userID, cb.def)
		if awardErr != nil {
			return earned, awardErr
		}
		if awarded {
			earned = append(earned, model.EarnedBadge{
				ID:          cb.def.ID,
				Name:        cb.def.Name,
				Description: cb.def.Description,
			})
		}
	}
	return earned, nil
}

// GetUserBadges returns the user's earned badges in earn order.
func (s *BadgeService) GetUserBadges(ctx context.Context, userID string) ([]model.EarnedBadge, error) {
	profile, err := s.ledger.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.BadgeDefinition, len(s.catalog))
	for _, cb := range s.catalog {
		byID[cb.def.ID] = cb.def
	}

	out := make([]model.EarnedBadge, 0, len(profile.Badges))
	for _, id := range profile.Badges {
		def, ok := byID[id]
		if !ok {
			// Badge was removed from the catalog after being earned. Keep the
			// id so the earn record is not silently dropped.
			out = append(out, model.EarnedBadge{ID: id})
			continue
		}
		out = append(out, model.EarnedBadge{ID: def.ID, Name: def.Name, Description: def.Description})
	}
	return out, nil
}

// GetBadgeProgress reports normalized progress toward each not-yet-earned
// badge.
func (s *BadgeService) GetBadgeProgress(ctx context.Context, userID string) ([]model.BadgeProgress, error) {
	if userID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	profile, err := s.ledger.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	snapshot := profileSnapshot(profile)
	out := make([]model.BadgeProgress, 0, len(s.catalog))
	for _, cb := range s.catalog {
		if profile.HasBadge(cb.def.ID) {
			continue
		}
		value, ok := s.metricValue(cb, snapshot)
		if !ok {
			continue
		}
		progress := 0.0
		if cb.def.Threshold > 0 {
			progress = value / cb.def.Threshold
		}
		if progress > 1 {
			progress = 1
		}
		if progress < 0 {
			progress = 0
		}
		out = append(out, model.BadgeProgress{
			BadgeID:   cb.def.ID,
			Name:      cb.def.Name,
			Value:     value,
			Threshold: cb.def.Threshold,
			Progress:  progress,
		})
	}
	return out, nil
}

// metricValue evaluates one compiled metric against the snapshot. Metrics
// that do not produce a number are skipped rather than failing the whole
// evaluation.
func (s *BadgeService) metricValue(cb compiledBadge, snapshot map[string]any) (float64, bool) {
	raw, err := cb.expr.Search(snapshot)
	if err != nil {
		s.logger.Warn("badge metric evaluation failed", "badge_id", cb.def.ID, "err", err)
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// profileSnapshot flattens a profile into the document badge metrics are
// evaluated against.
func profileSnapshot(p *model.Profile) map[string]any {
	return map[string]any{
		"points_total":         float64(p.PointsTotal),
		"level":                float64(p.Level),
		"time_saved_sec_total": float64(p.TimeSavedSecTotal),
		"time_saved_min_total": float64(p.TimeSavedSecTotal) / 60,
		"total_jobs":           float64(p.TotalJobs),
		"total_creations":      float64(p.TotalCreations),
		"total_referrals":      float64(p.TotalReferrals),
		"badge_count":          float64(len(p.Badges)),
	}
}

// DefaultBadgeCatalog is the shipped badge set. Deployments can inject
// their own catalog through BadgeServiceOptions.
func DefaultBadgeCatalog() []model.BadgeDefinition {
	return []model.BadgeDefinition{
		{
			ID:           "first_job",
			Name:         "First Steps",
			Description:  "Complete your first processing job",
			Metric:       "total_jobs",
			Threshold:    1,
			RewardPoints: 25,
		},
		{
			ID:           "ten_jobs",
			Name:         "Regular",
			Description:  "Complete ten processing jobs",
			Metric:       "total_jobs",
			Threshold:    10,
			RewardPoints: 100,
		},
		{
			ID:           "power_user",
			Name:         "Power User",
			Description:  "Complete one hundred processing jobs",
			Metric:       "total_jobs",
			Threshold:    100,
			RewardPoints: 500,
		},
		{
			ID:           "hour_saved",
			Name:         "Hour Saved",
			Description:  "Save an hour of manual work",
			Metric:       "time_saved_min_total",
			Threshold:    60,
			RewardPoints: 50,
		},
		{
			ID:           "day_saved",
			Name:         "Day Saved",
			Description:  "Save a full working day of manual work",
			Metric:       "time_saved_min_total",
			Threshold:    480,
			RewardPoints: 250,
		},
		{
			ID:           "first_creation",
			Name:         "Creator",
			Description:  "Publish your first creation",
			Metric:       "total_creations",
			Threshold:    1,
			RewardPoints: 25,
		},
		{
			ID:           "recruiter",
			Name:         "Recruiter",
			Description:  "Refer five creators who complete onboarding",
			Metric:       "total_referrals",
			Threshold:    5,
			RewardPoints: 300,
		},
		{
			ID:           "level_five",
			Name:         "Rising Star",
			Description:  "Reach level five",
			Metric:       "level",
			Threshold:    5,
			RewardPoints: 200,
		},
	}
}
