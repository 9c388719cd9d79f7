package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/soundrise/creator-api/internal/observability/statsd"
	"github.com/soundrise/creator-api/internal/ports"
	"github.com/soundrise/creator-api/internal/ratelimit"
	"github.com/soundrise/creator-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs         *service.JobService
	Ledger       *service.LedgerService
	Badges       *service.BadgeService
	Leaderboards *service.LeaderboardService
	Referrals    *service.ReferralService
	Creations    *service.CreationService
	Sessions     ports.SessionStore
	Limiter      *ratelimit.Limiter
	Limits       RateLimits
	Metrics      statsd.Sink  // Optional
	Logger       *slog.Logger // Optional
}

// RateLimits carries the per-action fixed-window budgets. Zero-valued
// rules disable the corresponding limit.
type RateLimits struct {
	JobCreate   ratelimit.Rule
	Leaderboard ratelimit.Rule
	Mutations   ratelimit.Rule
}

// DefaultRateLimits returns the shipped per-action budgets.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		JobCreate:   ratelimit.Rule{Max: 10, Window: time.Minute},
		Leaderboard: ratelimit.Rule{Max: 30, Window: time.Minute},
		Mutations:   ratelimit.Rule{Max: 60, Window: time.Minute},
	}
}

// NewRouter creates and configures the API router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	registerAPIRoutes(mux, services)

	handler := http.Handler(mux)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerAPIRoutes(mux *http.ServeMux, services RouterServices) {
	jobHandlers := &JobHandlers{Svc: services.Jobs}
	profileHandlers := &ProfileHandlers{
		Ledger: services.Ledger,
		Badges: services.Badges,
		Logger: services.Logger,
	}
	badgeHandlers := &BadgeHandlers{Svc: services.Badges}
	boardHandlers := &LeaderboardHandlers{Svc: services.Leaderboards}
	referralHandlers := &ReferralHandlers{Svc: services.Referrals}
	creationHandlers := &CreationHandlers{Svc: services.Creations}

	auth := RequireSession(services.Sessions)
	limit := func(action string, rule ratelimit.Rule) func(http.Handler) http.Handler {
		return RateLimit(action, RateLimitParams{
			Limiter: services.Limiter,
			Rule:    rule,
			Metrics: services.Metrics,
		})
	}
	jobCreate := limit("job_create", services.Limits.JobCreate)
	board := limit("leaderboard", services.Limits.Leaderboard)
	mutate := limit("mutation", services.Limits.Mutations)

	handle := func(pattern string, h http.HandlerFunc, wrap ...func(http.Handler) http.Handler) {
		var handler http.Handler = h
		for i := len(wrap) - 1; i >= 0; i-- {
			handler = wrap[i](handler)
		}
		mux.Handle(pattern, auth(handler))
	}

	handle("POST /api/jobs", jobHandlers.CreateJob, jobCreate)
	handle("GET /api/jobs", jobHandlers.ListJobs)
	handle("GET /api/jobs/stats", jobHandlers.JobStats)
	handle("GET /api/jobs/{id}", jobHandlers.GetJob)
	handle("POST /api/jobs/{id}/cancel", jobHandlers.CancelJob, mutate)

	handle("GET /api/profile", profileHandlers.GetProfile)
	handle("GET /api/profile/activity", profileHandlers.GetActivity)

	handle("GET /api/badges", badgeHandlers.ListBadges)
	handle("GET /api/badges/progress", badgeHandlers.BadgeProgress)

	handle("GET /api/leaderboards/{type}/{period}", boardHandlers.GetLeaderboard, board)

	handle("POST /api/referrals", referralHandlers.CreateReferral, mutate)
	handle("POST /api/referrals/{id}/complete", referralHandlers.CompleteReferral, mutate)
	handle("GET /api/referrals", referralHandlers.ListReferrals)

	handle("POST /api/creations", creationHandlers.CreateCreation, mutate)
	handle("GET /api/creations", creationHandlers.ListCreations)
}
