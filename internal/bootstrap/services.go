package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soundrise/creator-api/config"
	"github.com/soundrise/creator-api/internal/adapters/memsession"
	redisadapter "github.com/soundrise/creator-api/internal/adapters/redis"
	"github.com/soundrise/creator-api/internal/adapters/scheduler"
	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/data"
	"github.com/soundrise/creator-api/internal/data/memstore"
	domainauth "github.com/soundrise/creator-api/internal/domain/auth"
	"github.com/soundrise/creator-api/internal/domain/scoring"
	"github.com/soundrise/creator-api/internal/invalidation"
	"github.com/soundrise/creator-api/internal/observability/statsd"
	"github.com/soundrise/creator-api/internal/ports"
	"github.com/soundrise/creator-api/internal/ratelimit"
	"github.com/soundrise/creator-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Ledger       *service.LedgerService
	Jobs         *service.JobService
	Badges       *service.BadgeService
	Leaderboards *service.LeaderboardService
	Referrals    *service.ReferralService
	Creations    *service.CreationService

	Sessions      ports.SessionStore
	Limiter       *ratelimit.Limiter
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization. DB and
// RedisClient may be nil when the memory backends are selected.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient *redis.Client
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Profiles   core.ProfileRepository
	Activities core.ActivityRepository
	Jobs       core.JobRepository
	Referrals  core.ReferralRepository
	Creations  core.CreationRepository
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildRepositories builds repositories backing service ports; no business
// rules here. The memory backend keeps everything in process and is the
// default for local development.
func buildRepositories(backend config.StoreBackend, db *sql.DB) *serviceRepositories {
	if backend == config.StorePostgres && db != nil {
		return &serviceRepositories{
			Profiles:   data.NewProfileRepo(db),
			Activities: data.NewActivityRepo(db),
			Jobs:       data.NewJobRepo(db),
			Referrals:  data.NewReferralRepo(db),
			Creations:  data.NewCreationRepo(db),
		}
	}
	return &serviceRepositories{
		Profiles:   memstore.NewProfileRepo(nil),
		Activities: memstore.NewActivityRepo(),
		Jobs:       memstore.NewJobRepo(),
		Referrals:  memstore.NewReferralRepo(),
		Creations:  memstore.NewCreationRepo(),
	}
}

// buildSessionStore selects the session backend. Redis requires a connected
// client; anything else falls back to the in-memory store.
func buildSessionStore(cfg config.StoreConfig, client *redis.Client) ports.SessionStore {
	if cfg.SessionBackend == "redis" && client != nil {
		return redisadapter.NewSessionStore(client)
	}
	return memsession.New()
}

// metricsSinkOrNil converts the concrete client into the optional Sink
// dependency; a nil *Client must not become a non-nil interface.
func metricsSinkOrNil(client *statsd.Client) statsd.Sink {
	if client == nil {
		return nil
	}
	return client
}

// DomainServicesOptions groups inputs for buildDomainServices.
type DomainServicesOptions struct {
	Repos         *serviceRepositories
	Observability ObservabilityContainer
	Config        *config.AppConfig
	Sessions      ports.SessionStore
}

// buildDomainServices wires business services using repositories and
// observability adapters.
func buildDomainServices(opts *DomainServicesOptions) ServiceContainer {
	if opts == nil {
		return ServiceContainer{}
	}

	appCfg := opts.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	policy := scoring.NewPolicy(scoring.PolicyConfig{
		ProMultiplier: appCfg.Scoring.ProMultiplier,
	})
	bus := invalidation.NewBus()
	sink := metricsSinkOrNil(opts.Observability.MetricsSink)

	ledger := service.NewLedgerService(service.LedgerServiceOptions{
		Repos: service.LedgerRepos{
			Profiles:   opts.Repos.Profiles,
			Activities: opts.Repos.Activities,
		},
		Policy: policy,
		Bus:    bus,
	})

	jobs := service.NewJobService(service.JobServiceOptions{
		Deps: service.JobDeps{
			Jobs:      opts.Repos.Jobs,
			Ledger:    ledger,
			Scheduler: scheduler.NewTimerScheduler(),
			Metrics:   sink,
		},
		Policy: policy,
	})

	badges := service.NewBadgeService(service.BadgeServiceOptions{
		Ledger: ledger,
	})

	leaderboards := service.NewLeaderboardService(service.LeaderboardServiceOptions{
		Repos: service.LeaderboardRepos{
			Profiles:   opts.Repos.Profiles,
			Activities: opts.Repos.Activities,
		},
		Bus:     bus,
		Metrics: sink,
	})

	referrals := service.NewReferralService(service.ReferralServiceOptions{
		Referrals: opts.Repos.Referrals,
		Ledger:    ledger,
	})

	creations := service.NewCreationService(service.CreationServiceOptions{
		Creations: opts.Repos.Creations,
		Ledger:    ledger,
	})

	return ServiceContainer{
		Ledger:        ledger,
		Jobs:          jobs,
		Badges:        badges,
		Leaderboards:  leaderboards,
		Referrals:     referrals,
		Creations:     creations,
		Sessions:      opts.Sessions,
		Limiter:       ratelimit.New(ratelimit.Config{}),
		Observability: opts.Observability,
	}
}

// NewServices builds the full service container from configuration and
// connections.
func NewServices(deps *ServiceDeps) ServiceContainer {
	if deps == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var appCfg *config.AppConfig
	var obsCfg config.ObservabilityConfig
	var storeCfg config.StoreConfig
	if deps.Config != nil {
		appCfg = deps.Config
		obsCfg = deps.Config.Observability
		storeCfg = deps.Config.Store
	}

	observability := buildObservability(logger, obsCfg)
	repos := buildRepositories(storeCfg.Backend, deps.DB)
	sessions := buildSessionStore(storeCfg, deps.RedisClient)

	container := buildDomainServices(&DomainServicesOptions{
		Repos:         repos,
		Observability: observability,
		Config:        appCfg,
		Sessions:      sessions,
	})

	if appCfg != nil {
		seedDevSession(context.Background(), sessions, appCfg, logger)
	}

	return container
}

// seedDevSession installs a fixed-token session so a local instance is
// usable without the upstream auth service. Only active in dev mode with an
// explicit token configured.
func seedDevSession(ctx context.Context, store ports.SessionStore, cfg *config.AppConfig, logger *slog.Logger) {
	if !cfg.IsDev || cfg.Session.DevToken == "" {
		return
	}

	sess := domainauth.Session{
		ID:        cfg.Session.DevToken,
		UserID:    cfg.Session.DevUserID,
		Handle:    cfg.Session.DevHandle,
		Tier:      domainauth.TierPro,
		ExpiresAt: time.Now().Add(cfg.Session.TTL),
	}
	if err := store.Save(ctx, sess); err != nil {
		logger.Warn("failed to seed dev session", "error", err)
		return
	}
	logger.Info("dev session seeded", "user_id", sess.UserID, "handle", sess.Handle)
}

// RecoverQueuedJobs reschedules jobs left queued or running by a previous
// process. Only meaningful for persistent backends; with the memory store
// there is nothing to recover.
func RecoverQueuedJobs(ctx context.Context, container ServiceContainer, logger *slog.Logger) error {
	recovered, err := container.Jobs.RecoverPending(ctx)
	if err != nil {
		return err
	}
	if logger != nil && recovered > 0 {
		logger.InfoContext(ctx, "pending jobs recovered", "jobs", recovered)
	}
	return nil
}
