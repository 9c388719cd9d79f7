package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soundrise/creator-api/config"
	httpx "github.com/soundrise/creator-api/internal/http"
	"github.com/soundrise/creator-api/internal/ratelimit"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// BuildHTTPServer creates the HTTP server with the full middleware stack.
// The caller owns starting and stopping it.
func BuildHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	services := httpx.RouterServices{
		Jobs:         cfg.Services.Jobs,
		Ledger:       cfg.Services.Ledger,
		Badges:       cfg.Services.Badges,
		Leaderboards: cfg.Services.Leaderboards,
		Referrals:    cfg.Services.Referrals,
		Creations:    cfg.Services.Creations,
		Sessions:     cfg.Services.Sessions,
		Limiter:      cfg.Services.Limiter,
		Limits:       rateLimitsFromConfig(appCfg.RateLimit),
		Metrics:      metricsSinkOrNil(cfg.Services.Observability.MetricsSink),
		Logger:       logger,
	}

	addr := appCfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:         addr,
		Handler:      httpx.NewRouter(services),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func rateLimitsFromConfig(cfg config.RateLimitConfig) httpx.RateLimits {
	return httpx.RateLimits{
		JobCreate:   ratelimit.Rule{Max: cfg.JobCreateMax, Window: cfg.JobCreateWindow},
		Leaderboard: ratelimit.Rule{Max: cfg.LeaderboardMax, Window: cfg.LeaderboardWindow},
		Mutations:   ratelimit.Rule{Max: cfg.MutationMax, Window: cfg.MutationWindow},
	}
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts the HTTP server and background loops and
// blocks until a shutdown signal is received or a component fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := RecoverQueuedJobs(ctx, cfg.Services, logger); err != nil {
		logger.Warn("failed to recover pending jobs", "error", err)
	}

	server := BuildHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		cfg.Services.Limiter.RunSweeper(gctx, cfg.Config.RateLimit.SweepInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return shutdown(server, cfg, logger)
	})

	return g.Wait()
}

// shutdown drains the HTTP server, stops pending job timers, and flushes
// the metrics sink.
func shutdown(server *http.Server, cfg *ServiceOrchestrationConfig, logger *slog.Logger) error {
	logger.Info("shutting down services")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Config.HTTP.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)

	if cfg.Services.Jobs != nil {
		cfg.Services.Jobs.Stop()
	}
	if sink := cfg.Services.Observability.MetricsSink; sink != nil {
		if closeErr := sink.Close(); closeErr != nil {
			logger.Warn("failed to close metrics sink", "error", closeErr)
		}
	}

	if err != nil {
		return err
	}
	logger.Info("services stopped")
	return nil
}
