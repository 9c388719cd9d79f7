package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://app.example.com").
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// RateLimitConfig contains the per-action fixed-window budgets.
type RateLimitConfig struct {
	// JobCreateMax is the number of job submissions allowed per window.
	JobCreateMax    int           `env:"RATE_JOB_CREATE_MAX"    envDefault:"10"`
	JobCreateWindow time.Duration `env:"RATE_JOB_CREATE_WINDOW" envDefault:"1m"`

	// LeaderboardMax is the number of leaderboard reads allowed per window.
	LeaderboardMax    int           `env:"RATE_LEADERBOARD_MAX"    envDefault:"30"`
	LeaderboardWindow time.Duration `env:"RATE_LEADERBOARD_WINDOW" envDefault:"1m"`

	// MutationMax is the number of other write requests allowed per window.
	MutationMax    int           `env:"RATE_MUTATION_MAX"    envDefault:"60"`
	MutationWindow time.Duration `env:"RATE_MUTATION_WINDOW" envDefault:"1m"`

	// SweepInterval is how often expired buckets are collected.
	SweepInterval time.Duration `env:"RATE_SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize applies guardrails to rate-limit configuration values.
func (r *RateLimitConfig) Sanitize() {
	if r.JobCreateMax < 1 {
		r.JobCreateMax = 1
	}
	if r.LeaderboardMax < 1 {
		r.LeaderboardMax = 1
	}
	if r.MutationMax < 1 {
		r.MutationMax = 1
	}
	if r.JobCreateWindow <= 0 {
		r.JobCreateWindow = time.Minute
	}
	if r.LeaderboardWindow <= 0 {
		r.LeaderboardWindow = time.Minute
	}
	if r.MutationWindow <= 0 {
		r.MutationWindow = time.Minute
	}
	if r.SweepInterval <= 0 {
		r.SweepInterval = time.Minute
	}
}
