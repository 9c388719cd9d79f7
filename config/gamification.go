package config

import "time"

// ScoringConfig contains overrides for the scoring policy tables.
type ScoringConfig struct {
	// ProMultiplier scales job points for pro accounts.
	ProMultiplier int64 `env:"SCORING_PRO_MULTIPLIER" envDefault:"2"`
}

// Sanitize applies guardrails to scoring configuration values.
func (s *ScoringConfig) Sanitize() {
	if s.ProMultiplier < 1 {
		s.ProMultiplier = 1
	}
}

// SessionConfig contains session store configuration.
type SessionConfig struct {
	// TTL is the lifetime of dev-seeded sessions. Upstream-issued sessions
	// carry their own expiry.
	TTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`

	// DevUserID seeds a ready-to-use session in dev mode.
	DevUserID string `env:"SESSION_DEV_USER_ID" envDefault:"dev-user"`
	// DevHandle is the display handle for the dev session.
	DevHandle string `env:"SESSION_DEV_HANDLE" envDefault:"dev-creator"`
	// DevToken is the fixed session token minted in dev mode. Empty disables
	// seeding.
	DevToken string `env:"SESSION_DEV_TOKEN" envDefault:""`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.TTL <= 0 {
		s.TTL = 8 * time.Hour
	}
}
