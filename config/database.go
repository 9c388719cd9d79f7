package config

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"creator"`
	Password string `env:"PASSWORD" envDefault:"creator"`
	Name     string `env:"NAME"     envDefault:"creator"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the session store.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// StoreBackend selects the persistence backend for gamification state.
type StoreBackend string

const (
	// StoreMemory keeps all state in process memory. Default for dev and tests.
	StoreMemory StoreBackend = "memory"
	// StorePostgres persists state in PostgreSQL.
	StorePostgres StoreBackend = "postgres"
)

// StoreConfig selects data and session backends.
type StoreConfig struct {
	// Backend is the gamification state store: memory or postgres.
	Backend StoreBackend `env:"STORE_BACKEND" envDefault:"memory"`
	// SessionBackend is the session store: memory or redis.
	SessionBackend string `env:"SESSION_BACKEND" envDefault:"memory"`
}

// Sanitize applies guardrails to store selection.
func (s *StoreConfig) Sanitize() {
	if s.Backend != StorePostgres {
		s.Backend = StoreMemory
	}
	if s.SessionBackend != "redis" {
		s.SessionBackend = "memory"
	}
}
