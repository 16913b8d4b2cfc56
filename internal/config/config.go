package config

import (
	"encoding/hex"
	"fmt"
	"time"

	pkgconfig "github.com/inkwellhq/inkwell/pkg/config"
)

// Config holds all configuration for the API server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL. Two roles connect to the same database: the app role is
	// subject to row security and serves request transactions; the owner
	// role bypasses it and serves pre-auth lookups, system operations, and
	// migrations.
	PostgresHost      string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort      int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresOwnerUser string `env:"POSTGRES_OWNER_USER" envDefault:"inkwell"`
	PostgresOwnerPass string `env:"POSTGRES_OWNER_PASSWORD" envDefault:"inkwell_secret"`
	PostgresAppUser   string `env:"POSTGRES_APP_USER" envDefault:"inkwell_app"`
	PostgresAppPass   string `env:"POSTGRES_APP_PASSWORD" envDefault:"inkwell_app_secret"`
	PostgresDB        string `env:"POSTGRES_DB" envDefault:"inkwell_db"`
	PostgresSSL       string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT. Access and refresh tokens are signed with separate secrets.
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET" envDefault:"change-this-access-secret-in-prod"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:"change-this-refresh-secret-in-pro"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Note content encryption. Two independent 32-byte keys, hex encoded:
	// one encrypts, the other authenticates.
	NoteEncryptionKey string `env:"NOTE_ENCRYPTION_KEY" envDefault:"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"`
	NoteMACKey        string `env:"NOTE_MAC_KEY" envDefault:"202122232425262728292a2b2c2d2e2f303132333435363738393a3b3c3d3e3f"`

	// Rate limiting
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Maintenance
	MaintenanceInterval time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"1h"`

	// Slow query logging; zero disables it.
	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"250ms"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:""`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	if err := validateKey("NOTE_ENCRYPTION_KEY", cfg.NoteEncryptionKey); err != nil {
		return nil, err
	}
	if err := validateKey("NOTE_MAC_KEY", cfg.NoteMACKey); err != nil {
		return nil, err
	}
	if cfg.NoteEncryptionKey == cfg.NoteMACKey {
		return nil, fmt.Errorf("NOTE_ENCRYPTION_KEY and NOTE_MAC_KEY must be different keys")
	}

	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be different")
	}

	// Outside development, defaults are not credentials.
	if cfg.Environment != "development" {
		if cfg.JWTAccessSecret == "change-this-access-secret-in-prod" ||
			cfg.JWTRefreshSecret == "change-this-refresh-secret-in-pro" {
			return nil, fmt.Errorf("JWT secrets must be explicitly set in %q mode", cfg.Environment)
		}
		if len(cfg.JWTAccessSecret) < 32 || len(cfg.JWTRefreshSecret) < 32 {
			return nil, fmt.Errorf("JWT secrets must be at least 32 characters long")
		}
	}

	return cfg, nil
}

// validateKey checks that a key is 32 bytes of hex.
func validateKey(name, value string) error {
	raw, err := hex.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%s must be hex encoded: %w", name, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(raw))
	}
	return nil
}

// OwnerDSN returns the connection string for the schema-owner role.
func (c *Config) OwnerDSN() string {
	return c.dsn(c.PostgresOwnerUser, c.PostgresOwnerPass)
}

// AppDSN returns the connection string for the row-security-bound app role.
func (c *Config) AppDSN() string {
	return c.dsn(c.PostgresAppUser, c.PostgresAppPass)
}

func (c *Config) dsn(user, pass string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, pass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
