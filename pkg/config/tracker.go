package config

import "fmt"

// TrackerConfig is the top-level tracking API service configuration.
type TrackerConfig struct {
	Server   TrackerServerConfig `yaml:"server" mapstructure:"server"`
	Auth     TrackerAuthConfig   `yaml:"auth" mapstructure:"auth"`
	Database DatabaseConfig      `yaml:"database" mapstructure:"database"`
}

// TrackerServerConfig contains HTTP server settings.
type TrackerServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig contains per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// TrackerAuthConfig contains authentication settings.
// Tokens may be plaintext or bcrypt hashes (prefixed "$2").
type TrackerAuthConfig struct {
	Tokens []string `yaml:"tokens,omitempty" mapstructure:"tokens"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string               `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// Default tracker settings.
const (
	DefaultTrackerListen = ":8080"
	DefaultSQLitePath    = "./reportoor.db"
)

// applyDefaults sets default values for unspecified tracker options.
func (t *TrackerConfig) applyDefaults() {
	if t.Server.Listen == "" {
		t.Server.Listen = DefaultTrackerListen
	}

	if t.Database.Driver == "" {
		t.Database.Driver = "sqlite"
	}

	if t.Database.Driver == "sqlite" && t.Database.SQLite.Path == "" {
		t.Database.SQLite.Path = DefaultSQLitePath
	}

	if t.Server.RateLimit.Enabled && t.Server.RateLimit.RequestsPerMinute == 0 {
		t.Server.RateLimit.RequestsPerMinute = 600
	}
}

// Validate checks the tracker configuration for errors.
func (t *TrackerConfig) Validate() error {
	switch t.Database.Driver {
	case "sqlite":
		if t.Database.SQLite.Path == "" {
			return fmt.Errorf("tracker.database.sqlite.path is required")
		}
	case "postgres":
		if t.Database.Postgres.Host == "" {
			return fmt.Errorf("tracker.database.postgres.host is required")
		}

		if t.Database.Postgres.Database == "" {
			return fmt.Errorf("tracker.database.postgres.database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", t.Database.Driver)
	}

	if len(t.Auth.Tokens) == 0 {
		return fmt.Errorf("tracker.auth.tokens: at least one token is required")
	}

	return nil
}
