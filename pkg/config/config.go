package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultStateDir is the default directory for reporter state files
	// (run log + run handle) shared between process invocations.
	DefaultStateDir = "./.reportoor"

	// DefaultRequestTimeout is the per-request budget for tracking calls.
	DefaultRequestTimeout = "10s"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "REPORTOOR"
)

// Config is the root configuration for reportoor.
type Config struct {
	Global    GlobalConfig     `yaml:"global" mapstructure:"global"`
	Reporter  ReporterConfig   `yaml:"reporter" mapstructure:"reporter"`
	Tracker   *TrackerConfig   `yaml:"tracker,omitempty" mapstructure:"tracker"`
	Artifacts *ArtifactsConfig `yaml:"artifacts,omitempty" mapstructure:"artifacts"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ReporterConfig contains settings for the test-run reporting client.
type ReporterConfig struct {
	Enabled        bool              `yaml:"enabled" mapstructure:"enabled"`
	BaseURL        string            `yaml:"base_url" mapstructure:"base_url"`
	Token          string            `yaml:"token,omitempty" mapstructure:"token"`
	OrgID          string            `yaml:"org_id,omitempty" mapstructure:"org_id"`
	CreatorID      string            `yaml:"creator_id,omitempty" mapstructure:"creator_id"`
	RequestTimeout string            `yaml:"request_timeout,omitempty" mapstructure:"request_timeout"`
	StateDir       string            `yaml:"state_dir,omitempty" mapstructure:"state_dir"`
	Metadata       RunMetadataConfig `yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// RunMetadataConfig describes the run being reported. Empty fields fall
// back to the CI environment (GITHUB_* variables) at start time.
type RunMetadataConfig struct {
	JobName     string `yaml:"job_name,omitempty" mapstructure:"job_name"`
	BuildNumber string `yaml:"build_number,omitempty" mapstructure:"build_number"`
	Branch      string `yaml:"branch,omitempty" mapstructure:"branch"`
	Commit      string `yaml:"commit,omitempty" mapstructure:"commit"`
	TriggeredBy string `yaml:"triggered_by,omitempty" mapstructure:"triggered_by"`
	Environment string `yaml:"environment,omitempty" mapstructure:"environment"`
}

// ArtifactsConfig contains settings for run artifact uploads.
type ArtifactsConfig struct {
	S3 *S3UploadConfig `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3UploadConfig contains S3-compatible storage settings for artifact uploads.
type S3UploadConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	StorageClass    string `yaml:"storage_class,omitempty" mapstructure:"storage_class"`
	ACL             string `yaml:"acl,omitempty" mapstructure:"acl"`
	Concurrency     int    `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
}

// Load reads and parses a configuration file from the given path.
// Values can be overridden with REPORTOOR_* environment variables,
// e.g. REPORTOOR_REPORTER_BASE_URL overrides reporter.base_url.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind every known key explicitly so environment overrides are
	// honored by Unmarshal, not only by direct Get calls.
	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Reporter.RequestTimeout == "" {
		c.Reporter.RequestTimeout = DefaultRequestTimeout
	}

	if c.Reporter.StateDir == "" {
		c.Reporter.StateDir = DefaultStateDir
	}

	if c.Tracker != nil {
		c.Tracker.applyDefaults()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Reporter.Enabled {
		if c.Reporter.BaseURL == "" {
			return fmt.Errorf("reporter.base_url is required when reporter is enabled")
		}

		if _, err := time.ParseDuration(c.Reporter.RequestTimeout); err != nil {
			return fmt.Errorf("reporter.request_timeout: %w", err)
		}
	}

	if c.Artifacts != nil && c.Artifacts.S3 != nil && c.Artifacts.S3.Enabled {
		if c.Artifacts.S3.Bucket == "" {
			return fmt.Errorf("artifacts.s3.bucket is required when S3 upload is enabled")
		}
	}

	return nil
}

// ValidateTracker checks the tracker section for errors.
func (c *Config) ValidateTracker() error {
	if c.Tracker == nil {
		return fmt.Errorf("tracker section is required")
	}

	return c.Tracker.Validate()
}

// Dump renders the effective configuration as YAML with secrets
// redacted.
func (c *Config) Dump() ([]byte, error) {
	redacted := *c

	if redacted.Reporter.Token != "" {
		redacted.Reporter.Token = "<redacted>"
	}

	if redacted.Artifacts != nil && redacted.Artifacts.S3 != nil {
		s3 := *redacted.Artifacts.S3
		if s3.SecretAccessKey != "" {
			s3.SecretAccessKey = "<redacted>"
		}

		artifacts := *redacted.Artifacts
		artifacts.S3 = &s3
		redacted.Artifacts = &artifacts
	}

	if redacted.Tracker != nil {
		tracker := *redacted.Tracker
		if len(tracker.Auth.Tokens) > 0 {
			tracker.Auth.Tokens = []string{"<redacted>"}
		}

		if tracker.Database.Postgres.Password != "" {
			tracker.Database.Postgres.Password = "<redacted>"
		}

		redacted.Tracker = &tracker
	}

	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	return data, nil
}

// Timeout returns the parsed per-request timeout, falling back to the
// default when the configured value is missing or malformed.
func (r *ReporterConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(r.RequestTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultRequestTimeout)
	}

	return d
}
