// Package config handles loading, parsing, and validating application configuration.
// It defines the structure for configuration settings, provides default values,
// loads settings from YAML files, and applies overrides from environment variables.
// file: internal/config/config.go.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/freshbooks-mcp/internal/logging"
)

// Environment variables read by applyEnvironmentOverrides.
const (
	EnvClientID     = "FRESHBOOKS_CLIENT_ID"
	EnvClientSecret = "FRESHBOOKS_CLIENT_SECRET"
	EnvRedirectURI  = "FRESHBOOKS_REDIRECT_URI"
	EnvAPIBaseURL   = "FRESHBOOKS_API_BASE_URL"
	EnvEnvironment  = "FRESHBOOKS_MCP_ENV"
	EnvLogLevel     = "LOG_LEVEL"
	EnvMetricsAddr  = "FRESHBOOKS_MCP_METRICS_ADDR"
)

// ServerConfig contains settings reported to MCP clients during initialize.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// FreshBooksConfig contains OAuth client credentials and API client tuning.
type FreshBooksConfig struct {
	// ClientID and ClientSecret identify the OAuth application. Required.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	APIBaseURL   string `yaml:"api_base_url"`
	TokenURL     string `yaml:"token_url"`
	// RequestsPerSecond and Burst configure the client-side rate limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	// MaxRetries bounds retries of idempotent requests. Zero disables retries.
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// AuthConfig contains settings for token storage.
type AuthConfig struct {
	// KeyringService is the OS keyring service name under which tokens are stored.
	KeyringService string `yaml:"keyring_service"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ErrorsConfig controls how errors are rendered.
type ErrorsConfig struct {
	// Production strips stack traces from error responses.
	Production bool `yaml:"production"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	FreshBooks FreshBooksConfig `yaml:"freshbooks"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Errors     ErrorsConfig     `yaml:"errors"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DefaultConfig returns a configuration populated with default values and
// environment overrides applied.
func DefaultConfig() *Config {
	cfg := defaults()
	applyEnvironmentOverrides(cfg, logging.GetLogger("config_default"))
	return cfg
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "FreshBooks MCP",
			Version: "0.1.0",
		},
		FreshBooks: FreshBooksConfig{
			RedirectURI:       "https://localhost:8443/callback",
			APIBaseURL:        "https://api.freshbooks.com",
			TokenURL:          "https://api.freshbooks.com/auth/oauth/token",
			RequestsPerSecond: 5,
			Burst:             5,
			MaxRetries:        3,
			Timeout:           30 * time.Second,
		},
		Auth: AuthConfig{
			KeyringService: "freshbooks-mcp",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from the specified YAML file path.
// It starts with default values, merges the values from the YAML file,
// and finally applies any environment variable overrides.
// Supports '~' expansion in the file path.
func LoadFromFile(path string) (*Config, error) {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get home directory to expand path")
		}
		path = filepath.Join(homeDir, path[1:])
	}

	// #nosec G304 -- Path comes from command-line flag, considered trusted input.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file YAML: %s", path)
	}

	applyEnvironmentOverrides(cfg, logging.GetLogger("config_load"))
	return cfg, nil
}

// Load reads path when it is set and falls back to DefaultConfig otherwise.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFromFile(path)
}

// Validate reports configuration that would make every tool call fail.
func (c *Config) Validate() error {
	var errs []string
	if c.FreshBooks.ClientID == "" {
		errs = append(errs, "freshbooks.client_id is required (or set "+EnvClientID+")")
	}
	if c.FreshBooks.ClientSecret == "" {
		errs = append(errs, "freshbooks.client_secret is required (or set "+EnvClientSecret+")")
	}
	if c.FreshBooks.APIBaseURL == "" {
		errs = append(errs, "freshbooks.api_base_url must not be empty")
	}
	if c.FreshBooks.RequestsPerSecond <= 0 {
		errs = append(errs, "freshbooks.requests_per_second must be positive")
	}
	if c.FreshBooks.Burst <= 0 {
		errs = append(errs, "freshbooks.burst must be positive")
	}
	if c.FreshBooks.MaxRetries < 0 {
		errs = append(errs, "freshbooks.max_retries must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return errors.Newf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvironmentOverrides applies configuration overrides from environment variables.
// Environment variables take precedence over values set in configuration files or defaults.
func applyEnvironmentOverrides(cfg *Config, logger logging.Logger) {
	override := func(envVar string, target *string) {
		if v := os.Getenv(envVar); v != "" {
			logger.Debug("Overriding configuration from environment.", "envVar", envVar)
			*target = v
		}
	}

	override(EnvClientID, &cfg.FreshBooks.ClientID)
	override(EnvClientSecret, &cfg.FreshBooks.ClientSecret)
	override(EnvRedirectURI, &cfg.FreshBooks.RedirectURI)
	override(EnvAPIBaseURL, &cfg.FreshBooks.APIBaseURL)
	override(EnvLogLevel, &cfg.Logging.Level)
	override(EnvMetricsAddr, &cfg.Metrics.Addr)

	if env := os.Getenv(EnvEnvironment); env != "" {
		cfg.Errors.Production = strings.EqualFold(env, "production")
		logger.Debug("Error rendering mode set from environment.", "envVar", EnvEnvironment, "production", cfg.Errors.Production)
	}

	if cfg.FreshBooks.ClientID == "" {
		logger.Warn("Required FRESHBOOKS_CLIENT_ID is missing (checked environment and config file).")
	}
	if cfg.FreshBooks.ClientSecret == "" {
		logger.Warn("Required FRESHBOOKS_CLIENT_SECRET is missing (checked environment and config file).")
	}
}
