package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the project-level config file looked up in the working directory
const DefaultFileName = "agency.yaml"

// Credential backends
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// Config holds all configuration for the CLI and the stub backend
type Config struct {
	// API Configuration
	API APIConfig `yaml:"api"`

	// Credential storage Configuration
	Credentials CredentialsConfig `yaml:"credentials"`

	// Session Configuration
	Session SessionConfig `yaml:"session"`

	// Logging Configuration
	Logging LoggingConfig `yaml:"logging"`

	// Stub backend Configuration
	MockAPI MockAPIConfig `yaml:"mockapi"`
}

// APIConfig holds the agency API connection settings
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CredentialsConfig selects where the bearer token and profile are persisted
type CredentialsConfig struct {
	Backend        string `yaml:"backend"` // keyring, file
	KeyringService string `yaml:"keyring_service"`
	Dir            string `yaml:"dir"` // also holds state.json
}

// SessionConfig holds session behaviour settings
type SessionConfig struct {
	RefreshSchedule string `yaml:"refresh_schedule"` // cron schedule used by `profile watch`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// MockAPIConfig configures the development stub backend
type MockAPIConfig struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	DatabaseURL   string        `yaml:"database_url"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Credentials: CredentialsConfig{
			Backend:        BackendKeyring,
			KeyringService: "agency-cli",
			Dir:            defaultDir(),
		},
		Session: SessionConfig{
			RefreshSchedule: "@every 1m",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		MockAPI: MockAPIConfig{
			Addr:          ":8080",
			JWTSecret:     "dev-secret-change-me",
			DatabaseURL:   "file::memory:?cache=shared",
			AdminEmail:    "admin@agency.local",
			AdminPassword: "admin-password",
			TokenTTL:      24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := Default()

	path := os.Getenv("AGENCY_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is empty (set AGENCY_API_URL)")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api base url must start with http:// or https://, got %q", c.API.BaseURL)
	}
	switch c.Credentials.Backend {
	case BackendKeyring, BackendFile:
	default:
		return fmt.Errorf("invalid credential backend '%s', must be one of: keyring, file", c.Credentials.Backend)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.API.BaseURL, "AGENCY_API_URL")
	setString(&c.Credentials.Backend, "AGENCY_CREDENTIAL_BACKEND")
	setString(&c.Credentials.KeyringService, "AGENCY_KEYRING_SERVICE")
	setString(&c.Credentials.Dir, "AGENCY_CONFIG_DIR")
	setString(&c.Session.RefreshSchedule, "AGENCY_REFRESH_SCHEDULE")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.MockAPI.Addr, "MOCKAPI_ADDR")
	setString(&c.MockAPI.JWTSecret, "MOCKAPI_JWT_SECRET")
	setString(&c.MockAPI.DatabaseURL, "MOCKAPI_DATABASE_URL")
	setString(&c.MockAPI.AdminEmail, "MOCKAPI_ADMIN_EMAIL")
	setString(&c.MockAPI.AdminPassword, "MOCKAPI_ADMIN_PASSWORD")

	if err := setDuration(&c.API.Timeout, "AGENCY_API_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.MockAPI.TokenTTL, "MOCKAPI_TOKEN_TTL"); err != nil {
		return err
	}

	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func defaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".agency")
	}
	return filepath.Join(homeDir, ".config", "agency")
}
