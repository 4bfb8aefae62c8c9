// Package config provides configuration management for the supermarkets
// server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultServerPort        = 8080
	DefaultLogLevel          = "info"
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMetricsEnabled    = true
	DefaultStorageMode       = "memory"
	DefaultSessionCookieName = "supermarkets_session"
	DefaultSessionTTL        = 24 * time.Hour
	DefaultLoginPath         = "/login"
	DefaultDashboardPath     = "/dashboard"
)

// Environment variable names.
const (
	EnvServerPort        = "APP_SERVER_PORT"
	EnvLogLevel          = "APP_LOG_LEVEL"
	EnvShutdownTimeout   = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled    = "APP_METRICS_ENABLED"
	EnvStorageMode       = "APP_STORAGE_MODE"
	EnvDatabaseURL       = "APP_DATABASE_URL"
	EnvSessionUsers      = "APP_SESSION_USERS" //nolint:gosec // env var name, not a credential
	EnvSessionCookieName = "APP_SESSION_COOKIE_NAME"
	EnvSessionTTL        = "APP_SESSION_TTL"
	EnvLoginPath         = "APP_LOGIN_PATH"
	EnvDashboardPath     = "APP_DASHBOARD_PATH"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Storage mode: memory or postgres.
	StorageMode string

	// PostgreSQL connection string, required when storage mode is postgres.
	DatabaseURL string

	// Session users (format: "email1:bcrypt_hash,email2:bcrypt_hash").
	SessionUsers string

	// Session cookie settings.
	SessionCookieName string
	SessionTTL        time.Duration

	// Guard redirect destinations.
	LoginPath     string
	DashboardPath string
}

// Validation errors.
var (
	ErrInvalidServerPort = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel   = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdown   = errors.New("shutdown timeout must be positive")
	ErrInvalidStorage    = errors.New("storage mode must be one of: memory, postgres")
	ErrMissingDatabase   = errors.New(
		"database URL must be set when storage mode is postgres",
	)
	ErrMissingSessionUsers = errors.New(
		"session users must be set",
	)
	ErrInvalidSessionTTL = errors.New("session TTL must be positive")
	ErrInvalidLoginPath  = errors.New("login path must start with /")
	ErrInvalidDashboard  = errors.New("dashboard path must start with /")
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:        DefaultServerPort,
		LogLevel:          DefaultLogLevel,
		ShutdownTimeout:   DefaultShutdownTimeout,
		MetricsEnabled:    DefaultMetricsEnabled,
		StorageMode:       DefaultStorageMode,
		SessionCookieName: DefaultSessionCookieName,
		SessionTTL:        DefaultSessionTTL,
		LoginPath:         DefaultLoginPath,
		DashboardPath:     DefaultDashboardPath,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadSessionEnv(); err != nil {
		return err
	}

	c.loadStorageEnv()
	c.loadGuardEnv()

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

// loadStorageEnv loads storage-related environment variables.
func (c *Config) loadStorageEnv() {
	if val := os.Getenv(EnvStorageMode); val != "" {
		c.StorageMode = val
	}

	if val := os.Getenv(EnvDatabaseURL); val != "" {
		c.DatabaseURL = val
	}
}

// loadSessionEnv loads session-related environment variables.
func (c *Config) loadSessionEnv() error {
	if val := os.Getenv(EnvSessionUsers); val != "" {
		c.SessionUsers = val
	}

	if val := os.Getenv(EnvSessionCookieName); val != "" {
		c.SessionCookieName = val
	}

	if val := os.Getenv(EnvSessionTTL); val != "" {
		ttl, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvSessionTTL, err)
		}
		c.SessionTTL = ttl
	}

	return nil
}

// loadGuardEnv loads guard redirect environment variables.
func (c *Config) loadGuardEnv() {
	if val := os.Getenv(EnvLoginPath); val != "" {
		c.LoginPath = val
	}

	if val := os.Getenv(EnvDashboardPath); val != "" {
		c.DashboardPath = val
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdown
	}

	validStorageModes := map[string]bool{
		"memory":   true,
		"postgres": true,
	}
	if !validStorageModes[c.StorageMode] {
		return ErrInvalidStorage
	}

	if c.StorageMode == "postgres" && c.DatabaseURL == "" {
		return ErrMissingDatabase
	}

	if c.SessionUsers == "" {
		return ErrMissingSessionUsers
	}

	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}

	if len(c.LoginPath) == 0 || c.LoginPath[0] != '/' {
		return ErrInvalidLoginPath
	}

	if len(c.DashboardPath) == 0 || c.DashboardPath[0] != '/' {
		return ErrInvalidDashboard
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
