// Package config handles application configuration.
//
// Go Pattern: Configuration via environment variables with sensible defaults.
// Values are layered, lowest priority first:
//  1. built-in defaults
//  2. an optional YAML file named by CONFIG_FILE
//  3. environment variables (a local .env file is loaded into the
//     environment first, without overriding variables that are already set)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendFile   = "file"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"` // "debug", "release", or "test"

	// Uploads
	MaxUploadMB     int `yaml:"max_upload_mb"`
	UploadRateLimit int `yaml:"upload_rate_limit"` // Uploads per hour per client IP

	// Session slot storage
	SessionBackend string `yaml:"session_backend"` // "memory" or "file"
	SessionDir     string `yaml:"session_dir"`

	// Viewer sessions are released after this long without a request
	ViewerIdleTTLMinutes int `yaml:"viewer_idle_ttl_minutes"`

	// CORS
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:                 "8080",
		GinMode:              "debug",
		MaxUploadMB:          100,
		UploadRateLimit:      60,
		SessionBackend:       SessionBackendMemory,
		SessionDir:           "./data/sessions",
		ViewerIdleTTLMinutes: 30,
		AllowedOrigins:       []string{"http://localhost:3000"}, // Next.js dev server default
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML overlays the fields present in a YAML file.
func (c *Config) loadYAML(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables on top of the current values.
func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)

	c.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", c.MaxUploadMB)
	c.UploadRateLimit = getEnvInt("UPLOAD_RATE_LIMIT", c.UploadRateLimit)

	c.SessionBackend = getEnv("SESSION_BACKEND", c.SessionBackend)
	c.SessionDir = getEnv("SESSION_DIR", c.SessionDir)

	c.ViewerIdleTTLMinutes = getEnvInt("VIEWER_IDLE_TTL_MINUTES", c.ViewerIdleTTLMinutes)

	// CORS: in production, set this to your frontend URL
	if origin := getEnv("CORS_ORIGIN", ""); origin != "" {
		c.AllowedOrigins = []string{origin}
	}
}

// Validate rejects configurations the server can't run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB))
	}
	if c.UploadRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_RATE_LIMIT must be positive, got %d", c.UploadRateLimit))
	}

	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendFile:
		if c.SessionDir == "" {
			errs = append(errs, errors.New("SESSION_DIR is required when SESSION_BACKEND=file"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q (want %q or %q)", c.SessionBackend, SessionBackendMemory, SessionBackendFile))
	}

	return errors.Join(errs...)
}

// MaxUploadBytes is the request body cap for archive uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ViewerIdleTTL is the idle time after which viewer sessions are released.
// Zero or negative disables reaping.
func (c *Config) ViewerIdleTTL() time.Duration {
	return time.Duration(c.ViewerIdleTTLMinutes) * time.Minute
}

// getEnv reads an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a fallback.
func getEnvInt(key string, fallback int) int {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return fallback
	}
	return val
}
