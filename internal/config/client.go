package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// APIPath is appended to API_URL to form the client's base URL.
	APIPath = "/api/v1/"

	defaultClientLogLevel = "warn"
	defaultRequestTimeout = 30 * time.Second
	defaultSplashDelay    = 2 * time.Second
)

// ClientConfig holds the terminal client's settings.
type ClientConfig struct {
	// APIURL is the server origin, e.g. https://api.example.com. Empty means
	// the relative base APIPath is used.
	APIURL               string
	StateDir             string
	LogLevel             string
	RequestTimeout       time.Duration
	SplashDelay          time.Duration
	DevOTPInbox          bool
	LegacyExpiryMessages bool
}

// LoadClient reads the client configuration from .env (if present) and the
// environment.
func LoadClient() (ClientConfig, error) {
	v := newViper()
	v.SetDefault("LOG_LEVEL", defaultClientLogLevel)
	v.SetDefault("REQUEST_TIMEOUT", defaultRequestTimeout.String())
	v.SetDefault("SPLASH_DELAY", defaultSplashDelay.String())
	v.SetDefault("LEGACY_EXPIRY_MESSAGES", true)

	cfg := ClientConfig{
		APIURL:               strings.TrimRight(v.GetString("API_URL"), "/"),
		StateDir:             v.GetString("FIELDOPS_STATE_DIR"),
		LogLevel:             strings.ToLower(v.GetString("LOG_LEVEL")),
		DevOTPInbox:          v.GetBool("FIELDOPS_DEV_OTP"),
		LegacyExpiryMessages: v.GetBool("LEGACY_EXPIRY_MESSAGES"),
	}

	var err error
	if cfg.RequestTimeout, err = time.ParseDuration(v.GetString("REQUEST_TIMEOUT")); err != nil {
		return ClientConfig{}, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if cfg.SplashDelay, err = time.ParseDuration(v.GetString("SPLASH_DELAY")); err != nil {
		return ClientConfig{}, fmt.Errorf("invalid SPLASH_DELAY: %w", err)
	}

	if cfg.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("resolve state dir: %w", err)
		}
		cfg.StateDir = filepath.Join(dir, "fieldops")
	}

	return cfg, nil
}

// BaseURL returns API_URL joined with APIPath, or the relative APIPath when
// API_URL is unset.
func (c ClientConfig) BaseURL() string {
	if c.APIURL == "" {
		return APIPath
	}
	return c.APIURL + APIPath
}
