package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAppName         = "FieldOps"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultSessionTTL      = 7 * 24 * time.Hour
	defaultSessionCookie   = "fieldops_session"
	defaultOTPTTL          = 5 * time.Minute
	defaultOTPBcryptCost   = 10
	defaultLoginRatePerMin = 5
	defaultAdminMobile     = "9999999999"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures the development backend configuration loaded from the
// environment and an optional .env file.
type Config struct {
	AppName         string
	Env             string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	SessionSecret   string
	SessionTTL      time.Duration
	SessionCookie   string
	CookieSecure    bool
	OTPTTL          time.Duration
	OTPBcryptCost   int
	OTPReturnToDev  bool
	LoginRatePerMin int
	// AdminMobile seeds an administrator account at startup when set.
	AdminMobile     string
	SMS             SMSConfig
	Storage         StorageConfig
}

// SMSConfig configures the HTTP SMS gateway used to deliver OTP codes.
// An empty APIKey means codes are only logged.
type SMSConfig struct {
	APIKey  string
	BaseURL string
	Sender  string
}

// StorageConfig configures S3-compatible object storage for uploaded media.
// An empty Bucket selects in-memory storage.
type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PublicURL    string
}

// Load reads configuration values from .env (if present) and the environment.
func Load() (Config, error) {
	v := newViper()
	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("SESSION_TTL", defaultSessionTTL.String())
	v.SetDefault("SESSION_COOKIE", defaultSessionCookie)
	v.SetDefault("OTP_TTL", defaultOTPTTL.String())
	v.SetDefault("OTP_BCRYPT_COST", defaultOTPBcryptCost)
	v.SetDefault("LOGIN_RATE_PER_MIN", defaultLoginRatePerMin)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_PATH_STYLE", true)

	cfg := Config{
		AppName:         v.GetString("APP_NAME"),
		Env:             strings.ToLower(v.GetString("APP_ENV")),
		Port:            v.GetString("PORT"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisURL:        v.GetString("REDIS_URL"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		SessionSecret:   v.GetString("SESSION_SECRET"),
		SessionCookie:   v.GetString("SESSION_COOKIE"),
		CookieSecure:    v.GetBool("SESSION_COOKIE_SECURE"),
		OTPBcryptCost:   v.GetInt("OTP_BCRYPT_COST"),
		OTPReturnToDev:  v.GetBool("OTP_RETURN_TO_CLIENT"),
		LoginRatePerMin: v.GetInt("LOGIN_RATE_PER_MIN"),
		AdminMobile:     v.GetString("ADMIN_MOBILE"),
		SMS: SMSConfig{
			APIKey:  v.GetString("SMS_API_KEY"),
			BaseURL: v.GetString("SMS_BASE_URL"),
			Sender:  v.GetString("SMS_SENDER"),
		},
		Storage: StorageConfig{
			Endpoint:     v.GetString("S3_ENDPOINT"),
			Region:       v.GetString("S3_REGION"),
			Bucket:       v.GetString("S3_BUCKET"),
			AccessKey:    v.GetString("S3_ACCESS_KEY"),
			SecretKey:    v.GetString("S3_SECRET_KEY"),
			UsePathStyle: v.GetBool("S3_USE_PATH_STYLE"),
			PublicURL:    v.GetString("S3_PUBLIC_URL"),
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFrom(v, shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFrom(v, idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = time.ParseDuration(v.GetString("SESSION_TTL")); err != nil {
		return Config{}, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.OTPTTL, err = time.ParseDuration(v.GetString("OTP_TTL")); err != nil {
		return Config{}, fmt.Errorf("invalid OTP_TTL: %w", err)
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.Env)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.Env)
		}
		if cfg.SessionSecret == "" {
			return Config{}, fmt.Errorf("SESSION_SECRET must be set when APP_ENV=%s", cfg.Env)
		}
		if cfg.OTPReturnToDev {
			return Config{}, fmt.Errorf("OTP_RETURN_TO_CLIENT must not be true when APP_ENV=%s", cfg.Env)
		}
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "fieldops-development-secret"
	}
	if cfg.AdminMobile == "" && cfg.IsDev() && !v.IsSet("ADMIN_MOBILE") {
		cfg.AdminMobile = defaultAdminMobile
	}
	if cfg.OTPBcryptCost < 4 || cfg.OTPBcryptCost > 31 {
		return Config{}, fmt.Errorf("OTP_BCRYPT_COST must be between 4 and 31")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the backend runs in a development environment where
// in-memory storage and the OTP inbox are allowed.
func (c Config) IsDev() bool {
	switch c.Env {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine
	v.AutomaticEnv()
	return v
}

func durationFrom(v *viper.Viper, secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if s := v.GetString(secondsKey); s != "" {
		seconds, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if s := v.GetString(durationKey); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}
