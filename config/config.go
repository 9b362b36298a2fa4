package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DBUrl       string
	Environment string
	Port        string
	LogLevel    string

	JWTSecret          string
	CORSAllowedOrigins []string

	LockBackend string
	LockWait    time.Duration
	RedisAddr   string

	BusyRetries       int
	ContextTimeout    time.Duration
	ReconcileInterval time.Duration

	Email EmailConfig
}

// EmailConfig selects and configures the outgoing mailer.
type EmailConfig struct {
	Provider           string
	FromAddress        string
	FromName           string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	InsecureSkipVerify bool
}

// Lock backends.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Load loads configuration from environment variables
// It attempts to load from .env file if not in production
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// In production the .env file is usually absent and the environment is authoritative.
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file loaded", "error", err)
		}
	}

	cfg := &Config{
		Environment: env,
		DBUrl:       os.Getenv("DATABASE_URL"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LockBackend: strings.ToLower(getEnv("LOCK_BACKEND", LockBackendLocal)),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		Email: EmailConfig{
			Provider:           getEnv("EMAIL_PROVIDER", "noop"),
			FromAddress:        getEnv("EMAIL_FROM", "no-reply@eventflow.local"),
			FromName:           getEnv("EMAIL_FROM_NAME", "Eventflow"),
			AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	var err error
	if cfg.LockWait, err = getDuration("LOCK_WAIT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.ContextTimeout, err = getDuration("CONTEXT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = getDuration("RECONCILE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BusyRetries, err = getInt("BUSY_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.Email.InsecureSkipVerify, err = getBool("SES_INSECURE_SKIP_VERIFY", false); err != nil {
		return nil, err
	}

	switch cfg.LockBackend {
	case LockBackendLocal, LockBackendRedis:
	default:
		return nil, fmt.Errorf("LOCK_BACKEND: unknown backend %q", cfg.LockBackend)
	}
	if cfg.JWTSecret == "" && env == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, s)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, s)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, s)
	}
	return b, nil
}
