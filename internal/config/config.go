package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Faultline server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Alerting AlertingConfig
	SMTP     SMTPConfig
}

type ServerConfig struct {
	Port    int
	Env     string
	BaseURL string // used to build incident links in notifications
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AlertingConfig struct {
	EvalInterval     time.Duration
	Cooldown         time.Duration
	DispatchTimeout  time.Duration
	CriticalLookback time.Duration
	ReopenResolved   bool
	RateLimitPerMin  int
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    envInt("FAULTLINE_PORT", 8080),
			Env:     envString("FAULTLINE_ENV", "development"),
			BaseURL: envString("FAULTLINE_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Alerting: AlertingConfig{
			EvalInterval:    envDuration("ALERTING_EVAL_INTERVAL", time.Minute),
			Cooldown:        envDuration("ALERTING_COOLDOWN", 60*time.Minute),
			DispatchTimeout: envDuration("ALERTING_DISPATCH_TIMEOUT", 5*time.Second),
			ReopenResolved:  envBool("ALERTING_REOPEN_RESOLVED", true),
			RateLimitPerMin: envInt("ALERTING_RATE_LIMIT_PER_MIN", 120),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			To:       envList("SMTP_TO"),
		},
	}

	// Twice the interval by default so a critical event landing in a skipped
	// tick's gap is still seen by the next run.
	cfg.Alerting.CriticalLookback = envDuration("ALERTING_CRITICAL_LOOKBACK", 2*cfg.Alerting.EvalInterval)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("FAULTLINE_BASE_URL must start with http:// or https://, got %q", c.Server.BaseURL)
	}

	if c.Alerting.EvalInterval <= 0 {
		return fmt.Errorf("ALERTING_EVAL_INTERVAL must be positive")
	}
	if c.Alerting.Cooldown <= 0 {
		return fmt.Errorf("ALERTING_COOLDOWN must be positive")
	}
	if c.Alerting.DispatchTimeout <= 0 {
		return fmt.Errorf("ALERTING_DISPATCH_TIMEOUT must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
