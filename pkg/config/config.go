package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Audit backend: "pagespeed" calls the external API, "chromedp" runs a local headless browser.
	AuditBackend      string        `mapstructure:"AUDIT_BACKEND"`
	PageSpeedEndpoint string        `mapstructure:"PAGESPEED_ENDPOINT"`
	PageSpeedAPIKey   string        `mapstructure:"PAGESPEED_API_KEY"`
	AuditTimeout      time.Duration `mapstructure:"AUDIT_TIMEOUT"`
	PageLoadTimeout   time.Duration `mapstructure:"PAGE_LOAD_TIMEOUT"`
	MaxBrowsers       int           `mapstructure:"MAX_BROWSERS"`

	WorkerConcurrency int           `mapstructure:"WORKER_CONCURRENCY"`
	RateLimitMax      int           `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	JobAttempts       int           `mapstructure:"JOB_ATTEMPTS"`

	ReferenceCron     string `mapstructure:"REFERENCE_CRON"`
	ClientChunkSize   int    `mapstructure:"CLIENT_CHUNK_SIZE"`
	DispatchCron      string `mapstructure:"DISPATCH_CRON"`
	RecurringSyncCron string `mapstructure:"RECURRING_SYNC_CRON"`
}

var defaults = map[string]any{
	"SERVER_PORT":         "8080",
	"LOG_LEVEL":           "info",
	"POSTGRES_HOST":       "localhost",
	"POSTGRES_PORT":       "5432",
	"POSTGRES_USER":       "user",
	"POSTGRES_PASSWORD":   "password",
	"POSTGRES_DB":         "perfwatch",
	"REDIS_ADDR":          "localhost:6379",
	"REDIS_PASSWORD":      "",
	"REDIS_DB":            0,
	"AUDIT_BACKEND":       "pagespeed",
	"PAGESPEED_ENDPOINT":  "https://www.googleapis.com/pagespeedonline/v5/runPagespeed",
	"PAGESPEED_API_KEY":   "",
	"AUDIT_TIMEOUT":       "90s",
	"PAGE_LOAD_TIMEOUT":   "60s",
	"MAX_BROWSERS":        2,
	"WORKER_CONCURRENCY":  2,
	"RATE_LIMIT_MAX":      30,
	"RATE_LIMIT_WINDOW":   "60s",
	"JOB_ATTEMPTS":        1,
	"REFERENCE_CRON":      "*/30 * * * *",
	"CLIENT_CHUNK_SIZE":   150,
	"DISPATCH_CRON":       "0 6,12,18 * * *",
	"RECURRING_SYNC_CRON": "5 * * * *",
}

// Load reads configuration from an optional env file and the environment.
// An empty path falls back to ".env" in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// A missing file is fine, the environment alone can configure the service.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the workers cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.WorkerConcurrency <= 0 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be positive"))
	}
	if c.RateLimitMax <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.ClientChunkSize <= 0 {
		errs = append(errs, errors.New("CLIENT_CHUNK_SIZE must be positive"))
	}
	if c.JobAttempts <= 0 {
		errs = append(errs, errors.New("JOB_ATTEMPTS must be positive"))
	}
	switch c.AuditBackend {
	case "pagespeed":
		if strings.TrimSpace(c.PageSpeedAPIKey) == "" {
			errs = append(errs, errors.New("PAGESPEED_API_KEY is required when AUDIT_BACKEND is pagespeed"))
		}
	case "chromedp":
	default:
		errs = append(errs, fmt.Errorf("unknown AUDIT_BACKEND %q", c.AuditBackend))
	}
	return errors.Join(errs...)
}

// PostgresURL builds the connection string used by pgxpool and the migrator.
func (c *Config) PostgresURL(scheme string) string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s?sslmode=disable",
		scheme, c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}
