package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the DispatchIQ server.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Platform  PlatformConfig
	Engine    EngineConfig
	Jobs      JobsConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Port int    `envconfig:"DISPATCHIQ_PORT" default:"8080"`
	Env  string `envconfig:"DISPATCHIQ_ENV" default:"development"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL"`
	MaxOpenConns    int           `envconfig:"DATABASE_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig is optional. Without a URL the plan cache and rate limit
// counters live in process and are not shared between replicas.
type RedisConfig struct {
	URL string `envconfig:"REDIS_URL"`
}

type PlatformConfig struct {
	BaseURL string        `envconfig:"PLATFORM_BASE_URL"`
	Timeout time.Duration `envconfig:"PLATFORM_TIMEOUT" default:"5s"`
}

type EngineConfig struct {
	Deadline     time.Duration `envconfig:"ENGINE_DEADLINE" default:"1500ms"`
	PlanCacheTTL time.Duration `envconfig:"PLAN_CACHE_TTL" default:"5m"`
	AuditQueue   int           `envconfig:"AUDIT_QUEUE_SIZE" default:"1024"`
}

type JobsConfig struct {
	AuditRetentionDays      int    `envconfig:"AUDIT_RETENTION_DAYS" default:"90"`
	RetentionSchedule       string `envconfig:"RETENTION_SCHEDULE" default:"0 0 3 * * *"`
	SuggestionSweepSchedule string `envconfig:"SUGGESTION_SWEEP_SCHEDULE" default:"0 */5 * * * *"`
}

type RateLimitConfig struct {
	// PerMinute is the request budget per tenant; 0 disables limiting.
	PerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

type TracingConfig struct {
	Enabled     bool    `envconfig:"OTEL_TRACING_ENABLED" default:"false"`
	SampleRatio float64 `envconfig:"OTEL_SAMPLE_RATIO"    default:"1"`
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// ScheduleParser parses the six-field (with seconds) cron specs used by jobs.
var ScheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("DISPATCHIQ_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("LOG_FORMAT must be one of json, console; got %q", c.Log.Format)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.Platform.BaseURL == "" {
		return fmt.Errorf("PLATFORM_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Platform.BaseURL, "http://") && !strings.HasPrefix(c.Platform.BaseURL, "https://") {
		return fmt.Errorf("PLATFORM_BASE_URL must start with http:// or https://, got %q", c.Platform.BaseURL)
	}
	if c.Platform.Timeout <= 0 {
		return fmt.Errorf("PLATFORM_TIMEOUT must be positive, got %s", c.Platform.Timeout)
	}

	if c.Engine.Deadline <= 0 {
		return fmt.Errorf("ENGINE_DEADLINE must be positive, got %s", c.Engine.Deadline)
	}
	if c.Engine.PlanCacheTTL <= 0 {
		return fmt.Errorf("PLAN_CACHE_TTL must be positive, got %s", c.Engine.PlanCacheTTL)
	}
	if c.Engine.AuditQueue <= 0 {
		return fmt.Errorf("AUDIT_QUEUE_SIZE must be positive, got %d", c.Engine.AuditQueue)
	}

	if c.Jobs.AuditRetentionDays <= 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be positive, got %d", c.Jobs.AuditRetentionDays)
	}
	if _, err := ScheduleParser.Parse(c.Jobs.RetentionSchedule); err != nil {
		return fmt.Errorf("RETENTION_SCHEDULE is invalid: %w", err)
	}
	if _, err := ScheduleParser.Parse(c.Jobs.SuggestionSweepSchedule); err != nil {
		return fmt.Errorf("SUGGESTION_SWEEP_SCHEDULE is invalid: %w", err)
	}

	if c.RateLimit.PerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimit.PerMinute)
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1, got %g", c.Tracing.SampleRatio)
	}

	return nil
}

// IsProduction reports whether the server runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}
