// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Target     TargetConfig     `mapstructure:"target"`
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Session    SessionConfig    `mapstructure:"session"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	DB         DBConfig         `mapstructure:"db"`
	Output     OutputConfig     `mapstructure:"output"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// TargetConfig describes the upstream web application and credentials.
type TargetConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	LoginPath    string `mapstructure:"login_path"`
	AppPath      string `mapstructure:"app_path"`
	CallbackPath string `mapstructure:"callback_path"`
	LayoutPath   string `mapstructure:"layout_path"`
	DepsPath     string `mapstructure:"deps_path"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	UserAgent    string `mapstructure:"user_agent"`
}

// CrawlerConfig governs the orchestrator loop.
type CrawlerConfig struct {
	RateLimitSeconds float64 `mapstructure:"rate_limit_seconds"`
	SuccessThreshold float64 `mapstructure:"success_threshold"`
	DurationValue    string  `mapstructure:"duration_value"`
}

// HTTPConfig configures request timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// SessionConfig controls proactive session refresh.
type SessionConfig struct {
	MaxAgeMinutes int `mapstructure:"max_age_minutes"`
}

// CheckpointConfig sets where resume state lives and how long it stays valid.
type CheckpointConfig struct {
	Dir            string `mapstructure:"dir"`
	File           string `mapstructure:"file"`
	FreshnessHours int    `mapstructure:"freshness_hours"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// OutputConfig sets the local archive directory for completed runs.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// CacheConfig holds the downstream cache invalidation hook.
type CacheConfig struct {
	HookURL string `mapstructure:"hook_url"`
}

// TelemetryConfig controls the observability listener.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BROKERCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target.base_url", "https://neobdm.tech")
	v.SetDefault("target.login_path", "/accounts/login/")
	v.SetDefault("target.app_path", "/broker_stalker/")
	v.SetDefault("target.callback_path", "/django_plotly_dash/app/bs_app/_dash-update-component")
	v.SetDefault("target.layout_path", "/django_plotly_dash/app/bs_app/_dash-layout")
	v.SetDefault("target.deps_path", "/django_plotly_dash/app/bs_app/_dash-dependencies")
	v.SetDefault("target.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	// Declared empty so AutomaticEnv can see them.
	v.SetDefault("target.username", "")
	v.SetDefault("target.password", "")
	v.SetDefault("crawler.rate_limit_seconds", 1.0)
	v.SetDefault("crawler.success_threshold", 0.8)
	v.SetDefault("crawler.duration_value", "Today")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 10000)
	v.SetDefault("session.max_age_minutes", 25)
	v.SetDefault("checkpoint.dir", "output")
	v.SetDefault("checkpoint.file", ".crawler_checkpoint.json")
	v.SetDefault("checkpoint.freshness_hours", 2)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "broker_trades")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("cache.hook_url", "")
	v.SetDefault("output.dir", "output")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.addr", ":9190")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Target.BaseURL == "" {
		return fmt.Errorf("target.base_url must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if c.Crawler.RateLimitSeconds < 0 {
		return fmt.Errorf("crawler.rate_limit_seconds must be >= 0")
	}
	if c.Crawler.SuccessThreshold <= 0 || c.Crawler.SuccessThreshold > 1 {
		return fmt.Errorf("crawler.success_threshold must be in (0, 1]")
	}
	if c.Session.MaxAgeMinutes <= 0 {
		return fmt.Errorf("session.max_age_minutes must be > 0")
	}
	if c.Checkpoint.FreshnessHours <= 0 {
		return fmt.Errorf("checkpoint.freshness_hours must be > 0")
	}
	if c.Telemetry.Enabled && c.Telemetry.Addr == "" {
		return fmt.Errorf("telemetry.addr must be set when telemetry is enabled")
	}
	return nil
}

// RequestTimeout converts the HTTP timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffBase returns the initial retry backoff delay.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry backoff cap.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// SessionMaxAge returns the proactive session refresh threshold.
func (c Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Session.MaxAgeMinutes) * time.Minute
}

// RateLimitInterval returns the pause between consecutive brokers.
func (c Config) RateLimitInterval() time.Duration {
	return time.Duration(c.Crawler.RateLimitSeconds * float64(time.Second))
}

// CheckpointFreshness returns how old a checkpoint may be before it is
// treated as absent.
func (c Config) CheckpointFreshness() time.Duration {
	return time.Duration(c.Checkpoint.FreshnessHours) * time.Hour
}
