// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StoreConfig selects and configures the job record store.
type StoreConfig struct {
	Provider     string `mapstructure:"provider"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MinOpenConns int    `mapstructure:"min_open_conns"`
}

// SchedulerConfig governs the worker pool's poll loop.
type SchedulerConfig struct {
	PollIntervalSeconds  int `mapstructure:"poll_interval_seconds"`
	ErrorBackoffSeconds  int `mapstructure:"error_backoff_seconds"`
	BatchSize            int `mapstructure:"batch_size"`
	MaxConcurrentWorkers int `mapstructure:"max_concurrent_workers"`
}

// CrawlConfig bounds a single job's traversal.
type CrawlConfig struct {
	MaxPages              int `mapstructure:"max_pages"`
	Concurrency           int `mapstructure:"concurrency"`
	Tier1LinkCap          int `mapstructure:"tier1_link_cap"`
	Tier2LinkCap          int `mapstructure:"tier2_link_cap"`
	SessionTimeoutSeconds int `mapstructure:"session_timeout_seconds"`
}

// FetchConfig configures the raw page fetcher.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// PubSubConfig holds metadata for terminal-event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTACTCRAWLER")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.provider", "memory")
	v.SetDefault("store.max_open_conns", 8)
	v.SetDefault("store.min_open_conns", 1)
	v.SetDefault("scheduler.poll_interval_seconds", 2)
	v.SetDefault("scheduler.error_backoff_seconds", 5)
	v.SetDefault("scheduler.batch_size", 10)
	v.SetDefault("scheduler.max_concurrent_workers", 5)
	v.SetDefault("crawl.max_pages", 20)
	v.SetDefault("crawl.concurrency", 3)
	v.SetDefault("crawl.tier1_link_cap", 15)
	v.SetDefault("crawl.tier2_link_cap", 5)
	v.SetDefault("crawl.session_timeout_seconds", 120)
	v.SetDefault("fetch.user_agent", "contact-crawler-bot/0.1")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Store.Provider {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown store provider %q", c.Store.Provider)
	}
	if c.Store.Provider == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn must be set when store.provider is postgres")
	}
	if c.Scheduler.PollIntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.poll_interval_seconds must be > 0")
	}
	if c.Scheduler.MaxConcurrentWorkers <= 0 {
		return fmt.Errorf("scheduler.max_concurrent_workers must be > 0")
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	return nil
}

// PollInterval returns the scheduler's poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Scheduler.PollIntervalSeconds) * time.Second
}

// ErrorBackoff returns the scheduler's cycle-error backoff as a duration.
func (c Config) ErrorBackoff() time.Duration {
	return time.Duration(c.Scheduler.ErrorBackoffSeconds) * time.Second
}

// FetchTimeout returns the raw fetcher's timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// SessionTimeout returns the per-session wall-clock cap as a duration.
func (c Config) SessionTimeout() time.Duration {
	return time.Duration(c.Crawl.SessionTimeoutSeconds) * time.Second
}

// NavTimeout returns the headless navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}
