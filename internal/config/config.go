// Package config loads astronews configuration from a TOML file, environment
// variables prefixed with ASTRONEWS_ and built-in defaults, in that order of
// precedence (environment wins).
//
//	[feed]
//	page_size = 9
//	refresh_delay = "2s"
//
//	ASTRONEWS_FEED_PAGE_SIZE=12 astronews
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/astronews/pkg/client"
	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/Sternrassler/astronews/pkg/logging"
	"github.com/Sternrassler/astronews/pkg/pagination"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const (
	envPrefix = "ASTRONEWS"
	appDir    = "astronews"
)

type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Trigger TriggerConfig `mapstructure:"trigger"`
	Export  ExportConfig  `mapstructure:"export"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type SourceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type FeedConfig struct {
	PageSize     int           `mapstructure:"page_size"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	RefreshDelay time.Duration `mapstructure:"refresh_delay"`
}

// TriggerConfig thresholds are in rows of the rendered list.
type TriggerConfig struct {
	BottomThreshold int `mapstructure:"bottom_threshold"`
	TopThreshold    int `mapstructure:"top_threshold"`
}

type ExportConfig struct {
	PageSize       int           `mapstructure:"page_size"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func defaultConfig() *Config {
	logFile := ""
	if dir, err := os.UserCacheDir(); err == nil {
		logFile = filepath.Join(dir, appDir, "astronews.log")
	}

	return &Config{
		Source: SourceConfig{
			BaseURL:   client.DefaultBaseURL,
			UserAgent: client.DefaultUserAgent,
			Timeout:   30 * time.Second,
		},
		Feed: FeedConfig{
			PageSize:     feed.DefaultPageSize,
			FetchTimeout: 15 * time.Second,
		},
		Trigger: TriggerConfig{
			BottomThreshold: 3,
			TopThreshold:    5,
		},
		Export: ExportConfig{
			PageSize:       50,
			MaxConcurrency: 4,
			Timeout:        15 * time.Second,
		},
		Cache: CacheConfig{
			RedisAddr: "localhost:6379",
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
			File:  logFile,
		},
	}
}

// DefaultPath returns ~/.config/astronews/config.toml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appDir, "config.toml")
}

// Load reads configuration. An empty configPath searches
// ~/.config/astronews and the working directory for config.toml; a missing
// file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(expandPath(configPath))
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every leaf key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range flatten(cfg) {
		v.SetDefault(key, value)
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Source.BaseURL != "", "source.base_url is required")
	check(c.Source.UserAgent != "", "source.user_agent is required")
	check(c.Source.Timeout > 0, "source.timeout must be > 0 (got %s)", c.Source.Timeout)
	check(c.Feed.PageSize > 0, "feed.page_size must be > 0 (got %d)", c.Feed.PageSize)
	check(c.Feed.FetchTimeout >= 0, "feed.fetch_timeout must be >= 0 (got %s)", c.Feed.FetchTimeout)
	check(c.Feed.RefreshDelay >= 0, "feed.refresh_delay must be >= 0 (got %s)", c.Feed.RefreshDelay)
	check(c.Trigger.BottomThreshold >= 0, "trigger.bottom_threshold must be >= 0 (got %d)", c.Trigger.BottomThreshold)
	check(c.Trigger.TopThreshold >= 0, "trigger.top_threshold must be >= 0 (got %d)", c.Trigger.TopThreshold)
	check(c.Export.PageSize > 0, "export.page_size must be > 0 (got %d)", c.Export.PageSize)
	check(c.Export.MaxConcurrency > 0, "export.max_concurrency must be > 0 (got %d)", c.Export.MaxConcurrency)
	check(c.Export.Timeout > 0, "export.timeout must be > 0 (got %s)", c.Export.Timeout)
	check(!c.Cache.Enabled || c.Cache.RedisAddr != "", "cache.redis_addr is required when the cache is enabled")
	check(logging.ValidLevel(c.Log.Level), "log.level %q is not a known level", c.Log.Level)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// FeedOptions returns the controller configuration.
func (c *Config) FeedOptions() feed.Config {
	return feed.Config{
		PageSize:     c.Feed.PageSize,
		FetchTimeout: c.Feed.FetchTimeout,
		RefreshDelay: c.Feed.RefreshDelay,
	}
}

// ClientOptions returns the news client configuration. rdb may be nil.
func (c *Config) ClientOptions(rdb *redis.Client) client.Config {
	return client.Config{
		BaseURL:   c.Source.BaseURL,
		UserAgent: c.Source.UserAgent,
		Timeout:   c.Source.Timeout,
		Redis:     rdb,
	}
}

// ExportOptions returns the batch fetcher configuration.
func (c *Config) ExportOptions(maxArticles int) pagination.Config {
	return pagination.Config{
		PageSize:       c.Export.PageSize,
		MaxConcurrency: c.Export.MaxConcurrency,
		Timeout:        c.Export.Timeout,
		MaxArticles:    maxArticles,
	}
}

// RedisOptions returns nil when the cache is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if !c.Cache.Enabled {
		return nil
	}
	return &redis.Options{
		Addr:     c.Cache.RedisAddr,
		Password: c.Cache.RedisPassword,
		DB:       c.Cache.RedisDB,
	}
}

// Save writes cfg as TOML, creating parent directories.
func Save(cfg *Config, path string) error {
	path = expandPath(path)

	data, err := toml.Marshal(sections(cfg))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// GenerateDefault writes the default configuration to path.
func GenerateDefault(path string) error {
	return Save(defaultConfig(), path)
}

// sections renders cfg as nested TOML tables. Durations are written as
// strings so the file stays readable and round-trips through viper.
func sections(cfg *Config) map[string]map[string]any {
	return map[string]map[string]any{
		"source": {
			"base_url":   cfg.Source.BaseURL,
			"user_agent": cfg.Source.UserAgent,
			"timeout":    cfg.Source.Timeout.String(),
		},
		"feed": {
			"page_size":     cfg.Feed.PageSize,
			"fetch_timeout": cfg.Feed.FetchTimeout.String(),
			"refresh_delay": cfg.Feed.RefreshDelay.String(),
		},
		"trigger": {
			"bottom_threshold": cfg.Trigger.BottomThreshold,
			"top_threshold":    cfg.Trigger.TopThreshold,
		},
		"export": {
			"page_size":       cfg.Export.PageSize,
			"max_concurrency": cfg.Export.MaxConcurrency,
			"timeout":         cfg.Export.Timeout.String(),
		},
		"cache": {
			"enabled":        cfg.Cache.Enabled,
			"redis_addr":     cfg.Cache.RedisAddr,
			"redis_password": cfg.Cache.RedisPassword,
			"redis_db":       cfg.Cache.RedisDB,
		},
		"log": {
			"level":  cfg.Log.Level,
			"pretty": cfg.Log.Pretty,
			"file":   cfg.Log.File,
		},
		"metrics": {
			"addr": cfg.Metrics.Addr,
		},
	}
}

// flatten returns the dotted leaf keys of cfg.
func flatten(cfg *Config) map[string]any {
	out := map[string]any{}
	for section, values := range sections(cfg) {
		for key, value := range values {
			out[section+"."+key] = value
		}
	}
	return out
}

// expandPath expands a leading ~/ to the home directory.
func expandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, rest)
	}
	return path
}
