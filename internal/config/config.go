package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// storage
	StorageBackend string `toml:"storage_backend"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`
	KeyPrefix      string `toml:"key_prefix"`
	// bytes reserved for the in-process document cache, 0 disables it
	LocalCacheSize int  `toml:"local_cache_size"`
	SeedDemoData   bool `toml:"seed_demo_data"`

	// coaching model
	GeminiBaseURL           string `toml:"gemini_base_url"`
	GeminiModel             string `toml:"gemini_model"`
	CoachRateLimitPerMinute int    `toml:"coach_rate_limit_per_minute"`

	AllowedOrigins []string `toml:"allowed_origins"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path and returns the section for env with
// defaults filled in.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file [%s]: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing in [%s]", env, path)
	}

	cfg.applyDefaults(env)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config for env [%s]: %w", env, err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults(env string) {
	if c.Environment == "" {
		c.Environment = strings.ToLower(env)
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.StorageBackend == "" {
		c.StorageBackend = StorageMemory
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "apex"
	}
	if c.GeminiBaseURL == "" {
		c.GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.5-flash"
	}
	if c.CoachRateLimitPerMinute == 0 {
		c.CoachRateLimitPerMinute = 20
	}
}

func (c *Config) Validate() error {
	if c.Port <= 0 {
		return errors.New("port not set")
	}
	switch c.StorageBackend {
	case StorageRedis:
		if c.RedisHost == "" {
			return errors.New("redis storage backend selected, but redis host not set")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}
	if c.LocalCacheSize < 0 {
		return fmt.Errorf("invalid local cache size: %d", c.LocalCacheSize)
	}
	return nil
}
