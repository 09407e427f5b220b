package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pixelspace/views-core/internal/pkg/privacy"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort = 2335
	defaultEnv  = "development"

	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "pixelspace"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0
)

// Tracking defaults; each can be tuned from the tracking block.
const (
	defaultRawRetentionDays    = 7
	defaultTrendWindowDays     = 30
	defaultStatsCacheTTLSec    = 300
	defaultDedupWindowSec      = 5
	defaultRollupBatchSize     = 10000
	defaultRecordQueueSize     = 4096
	defaultRecordFlushBatch    = 200
	defaultRecordFlushMillis   = 2000
	defaultComputeTimeoutSec   = 10
	defaultRollupLockTTLMinute = 30
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"` // "development" | "production"
	JWTSecret      string         `yaml:"jwt_secret"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Database       DatabaseConfig `yaml:"database"`
	Redis          RedisConfig    `yaml:"redis"`
	Tracking       TrackingConfig `yaml:"tracking"`
}

type DatabaseConfig struct {
	DSN      string            `yaml:"dsn"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Name     string            `yaml:"name"`
	Charset  string            `yaml:"charset"`
	Loc      string            `yaml:"loc"`
	Params   map[string]string `yaml:"params"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

// TrackingConfig tunes the view tracking subsystem.
type TrackingConfig struct {
	// HashSalt keys the one-way hash applied to viewer IPs and user agents.
	// Required; rows written with different salts cannot be correlated.
	HashSalt string `yaml:"hash_salt"`

	RawRetentionDays int `yaml:"raw_retention_days"`
	TrendWindowDays  int `yaml:"trend_window_days"`

	StatsCacheTTLSeconds  int `yaml:"stats_cache_ttl_seconds"`
	DedupWindowSeconds    int `yaml:"view_dedup_window_seconds"`
	ComputeTimeoutSeconds int `yaml:"compute_timeout_seconds"`

	RollupBatchSize      int `yaml:"rollup_batch_size"`
	RollupLockTTLMinutes int `yaml:"rollup_lock_ttl_minutes"`

	RecordQueueSize       int `yaml:"record_queue_size"`
	RecordFlushBatch      int `yaml:"record_flush_batch"`
	RecordFlushIntervalMS int `yaml:"record_flush_interval_ms"`
}

// Load reads and validates the YAML config file.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseConfig{
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPassword,
			Name:     defaultDBName,
			Charset:  defaultDBCharset,
			Loc:      defaultDBLoc,
		},
		Redis: RedisConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Tracking: TrackingConfig{
			RawRetentionDays:      defaultRawRetentionDays,
			TrendWindowDays:       defaultTrendWindowDays,
			StatsCacheTTLSeconds:  defaultStatsCacheTTLSec,
			DedupWindowSeconds:    defaultDedupWindowSec,
			ComputeTimeoutSeconds: defaultComputeTimeoutSec,
			RollupBatchSize:       defaultRollupBatchSize,
			RollupLockTTLMinutes:  defaultRollupLockTTLMinute,
			RecordQueueSize:       defaultRecordQueueSize,
			RecordFlushBatch:      defaultRecordFlushBatch,
			RecordFlushIntervalMS: defaultRecordFlushMillis,
		},
	}
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if strings.TrimSpace(c.Tracking.HashSalt) == "" {
		return fmt.Errorf("tracking.hash_salt is required")
	}
	if len(c.Tracking.HashSalt) > privacy.MaxSaltLen {
		return fmt.Errorf("tracking.hash_salt exceeds %d bytes", privacy.MaxSaltLen)
	}
	if c.Tracking.RawRetentionDays < 1 {
		return fmt.Errorf("invalid tracking.raw_retention_days %d, expected >= 1", c.Tracking.RawRetentionDays)
	}
	if c.Tracking.TrendWindowDays < c.Tracking.RawRetentionDays {
		return fmt.Errorf("tracking.trend_window_days %d must cover raw_retention_days %d",
			c.Tracking.TrendWindowDays, c.Tracking.RawRetentionDays)
	}
	if c.Tracking.RollupBatchSize < 1 {
		return fmt.Errorf("invalid tracking.rollup_batch_size %d, expected >= 1", c.Tracking.RollupBatchSize)
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

// Duration accessors keep the YAML surface in plain integers.

func (t TrackingConfig) RawRetention() time.Duration {
	return time.Duration(t.RawRetentionDays) * 24 * time.Hour
}

func (t TrackingConfig) StatsCacheTTL() time.Duration {
	return time.Duration(t.StatsCacheTTLSeconds) * time.Second
}

func (t TrackingConfig) DedupWindow() time.Duration {
	return time.Duration(t.DedupWindowSeconds) * time.Second
}

func (t TrackingConfig) ComputeTimeout() time.Duration {
	return time.Duration(t.ComputeTimeoutSeconds) * time.Second
}

func (t TrackingConfig) RollupLockTTL() time.Duration {
	return time.Duration(t.RollupLockTTLMinutes) * time.Minute
}

func (t TrackingConfig) RecordFlushInterval() time.Duration {
	return time.Duration(t.RecordFlushIntervalMS) * time.Millisecond
}
