// Package config defines daemon configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Cache drivers.
const (
	CacheSQLite = "sqlite"
	CacheMemory = "memory"
)

// Remote drivers.
const (
	RemoteHTTP  = "http"
	RemoteRedis = "redis"
	RemoteNone  = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CacheDriver selects the local cache: sqlite or memory.
	CacheDriver string `koanf:"cache_driver"`
	// CachePath is the SQLite database file.
	CachePath string `koanf:"cache_path"`

	// RemoteDriver selects the remote ranking store: http, redis or none.
	RemoteDriver    string `koanf:"remote_driver"`
	RemoteURL       string `koanf:"remote_url"`
	RemoteTimeoutMS int    `koanf:"remote_timeout_ms"`
	RedisAddr       string `koanf:"redis_addr"`
	RedisDB         int    `koanf:"redis_db"`
	RedisKeyPrefix  string `koanf:"redis_key_prefix"`

	// SyncQueueSize bounds pending asynchronous remote writes.
	SyncQueueSize int `koanf:"sync_queue_size"`
	// SyncWorkers is the number of remote write workers. One keeps writes
	// in mutation order.
	SyncWorkers int `koanf:"sync_workers"`

	// UndoCapacity is the number of reorder snapshots kept.
	UndoCapacity int `koanf:"undo_capacity"`
	// FlushTimeoutMS bounds the synchronous remote write made when an
	// account signs out.
	FlushTimeoutMS int `koanf:"flush_timeout_ms"`
	// SessionTTLSeconds expires idle comparison sessions.
	SessionTTLSeconds int `koanf:"session_ttl_s"`

	// MetadataURL enables detail backfill when set.
	MetadataURL          string  `koanf:"metadata_url"`
	MetadataAPIKey       string  `koanf:"metadata_api_key"`
	MetadataBatchSize    int     `koanf:"metadata_batch_size"`
	MetadataBatchDelayMS int     `koanf:"metadata_batch_delay_ms"`
	MetadataRPS          float64 `koanf:"metadata_rps"`

	// Metrics naming and gauge sampling. Labels are added to every metric.
	MetricsNamespace string            `koanf:"metrics_namespace"`
	MetricsSubsystem string            `koanf:"metrics_subsystem"`
	MetricsEnabled   bool              `koanf:"metrics_enabled"`
	MetricsRefreshMS int               `koanf:"metrics_refresh_ms"`
	MetricsLabels    map[string]string `koanf:"metrics_labels"`

	// AccountID and Credential, when set, start the daemon signed in.
	AccountID  string `koanf:"account_id"`
	Credential string `koanf:"credential"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		CacheDriver:          CacheSQLite,
		CachePath:            "cinerank.db",
		RemoteDriver:         RemoteNone,
		RemoteTimeoutMS:      5000,
		RedisAddr:            "localhost:6379",
		RedisKeyPrefix:       "cinerank:ranking:",
		SyncQueueSize:        1024,
		SyncWorkers:          1,
		UndoCapacity:         10,
		FlushTimeoutMS:       3000,
		SessionTTLSeconds:    1800,
		MetadataBatchSize:    20,
		MetadataBatchDelayMS: 250,
		MetadataRPS:          4,
		MetricsNamespace:     "cinerank",
		MetricsSubsystem:     "ranking",
		MetricsEnabled:       true,
		MetricsRefreshMS:     10000,
	}
}

// Validate checks field ranges and driver names.
func (c *Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr must not be empty")
	}
	switch c.CacheDriver {
	case CacheSQLite:
		if c.CachePath == "" {
			problems = append(problems, "cache_path must be set for the sqlite cache")
		}
	case CacheMemory:
	default:
		problems = append(problems, fmt.Sprintf("cache_driver %q is not one of sqlite, memory", c.CacheDriver))
	}
	switch c.RemoteDriver {
	case RemoteHTTP:
		if c.RemoteURL == "" {
			problems = append(problems, "remote_url must be set for the http remote")
		}
	case RemoteRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "redis_addr must be set for the redis remote")
		}
	case RemoteNone:
	default:
		problems = append(problems, fmt.Sprintf("remote_driver %q is not one of http, redis, none", c.RemoteDriver))
	}
	positive := map[string]int{
		"remote_timeout_ms":   c.RemoteTimeoutMS,
		"sync_queue_size":     c.SyncQueueSize,
		"sync_workers":        c.SyncWorkers,
		"undo_capacity":       c.UndoCapacity,
		"flush_timeout_ms":    c.FlushTimeoutMS,
		"session_ttl_s":       c.SessionTTLSeconds,
		"metadata_batch_size": c.MetadataBatchSize,
		"metrics_refresh_ms":  c.MetricsRefreshMS,
	}
	for _, name := range []string{
		"remote_timeout_ms", "sync_queue_size", "sync_workers", "undo_capacity",
		"flush_timeout_ms", "session_ttl_s", "metadata_batch_size", "metrics_refresh_ms",
	} {
		if positive[name] <= 0 {
			problems = append(problems, name+" must be positive")
		}
	}
	if c.MetadataBatchDelayMS < 0 {
		problems = append(problems, "metadata_batch_delay_ms must not be negative")
	}
	if c.Credential != "" && c.AccountID == "" {
		problems = append(problems, "credential requires account_id")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// RemoteTimeout returns RemoteTimeoutMS as a duration.
func (c *Config) RemoteTimeout() time.Duration { return ms(c.RemoteTimeoutMS) }

// FlushTimeout returns FlushTimeoutMS as a duration.
func (c *Config) FlushTimeout() time.Duration { return ms(c.FlushTimeoutMS) }

// SessionTTL returns SessionTTLSeconds as a duration.
func (c *Config) SessionTTL() time.Duration { return time.Duration(c.SessionTTLSeconds) * time.Second }

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration { return ms(c.MetricsRefreshMS) }

// MetadataBatchDelay returns MetadataBatchDelayMS as a duration.
func (c *Config) MetadataBatchDelay() time.Duration { return ms(c.MetadataBatchDelayMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
