package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/cinerank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.CacheDriver, convey.ShouldEqual, config.CacheSQLite)
			convey.So(cfg.RemoteDriver, convey.ShouldEqual, config.RemoteNone)
			convey.So(cfg.SyncWorkers, convey.ShouldEqual, 1)
			convey.So(cfg.UndoCapacity, convey.ShouldEqual, 10)
			convey.So(cfg.FlushTimeout(), convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.RemoteTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.SessionTTL(), convey.ShouldEqual, 30*time.Minute)
			convey.So(cfg.MetadataBatchDelay(), convey.ShouldEqual, 250*time.Millisecond)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "cinerank")
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty addr", func(c *config.Config) { c.Addr = "" }},
		{"unknown cache driver", func(c *config.Config) { c.CacheDriver = "bolt" }},
		{"sqlite without path", func(c *config.Config) { c.CachePath = "" }},
		{"unknown remote driver", func(c *config.Config) { c.RemoteDriver = "grpc" }},
		{"http remote without url", func(c *config.Config) { c.RemoteDriver = config.RemoteHTTP }},
		{"redis remote without addr", func(c *config.Config) { c.RemoteDriver = config.RemoteRedis; c.RedisAddr = "" }},
		{"zero workers", func(c *config.Config) { c.SyncWorkers = 0 }},
		{"zero undo capacity", func(c *config.Config) { c.UndoCapacity = 0 }},
		{"negative batch delay", func(c *config.Config) { c.MetadataBatchDelayMS = -1 }},
		{"credential without account", func(c *config.Config) { c.Credential = "tok" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.New()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("memory cache needs no path", func(t *testing.T) {
		cfg := config.New()
		cfg.CacheDriver = config.CacheMemory
		cfg.CachePath = ""
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
