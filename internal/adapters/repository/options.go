package repository

import (
	"time"

	"github.com/okian/cinerank/pkg/logger"
)

type options struct {
	busyTimeout time.Duration
	clock       func() time.Time
	log         logger.Logger
}

func defaultOptions() options {
	return options{
		busyTimeout: 5 * time.Second,
		clock:       time.Now,
	}
}

// Option applies a configuration option to a cache.
type Option func(*options)

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithClock overrides the time source used for updated_at columns.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
