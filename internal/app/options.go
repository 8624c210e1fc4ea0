package service

import (
	"time"

	"github.com/okian/cinerank/internal/adapters/metadata"
	"github.com/okian/cinerank/internal/adapters/remote"
	"github.com/okian/cinerank/internal/adapters/repository"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache sets the local ranking cache. The service does not close it.
func WithCache(c repository.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithRemote sets the remote ranking store.
func WithRemote(r remote.Store) Option {
	return func(s *Service) {
		if r != nil {
			s.remote = r
		}
	}
}

// WithBackfiller enables lazy metadata backfill.
func WithBackfiller(b *metadata.Backfiller) Option {
	return func(s *Service) {
		s.backfiller = b
	}
}

// WithClock overrides time.Now, used for session expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithQueueSize sets the maximum number of pending remote writes.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSyncWorkers sets the number of remote write workers.
func WithSyncWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.syncWorkers = count
		}
	}
}

// WithUndoCapacity sets how many reorder snapshots are kept.
func WithUndoCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.undoCapacity = n
		}
	}
}

// WithFlushTimeout bounds the synchronous remote write made when an account
// signs out.
func WithFlushTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.flushTimeout = d
		}
	}
}

// WithSessionTTL sets how long an idle comparison session survives.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithInitialIdentity sets the identity loaded by Start.
func WithInitialIdentity(id model.Identity) Option {
	return func(s *Service) {
		s.initial = id
	}
}
