// Package service is the ranking store: the single owner of the current
// identity's ranking, its local cache bucket and its remote copy.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cinerank/internal/adapters/metadata"
	eventqueue "github.com/okian/cinerank/internal/adapters/mq/queue"
	workerpool "github.com/okian/cinerank/internal/adapters/mq/worker"
	"github.com/okian/cinerank/internal/adapters/remote"
	"github.com/okian/cinerank/internal/adapters/repository"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/reorder"
	"github.com/okian/cinerank/internal/domain/scoring"
	"github.com/okian/cinerank/internal/domain/types"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"
)

// Service implements the ranking dependencies of the HTTP API.
//
// Every mutation and identity transition runs under mu. The only place the
// lock is released mid-operation is the remote read while an account is
// hydrating; generation tells a late result that it was superseded.
type Service struct {
	mu sync.Mutex

	// Collaborators
	cache      repository.Cache
	remote     remote.Store
	backfiller *metadata.Backfiller
	queue      *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	queueSize    int
	syncWorkers  int
	undoCapacity int
	flushTimeout time.Duration
	sessionTTL   time.Duration
	initial      model.Identity
	clock        func() time.Time

	// Ranking state for the current identity
	identity   model.Identity
	list       model.List
	generation uint64
	hydrating  bool
	raced      bool
	reorderer  *reorder.Reorderer
	sessions   map[string]*openSession

	// Remote write ordering. writing holds one lock per bucket; a remote
	// write holds it from the staleness check until the sequence is marked.
	seq     atomic.Uint64
	syncMu  sync.Mutex
	written map[string]uint64
	writing map[string]*sync.Mutex

	// Lifecycle
	started  bool
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		remote:       remote.Disabled{},
		queueSize:    1024,
		syncWorkers:  1,
		undoCapacity: reorder.DefaultUndoCapacity,
		flushTimeout: 3 * time.Second,
		sessionTTL:   30 * time.Minute,
		initial:      model.Guest(),
		clock:        time.Now,
		identity:     model.Guest(),
		list:         model.List{},
		sessions:     make(map[string]*openSession),
		written:      make(map[string]uint64),
		writing:      make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.GetOrDiscard().Named("ranking")
	}
	if s.cache == nil {
		s.cache = repository.NewMemoryCache()
	}
	s.reorderer = reorder.New(s.undoCapacity)
	return s
}

// Start starts the sync workers and loads the initial identity's ranking.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}

	s.logger.Info(ctx, "starting ranking service...")

	s.bgCtx, s.bgCancel = context.WithCancel(context.WithoutCancel(ctx))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.syncWorkers, s.queue, workerpool.SinkFunc(s.writeRemote),
		workerpool.WithLogger(s.logger.Named("sync")),
	)
	s.workerPool.Start(s.bgCtx)

	s.bg.Add(1)
	go s.sweepSessions()

	s.started = true
	s.identity = model.Guest()
	s.list = model.List{}
	s.mu.Unlock()

	if err := s.transition(ctx, s.initial, true); err != nil {
		return err
	}

	s.logger.Info(ctx, "ranking service started",
		logger.String("identity", s.initial.String()),
		logger.Int("syncWorkers", s.syncWorkers),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop drains pending remote writes and stops background work. The cache is
// left open for its owner to close.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.generation++
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping ranking service...")

	err := s.workerPool.Shutdown(ctx)
	s.bgCancel()
	s.bg.Wait()

	s.logger.Info(ctx, "ranking service stopped")
	return err
}

// List returns the ranking with projected scores.
func (s *Service) List(_ context.Context) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return scoring.Annotate(s.list), nil
}

// RawList returns a copy of the ranking without scores.
func (s *Service) RawList(_ context.Context) (model.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.list.Clone(), nil
}

// Identity returns the identity whose ranking is active.
func (s *Service) Identity() model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Hydrating reports whether the active identity is still loading.
func (s *Service) Hydrating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrating
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"identity":     s.identity.String(),
		"hydrating":    s.hydrating,
		"rankingSize":  len(s.list),
		"openSessions": len(s.sessions),
		"undoDepth":    s.reorderer.Len(),
		"syncWorkers":  s.syncWorkers,
		"queueSize":    s.queueSize,
	}

	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["activeWorkers"] = s.workerPool.Active()
		if n, err := s.cache.Count(context.Background()); err == nil {
			stats["cacheBuckets"] = n
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateRankingSize(len(s.list))
		metrics.UpdateOpenSessions(len(s.sessions))
		metrics.UpdateWorkerCount(s.syncWorkers)
	}

	return stats
}

// sweepSessions drops idle comparison sessions until the service stops.
func (s *Service) sweepSessions() {
	defer s.bg.Done()

	interval := s.sessionTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.bgCtx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.expireSessions()
			s.mu.Unlock()
		}
	}
}
