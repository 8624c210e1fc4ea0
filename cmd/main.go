package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/cinerank/internal/adapters/http/api"
	"github.com/okian/cinerank/internal/adapters/http/swagger"
	"github.com/okian/cinerank/internal/adapters/metadata"
	"github.com/okian/cinerank/internal/adapters/remote"
	"github.com/okian/cinerank/internal/adapters/repository"
	app "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/internal/config"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(metricsOptions(cfg)...)

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "daemon failed", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the daemon from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	cache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Error(ctx, "cache close failed", logger.Error(err))
		}
	}()

	store, closeStore, err := openRemote(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error(ctx, "remote close failed", logger.Error(err))
		}
	}()

	svc, err := newService(cfg, log, cache, store)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service stop failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// metricsOptions maps the metrics settings of cfg onto manager options.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	}
}

// openCache opens the configured local ranking cache.
func openCache(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Cache, error) {
	switch cfg.CacheDriver {
	case config.CacheMemory:
		return repository.NewMemoryCache(), nil
	case config.CacheSQLite:
		c, err := repository.OpenSQLite(ctx, cfg.CachePath, repository.WithLogger(log.Named("cache")))
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: cache_driver %q", config.ErrInvalidConfig, cfg.CacheDriver)
	}
}

// openRemote builds the configured remote ranking store and a function that
// releases it.
func openRemote(ctx context.Context, cfg *config.Config) (remote.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.RemoteDriver {
	case config.RemoteNone:
		return remote.Disabled{}, noop, nil
	case config.RemoteHTTP:
		s, err := remote.NewHTTPStore(cfg.RemoteURL, remote.WithTimeout(cfg.RemoteTimeout()))
		if err != nil {
			return nil, nil, fmt.Errorf("open remote: %w", err)
		}
		return s, noop, nil
	case config.RemoteRedis:
		s, err := remote.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB,
			remote.WithTimeout(cfg.RemoteTimeout()),
			remote.WithKeyPrefix(cfg.RedisKeyPrefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("open remote: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: remote_driver %q", config.ErrInvalidConfig, cfg.RemoteDriver)
	}
}

// newService assembles the ranking service from cfg.
func newService(cfg *config.Config, log logger.Logger, cache repository.Cache, store remote.Store) (*app.Service, error) {
	opts := []app.Option{
		app.WithLogger(log.Named("ranking")),
		app.WithCache(cache),
		app.WithRemote(store),
		app.WithQueueSize(cfg.SyncQueueSize),
		app.WithSyncWorkers(cfg.SyncWorkers),
		app.WithUndoCapacity(cfg.UndoCapacity),
		app.WithFlushTimeout(cfg.FlushTimeout()),
		app.WithSessionTTL(cfg.SessionTTL()),
	}

	if cfg.MetadataURL != "" {
		provider, err := metadata.NewHTTPProvider(cfg.MetadataURL, cfg.MetadataAPIKey,
			metadata.WithRateLimit(cfg.MetadataRPS),
		)
		if err != nil {
			return nil, fmt.Errorf("metadata provider: %w", err)
		}
		opts = append(opts, app.WithBackfiller(metadata.NewBackfiller(provider,
			metadata.WithBatchSize(cfg.MetadataBatchSize),
			metadata.WithBatchDelay(cfg.MetadataBatchDelay()),
			metadata.WithLogger(log.Named("metadata")),
		)))
	}

	if cfg.AccountID != "" {
		opts = append(opts, app.WithInitialIdentity(model.Account(cfg.AccountID, cfg.Credential)))
	}
	return app.New(opts...), nil
}

// newMux registers the API and docs routes.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	if !metrics.Default().Enabled() {
		return
	}
	ticker := time.NewTicker(metrics.Default().RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics copies service stats into gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if size, ok := stats["rankingSize"].(int); ok {
		metrics.UpdateRankingSize(size)
	}
	if open, ok := stats["openSessions"].(int); ok {
		metrics.UpdateOpenSessions(open)
	}
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workers, ok := stats["syncWorkers"].(int); ok {
		metrics.UpdateWorkerCount(workers)
	}
	if active, ok := stats["activeWorkers"].(int); ok {
		metrics.UpdateWorkerActiveCount(active)
	}
}
