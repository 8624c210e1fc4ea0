// Package metrics provides Prometheus metrics for the cinerank daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// latencyBuckets are the millisecond buckets of every latency histogram.
var latencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // constant buckets

// Manager manages all Prometheus metrics for the cinerank daemon.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ranking metrics
	comparisons     *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	comparisonSteps prometheus.Histogram
	mutations       *prometheus.CounterVec
	rankingSize     prometheus.Gauge
	openSessions    prometheus.Gauge

	// Identity hand-off metrics
	identitySwitches  *prometheus.CounterVec
	hydrationDuration prometheus.Histogram
	hydrations        *prometheus.CounterVec
	migrations        *prometheus.CounterVec
	flushes           *prometheus.CounterVec

	// Remote store metrics
	remoteRequests *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	syncs          *prometheus.CounterVec

	// Local cache metrics
	cacheOps     *prometheus.CounterVec
	cacheLatency *prometheus.HistogramVec
	cacheBuckets prometheus.Gauge

	// Metadata backfill metrics
	metadataFetches       *prometheus.CounterVec
	metadataBatchDuration prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cinerank",
		subsystem:        "ranking",
		histogramBuckets: latencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often background gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether callers should bother sampling expensive gauges.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	m.comparisons = m.counterVec("comparisons_total", "User judgments applied to comparison sessions", "choice")
	m.sessions = m.counterVec("sessions_total", "Comparison sessions by lifecycle outcome", "outcome")
	m.resolutions = m.counterVec("resolutions_total", "Resolved insertions by how the index was found", "reason")
	m.comparisonSteps = m.histogram("comparison_steps", "Judgments needed per resolved insertion",
		[]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 12, 16})
	m.mutations = m.counterVec("mutations_total", "Ranking mutations by kind", "kind")
	m.rankingSize = m.gauge("items", "Items in the active ranking")
	m.openSessions = m.gauge("open_sessions", "Comparison sessions currently open")

	m.identitySwitches = m.counterVec("identity_switches_total", "Identity transitions by kind", "transition")
	m.hydrationDuration = m.histogram("hydration_duration_milliseconds", "Time to load the ranking of a new identity",
		m.histogramBuckets)
	m.hydrations = m.counterVec("hydrations_total", "Hydrations by where the ranking came from", "source")
	m.migrations = m.counterVec("migrations_total", "Guest to account migrations by result", "result")
	m.flushes = m.counterVec("flushes_total", "Outgoing account flushes by result", "result")

	m.remoteRequests = m.counterVec("remote_requests_total", "Remote ranking store calls", "op", "result")
	m.remoteLatency = m.histogramVec("remote_latency_milliseconds", "Remote ranking store latency", "op")
	m.syncs = m.counterVec("syncs_total", "Asynchronous remote writes by result", "result")

	m.cacheOps = m.counterVec("cache_operations_total", "Local cache operations", "op", "result")
	m.cacheLatency = m.histogramVec("cache_latency_milliseconds", "Local cache latency", "op")
	m.cacheBuckets = m.gauge("cache_buckets", "Buckets held by the local cache")

	m.metadataFetches = m.counterVec("metadata_fetches_total", "Metadata detail lookups by result", "result")
	m.metadataBatchDuration = m.histogram("metadata_batch_duration_milliseconds", "Metadata backfill batch duration",
		m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Pending remote writes")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum pending remote writes")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Remote writes enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Remote writes dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Remote writes dropped at enqueue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time a write waited in the queue",
		m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Configured sync workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Sync workers currently writing")
	m.workerIdleCount = m.gauge("worker_idle_count", "Sync workers waiting for work")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to perform one remote write",
		m.histogramBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Remote writes that failed in a worker")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Ranking metrics.

// RecordComparison counts a judgment applied to a session.
func RecordComparison(choice string) { globalManager.comparisons.WithLabelValues(choice).Inc() }

// RecordSession counts a session lifecycle event (started, resolved, abandoned, expired).
func RecordSession(outcome string) { globalManager.sessions.WithLabelValues(outcome).Inc() }

// RecordResolution counts a resolved insertion and the judgments it took.
func RecordResolution(reason string, steps int) {
	globalManager.resolutions.WithLabelValues(reason).Inc()
	globalManager.comparisonSteps.Observe(float64(steps))
}

// RecordMutation counts a ranking mutation (insert, move, undo, remove).
func RecordMutation(kind string) { globalManager.mutations.WithLabelValues(kind).Inc() }

// UpdateRankingSize sets the number of items in the active ranking.
func UpdateRankingSize(n int) { globalManager.rankingSize.Set(float64(n)) }

// UpdateOpenSessions sets the number of open comparison sessions.
func UpdateOpenSessions(n int) { globalManager.openSessions.Set(float64(n)) }

// Identity metrics.

// RecordIdentitySwitch counts an identity transition such as "guest->account".
func RecordIdentitySwitch(transition string) {
	globalManager.identitySwitches.WithLabelValues(transition).Inc()
}

// RecordHydration records where a hydrated ranking came from and how long it took.
func RecordHydration(source string, durationMs float64) {
	globalManager.hydrations.WithLabelValues(source).Inc()
	globalManager.hydrationDuration.Observe(durationMs)
}

// RecordMigration counts a guest migration attempt.
func RecordMigration(result string) { globalManager.migrations.WithLabelValues(result).Inc() }

// RecordFlush counts an outgoing account flush.
func RecordFlush(result string) { globalManager.flushes.WithLabelValues(result).Inc() }

// Remote store metrics.

// RecordRemoteRequest records one remote store call.
func RecordRemoteRequest(op, result string, latencyMs float64) {
	globalManager.remoteRequests.WithLabelValues(op, result).Inc()
	globalManager.remoteLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordSync counts an asynchronous remote write (ok, failed, stale).
func RecordSync(result string) { globalManager.syncs.WithLabelValues(result).Inc() }

// Local cache metrics.

// RecordCacheOp records one local cache operation.
func RecordCacheOp(op, result string, latencyMs float64) {
	globalManager.cacheOps.WithLabelValues(op, result).Inc()
	globalManager.cacheLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateCacheBuckets sets the number of buckets in the local cache.
func UpdateCacheBuckets(n int) { globalManager.cacheBuckets.Set(float64(n)) }

// Metadata metrics.

// RecordMetadataFetch counts a metadata lookup (ok, failed).
func RecordMetadataFetch(result string) { globalManager.metadataFetches.WithLabelValues(result).Inc() }

// RecordMetadataBatch records the duration of one backfill batch.
func RecordMetadataBatch(durationMs float64) { globalManager.metadataBatchDuration.Observe(durationMs) }

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency records how long a message waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) { globalManager.workerIdleCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrorRate.Inc() }

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before any metric is recorded or served.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// Default returns the global manager.
func Default() *Manager { return globalManager }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
