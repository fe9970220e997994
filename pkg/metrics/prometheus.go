// Package metrics provides Prometheus metrics for the vmatch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector registered by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Matching
	matchRequests       *prometheus.CounterVec
	matchLatency        *prometheus.HistogramVec
	candidatesEvaluated *prometheus.HistogramVec
	matchScore          prometheus.Histogram

	// Catalog
	volunteersTotal prometheus.Gauge
	projectsTotal   prometheus.Gauge
	applications    *prometheus.CounterVec

	// Notifications
	notificationsEnqueued     prometheus.Counter
	notificationsDropped      *prometheus.CounterVec
	notificationsDeduplicated prometheus.Counter
	notificationsDelivered    *prometheus.CounterVec
	notificationsFailed       *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Storage
	storeQueryLatency *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	cacheErrors       prometheus.Counter

	// Chat
	chatRequests *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton backing the package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared with the /healthz handler

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vmatch",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.matchRequests = m.counterVec("match_requests_total", "Matching requests by operation and outcome", "operation", "outcome")
	m.matchLatency = m.histogramVec("match_latency_milliseconds", "Matching latency in milliseconds", m.histogramBuckets, "operation")
	m.candidatesEvaluated = m.histogramVec("match_candidates_evaluated", "Candidates scored per matching request",
		[]float64{0, 1, 5, 10, 20, 50, 100, 250, 500, 1000}, "operation")
	m.matchScore = m.histogram("match_score", "Distribution of aggregate match scores",
		[]float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})

	m.volunteersTotal = m.gauge("volunteers_total", "Volunteer profiles in the store")
	m.projectsTotal = m.gauge("projects_total", "Projects in the store")
	m.applications = m.counterVec("applications_total", "Application state changes by resulting status", "status")

	m.notificationsEnqueued = m.counter("notifications_enqueued_total", "Notifications accepted for delivery")
	m.notificationsDropped = m.counterVec("notifications_dropped_total", "Notifications dropped before delivery", "reason")
	m.notificationsDeduplicated = m.counter("notifications_deduplicated_total", "Notifications suppressed as duplicates")
	m.notificationsDelivered = m.counterVec("notifications_delivered_total", "Notifications delivered by channel", "channel")
	m.notificationsFailed = m.counterVec("notifications_failed_total", "Notification deliveries that failed by channel", "channel")

	m.queueSize = m.gauge("queue_size", "Current size of the notification queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the notification queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (0-1)")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Items enqueued")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Items dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue attempts rejected")

	m.workerActiveCount = m.gauge("worker_active_count", "Delivery workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time spent delivering one notification", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Delivery worker errors")

	m.storeQueryLatency = m.histogramVec("store_query_latency_milliseconds", "Store query latency by operation", m.histogramBuckets, "operation")
	m.cacheHits = m.counter("store_cache_hits_total", "Entity cache hits")
	m.cacheMisses = m.counter("store_cache_misses_total", "Entity cache misses")
	m.cacheErrors = m.counter("store_cache_errors_total", "Entity cache failures")

	m.chatRequests = m.counterVec("chat_requests_total", "Chat requests by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordMatchRequest counts a matching request by outcome.
func RecordMatchRequest(operation, outcome string) {
	globalManager.matchRequests.WithLabelValues(operation, outcome).Inc()
}

// RecordMatchLatency records matching latency in milliseconds.
func RecordMatchLatency(operation string, latencyMs float64) {
	globalManager.matchLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordCandidatesEvaluated records how many candidates one request scored.
func RecordCandidatesEvaluated(operation string, n int) {
	globalManager.candidatesEvaluated.WithLabelValues(operation).Observe(float64(n))
}

// RecordMatchScore records one aggregate score.
func RecordMatchScore(score float64) {
	globalManager.matchScore.Observe(score)
}

// UpdateCatalogSize sets the volunteer and project gauges.
func UpdateCatalogSize(volunteers, projects int) {
	globalManager.volunteersTotal.Set(float64(volunteers))
	globalManager.projectsTotal.Set(float64(projects))
}

// RecordApplication counts an application reaching status.
func RecordApplication(status string) {
	globalManager.applications.WithLabelValues(status).Inc()
}

// RecordNotificationEnqueued counts a notification accepted by the dispatcher.
func RecordNotificationEnqueued() {
	globalManager.notificationsEnqueued.Inc()
}

// RecordNotificationDropped counts a notification that never reached a worker.
func RecordNotificationDropped(reason string) {
	globalManager.notificationsDropped.WithLabelValues(reason).Inc()
}

// RecordNotificationDuplicate counts a suppressed duplicate.
func RecordNotificationDuplicate() {
	globalManager.notificationsDeduplicated.Inc()
}

// RecordNotificationDelivered counts a successful delivery.
func RecordNotificationDelivered(channel string) {
	globalManager.notificationsDelivered.WithLabelValues(channel).Inc()
}

// RecordNotificationFailed counts a failed delivery.
func RecordNotificationFailed(channel string) {
	globalManager.notificationsFailed.WithLabelValues(channel).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordStoreQueryLatency records one store query.
func RecordStoreQueryLatency(operation string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheError increments the cache error counter.
func RecordCacheError() {
	globalManager.cacheErrors.Inc()
}

// RecordChatRequest counts a chat request by outcome.
func RecordChatRequest(outcome string) {
	globalManager.chatRequests.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
