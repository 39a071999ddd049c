// Package metrics provides Prometheus metrics for the adcraft creative service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Job lifecycle
	jobsCreated   *prometheus.CounterVec
	jobsCompleted prometheus.Counter
	jobsFailed    *prometheus.CounterVec
	jobsTimedOut  prometheus.Counter
	jobsIgnored   *prometheus.CounterVec
	jobDuration   prometheus.Histogram
	jobsByStatus  *prometheus.GaugeVec

	// Pipeline
	stageLatency      *prometheus.HistogramVec
	stageErrors       *prometheus.CounterVec
	creativesRendered *prometheus.CounterVec
	rendererFallbacks *prometheus.CounterVec
	dispatchErrors    *prometheus.CounterVec
	callbackDuplicate prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize              *prometheus.GaugeVec
	queueCapacity          *prometheus.GaugeVec
	queueEnqueued          *prometheus.CounterVec
	queueDequeued          *prometheus.CounterVec
	queueEnqueueErrors     *prometheus.CounterVec
	queueProcessingLatency *prometheus.HistogramVec

	// Workers
	workerActive            prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Store
	storeOpLatency *prometheus.HistogramVec
	storeConflicts *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "adcraft",
		subsystem:        "creatives",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
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

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.jobsCreated = m.counterVec("jobs_created_total", "Creative jobs accepted, by requested format", "format")
	m.jobsCompleted = m.counter("jobs_completed_total", "Creative jobs that reached completed")
	m.jobsFailed = m.counterVec("jobs_failed_total", "Creative jobs that reached failed, by reason", "reason")
	m.jobsTimedOut = m.counter("jobs_timed_out_total", "Creative jobs failed by the timeout hook")
	m.jobsIgnored = m.counterVec("callbacks_ignored_total", "Callbacks that arrived for a job no longer processing", "kind")
	m.jobDuration = m.histogram("job_duration_milliseconds", "Time from job creation to a terminal state", m.histogramBuckets)
	m.jobsByStatus = m.gaugeVec("jobs", "Jobs currently held by the store, by status", "status")

	m.stageLatency = m.histogramVec("stage_latency_milliseconds", "Pipeline stage latency", "stage")
	m.stageErrors = m.counterVec("stage_errors_total", "Pipeline stage failures", "stage")
	m.creativesRendered = m.counterVec("creatives_rendered_total", "Creatives produced, by format", "format")
	m.rendererFallbacks = m.counterVec("renderer_fallback_total", "Text overlays skipped because no renderer was available", "backend")
	m.dispatchErrors = m.counterVec("dispatch_errors_total", "Dispatch attempts that failed, by target", "target")
	m.callbackDuplicate = m.counter("callbacks_duplicate_total", "Callback deliveries recognised as duplicates")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.queueSize = m.gaugeVec("queue_size", "Current queue depth", "queue")
	m.queueCapacity = m.gaugeVec("queue_capacity", "Maximum queue capacity", "queue")
	m.queueEnqueued = m.counterVec("queue_enqueue_total", "Messages enqueued", "queue")
	m.queueDequeued = m.counterVec("queue_dequeue_total", "Messages dequeued", "queue")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Enqueue failures", "queue")
	m.queueProcessingLatency = m.histogramVec("queue_wait_milliseconds", "Time a message spent in the queue", "queue")

	m.workerActive = m.gauge("worker_active_count", "Workers currently processing a task")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker task latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Tasks whose handler returned an error")

	m.storeOpLatency = m.histogramVec("store_operation_latency_milliseconds", "Job store operation latency", "backend", "op")
	m.storeConflicts = m.counterVec("store_conflicts_total", "Optimistic update conflicts", "backend")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordJobCreated counts an accepted job.
func RecordJobCreated(format string) { globalManager.jobsCreated.WithLabelValues(format).Inc() }

// RecordJobCompleted counts a completion and its end-to-end duration.
func RecordJobCompleted(durationMs float64) {
	globalManager.jobsCompleted.Inc()
	globalManager.jobDuration.Observe(durationMs)
}

// RecordJobFailed counts a failure. reason is a short, low-cardinality tag.
func RecordJobFailed(reason string, durationMs float64) {
	globalManager.jobsFailed.WithLabelValues(reason).Inc()
	globalManager.jobDuration.Observe(durationMs)
}

// RecordJobTimedOut counts a failure applied by the timeout hook.
func RecordJobTimedOut() { globalManager.jobsTimedOut.Inc() }

// RecordCallbackIgnored counts a callback that lost the optimistic check.
func RecordCallbackIgnored(kind string) { globalManager.jobsIgnored.WithLabelValues(kind).Inc() }

// RecordCallbackDuplicate counts a redelivered callback.
func RecordCallbackDuplicate() { globalManager.callbackDuplicate.Inc() }

// UpdateJobsByStatus sets the per-status job gauge.
func UpdateJobsByStatus(status string, count int) {
	globalManager.jobsByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordStageLatency observes one pipeline stage.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordStageError counts a failed pipeline stage.
func RecordStageError(stage string) { globalManager.stageErrors.WithLabelValues(stage).Inc() }

// RecordCreativeRendered counts a produced creative.
func RecordCreativeRendered(format string) {
	globalManager.creativesRendered.WithLabelValues(format).Inc()
}

// RecordRendererFallback counts an overlay that fell back to pass-through.
func RecordRendererFallback(backend string) {
	globalManager.rendererFallbacks.WithLabelValues(backend).Inc()
}

// RecordDispatchError counts a failed dispatch.
func RecordDispatchError(target string) { globalManager.dispatchErrors.WithLabelValues(target).Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current depth of a queue.
func UpdateQueueSize(queue string, size int) {
	globalManager.queueSize.WithLabelValues(queue).Set(float64(size))
}

// UpdateQueueCapacity sets the capacity of a queue.
func UpdateQueueCapacity(queue string, capacity int) {
	globalManager.queueCapacity.WithLabelValues(queue).Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue(queue string) { globalManager.queueEnqueued.WithLabelValues(queue).Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue(queue string) { globalManager.queueDequeued.WithLabelValues(queue).Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError(queue string) {
	globalManager.queueEnqueueErrors.WithLabelValues(queue).Inc()
}

// RecordQueueProcessingLatency records how long a message waited.
func RecordQueueProcessingLatency(queue string, latencyMs float64) {
	globalManager.queueProcessingLatency.WithLabelValues(queue).Observe(latencyMs)
}

// AddWorkerActive adjusts the active worker gauge by delta.
func AddWorkerActive(delta int) { globalManager.workerActive.Add(float64(delta)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordStoreOperation observes one job store call.
func RecordStoreOperation(backend, op string, latencyMs float64) {
	globalManager.storeOpLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreConflict counts an optimistic update that had to be retried or abandoned.
func RecordStoreConflict(backend string) { globalManager.storeConflicts.WithLabelValues(backend).Inc() }

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
