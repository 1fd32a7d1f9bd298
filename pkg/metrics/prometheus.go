package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Validation lifecycle
	validationsCreated   *prometheus.CounterVec
	scoresAccepted       prometheus.Counter
	scoresRejected       *prometheus.CounterVec
	validationsCompleted *prometheus.CounterVec
	finalScores          prometheus.Histogram
	tokensAwarded        prometheus.Counter
	validationsFailed    prometheus.Counter

	// Record store
	storeLatency   *prometheus.HistogramVec
	storeConflicts *prometheus.CounterVec
	storeRecords   prometheus.Gauge

	// Reward queue and workers
	rewardQueueSize     prometheus.Gauge
	rewardQueueCapacity prometheus.Gauge
	rewardEnqueued      prometheus.Counter
	rewardEnqueueErrors *prometheus.CounterVec
	rewardsCredited     prometheus.Counter
	rewardTokens        prometheus.Counter
	rewardDuplicates    prometheus.Counter
	rewardErrors        prometheus.Counter
	validatorBonuses    prometheus.Counter
	bonusTokens         prometheus.Counter
	badgesAwarded       *prometheus.CounterVec
	workerCount         prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // served on /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tricktrack",
		subsystem:        "validation",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.validationsCreated = m.counterVec("created_total", "Validation requests created, by trick", "trick")
	m.scoresAccepted = m.counter("scores_accepted_total", "Validator scores accepted")
	m.scoresRejected = m.counterVec("scores_rejected_total", "Validator scores rejected, by error code", "code")
	m.validationsCompleted = m.counterVec("completed_total", "Validations completed, by trick", "trick")
	m.finalScores = m.histogram("final_score", "Distribution of final scores",
		[]float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})
	m.tokensAwarded = m.counter("tokens_awarded_total", "Tokens awarded on completion")
	m.validationsFailed = m.counter("failed_total", "Validations moved to failed")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Record store latency in milliseconds", "backend", "op")
	m.storeConflicts = m.counterVec("store_conflicts_total", "Optimistic update conflicts that were retried", "backend")
	m.storeRecords = m.gauge("store_records", "Validation records held by the store")

	m.rewardQueueSize = m.gauge("reward_queue_size", "Reward events waiting to be credited")
	m.rewardQueueCapacity = m.gauge("reward_queue_capacity", "Reward queue capacity")
	m.rewardEnqueued = m.counter("reward_enqueued_total", "Reward events enqueued")
	m.rewardEnqueueErrors = m.counterVec("reward_enqueue_errors_total", "Reward events not enqueued, by reason", "reason")
	m.rewardsCredited = m.counter("rewards_credited_total", "Reward events credited to the ledger")
	m.rewardTokens = m.counter("reward_tokens_credited_total", "Tokens credited to the ledger")
	m.rewardDuplicates = m.counter("reward_duplicates_total", "Reward events skipped as already credited")
	m.rewardErrors = m.counter("reward_errors_total", "Reward events that failed to credit")
	m.validatorBonuses = m.counter("validator_bonuses_total", "Validator bonuses credited")
	m.bonusTokens = m.counter("validator_bonus_tokens_total", "Tokens credited as validator bonuses")
	m.badgesAwarded = m.counterVec("badges_awarded_total", "Badges awarded, by tier", "tier")
	m.workerCount = m.gauge("reward_worker_count", "Running reward workers")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Last GC pause in milliseconds", m.histogramBuckets)
}

// RecordValidationCreated counts a new validation request.
func RecordValidationCreated(trick string) {
	globalManager.validationsCreated.WithLabelValues(trick).Inc()
}

// RecordScoreAccepted counts an accepted validator score.
func RecordScoreAccepted() {
	globalManager.scoresAccepted.Inc()
}

// RecordScoreRejected counts a rejected score by error code.
func RecordScoreRejected(code string) {
	globalManager.scoresRejected.WithLabelValues(code).Inc()
}

// RecordValidationCompleted counts a completion with its score and reward.
func RecordValidationCompleted(trick string, finalScore, tokens int) {
	globalManager.validationsCompleted.WithLabelValues(trick).Inc()
	globalManager.finalScores.Observe(float64(finalScore))
	globalManager.tokensAwarded.Add(float64(tokens))
}

// RecordValidationFailed counts a validation moved to failed.
func RecordValidationFailed() {
	globalManager.validationsFailed.Inc()
}

// RecordStoreLatency observes one store operation.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreConflict counts a retried optimistic update.
func RecordStoreConflict(backend string) {
	globalManager.storeConflicts.WithLabelValues(backend).Inc()
}

// UpdateStoreRecords sets the number of stored records.
func UpdateStoreRecords(count int) {
	globalManager.storeRecords.Set(float64(count))
}

// UpdateRewardQueueSize sets the reward queue backlog.
func UpdateRewardQueueSize(size int) {
	globalManager.rewardQueueSize.Set(float64(size))
}

// UpdateRewardQueueCapacity sets the reward queue capacity.
func UpdateRewardQueueCapacity(capacity int) {
	globalManager.rewardQueueCapacity.Set(float64(capacity))
}

// RecordRewardEnqueue counts an enqueued reward event.
func RecordRewardEnqueue() {
	globalManager.rewardEnqueued.Inc()
}

// RecordRewardEnqueueError counts a reward event the queue refused.
func RecordRewardEnqueueError(reason string) {
	globalManager.rewardEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordRewardCredited counts a credited reward and its tokens.
func RecordRewardCredited(tokens int) {
	globalManager.rewardsCredited.Inc()
	globalManager.rewardTokens.Add(float64(tokens))
}

// RecordRewardDuplicate counts a reward skipped as already credited.
func RecordRewardDuplicate() {
	globalManager.rewardDuplicates.Inc()
}

// RecordRewardError counts a reward that failed to credit.
func RecordRewardError() {
	globalManager.rewardErrors.Inc()
}

// RecordValidatorBonus counts one validator bonus and its tokens.
func RecordValidatorBonus(tokens int) {
	globalManager.validatorBonuses.Inc()
	globalManager.bonusTokens.Add(float64(tokens))
}

// RecordBadgeAwarded counts a badge of the given tier.
func RecordBadgeAwarded(tier string) {
	globalManager.badgesAwarded.WithLabelValues(tier).Inc()
}

// UpdateWorkerCount sets the number of running reward workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
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
