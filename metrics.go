package auraclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle and
// reliability layers. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal        *prometheus.CounterVec
	retryBudgetExceeded *prometheus.CounterVec

	circuitBreakerState *prometheus.GaugeVec
	circuitOpenDenials  *prometheus.CounterVec

	rateLimiterTokens   *prometheus.GaugeVec
	rateLimitRejections *prometheus.CounterVec

	deduplicationHits *prometheus.CounterVec

	queueDepth *prometheus.GaugeVec
	queueWait  *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer; tests use a private registry to avoid duplicate registration.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraclient_requests_total",
				Help: "Total number of logical requests issued",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auraclient_request_duration_seconds",
				Help:    "Duration of logical requests in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "auraclient_requests_in_flight",
				Help: "Number of logical requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraclient_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		retryBudgetExceeded: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraclient_retry_budget_exceeded_total",
				Help: "Total number of times the retry budget was exhausted",
			},
			[]string{"endpoint"},
		),
		circuitBreakerState: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "auraclient_circuit_breaker_state",
				Help: "Current circuit state per scope (0=closed, 1=open, 2=half-open)",
			},
			[]string{"scope"},
		),
		circuitOpenDenials: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraclient_circuit_open_denials_total",
				Help: "Attempts denied by an open circuit, no network call made",
			},
			[]string{"scope"},
		),
		rateLimiterTokens: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "auraclient_rate_limiter_tokens",
				Help: "Currently available rate limiter tokens",
			},
			[]string{"name"},
		),
		rateLimitRejections: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraclient_rate_limit_rejections_total",
				Help: "Requests denied by the token bucket",
			},
			[]string{"method", "endpoint"},
		),
		deduplicationHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraclient_deduplication_hits_total",
				Help: "Calls coalesced onto an existing in-flight request",
			},
			[]string{"method", "endpoint"},
		),
		queueDepth: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "auraclient_queue_depth",
				Help: "Entries waiting in the rate-limited queue per key",
			},
			[]string{"key"},
		),
		queueWait: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auraclient_queue_wait_seconds",
				Help:    "Time spent waiting for a queue dispatch slot",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"key"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraclient_cache_hits_total",
				Help: "Total number of response cache hits",
			},
			[]string{"method", "endpoint"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraclient_cache_misses_total",
				Help: "Total number of response cache misses",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraclient_errors_total",
				Help: "Errors surfaced to callers by type",
			},
			[]string{"type", "method", "endpoint"},
		),
	}
}

// RecordRequestStart marks a logical request entering flight.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd marks a logical request leaving flight.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest records a settled logical request with its final status.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, status, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, status, endpoint).Observe(duration.Seconds())
}

// RecordRetry records one retry attempt.
func (mc *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	mc.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordRetryBudgetExceeded records an exhausted retry budget.
func (mc *MetricsCollector) RecordRetryBudgetExceeded(endpoint string) {
	mc.retryBudgetExceeded.WithLabelValues(endpoint).Inc()
}

// RecordCircuitBreakerState exports the current state for a scope.
func (mc *MetricsCollector) RecordCircuitBreakerState(scope string, state CircuitState) {
	mc.circuitBreakerState.WithLabelValues(scope).Set(float64(state))
}

// RecordCircuitOpenDenial counts a breaker denial.
func (mc *MetricsCollector) RecordCircuitOpenDenial(scope string) {
	mc.circuitOpenDenials.WithLabelValues(scope).Inc()
}

// RecordRateLimiterTokens exports the available token count.
func (mc *MetricsCollector) RecordRateLimiterTokens(name string, tokens int) {
	mc.rateLimiterTokens.WithLabelValues(name).Set(float64(tokens))
}

// RecordRateLimitRejection counts a token bucket denial.
func (mc *MetricsCollector) RecordRateLimitRejection(method, endpoint string) {
	mc.rateLimitRejections.WithLabelValues(method, endpoint).Inc()
}

// RecordDeduplicationHit counts a coalesced call.
func (mc *MetricsCollector) RecordDeduplicationHit(method, endpoint string) {
	mc.deduplicationHits.WithLabelValues(method, endpoint).Inc()
}

// RecordQueueDepth exports the current depth of one queue lane.
func (mc *MetricsCollector) RecordQueueDepth(key string, depth int) {
	mc.queueDepth.WithLabelValues(key).Set(float64(depth))
}

// RecordQueueWait records time spent waiting for a dispatch slot.
func (mc *MetricsCollector) RecordQueueWait(key string, wait time.Duration) {
	mc.queueWait.WithLabelValues(key).Observe(wait.Seconds())
}

// RecordCacheHit counts a response cache hit.
func (mc *MetricsCollector) RecordCacheHit(method, endpoint string) {
	mc.cacheHits.WithLabelValues(method, endpoint).Inc()
}

// RecordCacheMiss counts a response cache miss.
func (mc *MetricsCollector) RecordCacheMiss(method, endpoint string) {
	mc.cacheMisses.WithLabelValues(method, endpoint).Inc()
}

// RecordError counts an error surfaced to a caller.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}
