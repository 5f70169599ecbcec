package auraclient

import (
	"fmt"
	"net/http"
	"time"
)

// WithMaxRetries sets the maximum number of retry attempts (total tries are
// maxRetries + 1).
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithInitialBackoff sets the delay before the first retry.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = d
	}
}

// WithMaxBackoff caps the retry delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.maxBackoff = d
	}
}

// WithBackoffMultiplier sets the backoff multiplier.
func WithBackoffMultiplier(f float64) Option {
	return func(c *Client) {
		c.backoffMultiplier = f
	}
}

// WithJitter sets the jitter factor for backoff (0.0 to 1.0). Jitter is off
// by default so delays are deterministic.
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.jitter = f
	}
}

// WithTimeout sets the per-attempt transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithClock injects the time source. Tests use this to simulate breaker
// recovery windows elapsing.
func WithClock(clock Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithClassifier replaces the outcome classifier.
func WithClassifier(fn ClassifierFunc) Option {
	return func(c *Client) {
		c.classify = fn
	}
}

// WithCircuitBreaker sets the circuit breaker configuration shared by every
// scope.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.circuitConfig = config
	}
}

// WithCircuitStateStore makes circuit state durable across restarts.
func WithCircuitStateStore(store StateStore) Option {
	return func(c *Client) {
		c.stateStore = store
	}
}

// WithRateLimiter enables a client-wide token bucket.
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate, c.clock)
	}
}

// WithRetryBudget caps the total retries issued per window.
func WithRetryBudget(maxRetries int, perWindow time.Duration) Option {
	return func(c *Client) {
		c.retryBudget = NewRetryBudget(maxRetries, perWindow, c.clock)
	}
}

// WithRequestQueue enables the rate-limited queue. Calls supplying a
// QueueKey share a FIFO lane with at least minInterval between dispatches.
func WithRequestQueue(minInterval time.Duration) Option {
	return func(c *Client) {
		c.queue = NewRateLimitedQueue(minInterval, c.clock)
	}
}

// WithoutDeduplication disables in-flight coalescing entirely. Mutating
// verbs are deduplicated by default.
func WithoutDeduplication() Option {
	return func(c *Client) {
		c.deduplication = nil
	}
}

// WithDeduplicationKeyFunc sets a custom canonical signature function.
func WithDeduplicationKeyFunc(fn DeduplicationKeyFunc) Option {
	return func(c *Client) {
		c.dedupKeyFunc = fn
	}
}

// WithDeduplicationCondition sets which methods are deduplicated by default.
func WithDeduplicationCondition(fn DeduplicationCondition) Option {
	return func(c *Client) {
		c.dedupCondition = fn
	}
}

// WithCache enables GET response caching with the default in-memory cache.
func WithCache(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = NewInMemoryCache(c.clock)
		c.cacheTTL = ttl
	}
}

// WithCustomCache sets a custom cache implementation.
func WithCustomCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithMiddleware adds middleware to the client.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithMetrics enables Prometheus metrics collection on the default registry.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets the telemetry logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables debug logging with default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithCorrelationIDGenerator sets a custom correlation id generator.
func WithCorrelationIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.CorrelationIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client) ValidateConfiguration() error {
	var errs []string

	errs = append(errs, c.validateRetryConfig()...)
	errs = append(errs, c.validateCircuitConfig()...)
	errs = append(errs, c.validateRateLimiterConfig()...)
	errs = append(errs, c.validateQueueConfig()...)
	errs = append(errs, c.validateDeduplicationConfig()...)
	errs = append(errs, c.validateCacheConfig()...)
	errs = append(errs, c.validateDebugConfig()...)
	errs = append(errs, c.validateMiddlewareConfig()...)
	errs = append(errs, c.validateHTTPClientConfig()...)

	if len(errs) > 0 {
		return &ClientError{
			Type:        ErrorTypeValidation,
			Code:        CodeInvalidInput,
			Message:     "configuration validation failed",
			UserMessage: "The application is misconfigured. Please contact support.",
			Cause:       fmt.Errorf("validation errors: %v", errs),
		}
	}
	return nil
}

func (c *Client) validateRetryConfig() []string {
	var errs []string

	if c.maxRetries < 0 {
		errs = append(errs, "maxRetries must be non-negative")
	}
	if c.initialBackoff <= 0 {
		errs = append(errs, "initialBackoff must be positive")
	}
	if c.maxBackoff < c.initialBackoff {
		errs = append(errs, "maxBackoff must be greater than or equal to initialBackoff")
	}
	if c.backoffMultiplier <= 0 {
		errs = append(errs, "backoffMultiplier must be positive")
	}
	if c.jitter < 0 || c.jitter > 1 {
		errs = append(errs, "jitter must be between 0 and 1")
	}
	if c.timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if c.maxRetries > 100 {
		errs = append(errs, "maxRetries > 100 may cause excessive resource usage")
	}
	if c.maxBackoff > time.Hour {
		errs = append(errs, "maxBackoff > 1h may cause extremely long delays")
	}

	return errs
}

func (c *Client) validateCircuitConfig() []string {
	var errs []string

	if c.circuitConfig.FailureThreshold < 0 {
		errs = append(errs, "circuitBreaker FailureThreshold must be non-negative")
	}
	if c.circuitConfig.SuccessThreshold < 0 {
		errs = append(errs, "circuitBreaker SuccessThreshold must be non-negative")
	}
	if c.circuitConfig.OpenDuration < 0 {
		errs = append(errs, "circuitBreaker OpenDuration must be non-negative")
	}

	return errs
}

func (c *Client) validateRateLimiterConfig() []string {
	var errs []string

	if c.rateLimiter != nil {
		if c.rateLimiter.maxTokens <= 0 {
			errs = append(errs, "rateLimiter maxTokens must be positive")
		}
		if c.rateLimiter.refillRate <= 0 {
			errs = append(errs, "rateLimiter refillRate must be positive")
		}
	}

	return errs
}

func (c *Client) validateQueueConfig() []string {
	var errs []string

	if c.queue != nil && c.queue.minInterval < 0 {
		errs = append(errs, "queue minInterval must be non-negative")
	}

	return errs
}

func (c *Client) validateDeduplicationConfig() []string {
	var errs []string

	if c.deduplication != nil {
		if c.dedupKeyFunc == nil {
			errs = append(errs, "deduplication key function must be set when deduplication is enabled")
		}
		if c.dedupCondition == nil {
			errs = append(errs, "deduplication condition must be set when deduplication is enabled")
		}
	}

	return errs
}

func (c *Client) validateCacheConfig() []string {
	var errs []string

	if c.cache != nil && c.cacheTTL <= 0 {
		errs = append(errs, "cacheTTL must be positive when cache is enabled")
	}

	return errs
}

func (c *Client) validateDebugConfig() []string {
	var errs []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.CorrelationIDGen == nil {
			errs = append(errs, "debug CorrelationIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			errs = append(errs, "logger must be set when debug is enabled")
		}
	}

	return errs
}

func (c *Client) validateMiddlewareConfig() []string {
	var errs []string

	for i, middleware := range c.middleware {
		if middleware == nil {
			errs = append(errs, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return errs
}

func (c *Client) validateHTTPClientConfig() []string {
	var errs []string

	if c.httpClient == nil {
		errs = append(errs, "HTTP client cannot be nil")
	}
	if c.classify == nil {
		errs = append(errs, "classifier cannot be nil")
	}
	if c.clock == nil {
		errs = append(errs, "clock cannot be nil")
	}

	return errs
}
