package auraclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itsacoffee/aura-video-studio-sub001/internal/backoff"
)

// Client is the single entry point every wrapper uses to reach the video
// backend. It layers circuit breaking, retries with exponential backoff,
// in-flight deduplication, rate-limited queueing, caching, middleware and
// metrics around one transport call. It is safe for concurrent use.
type Client struct {
	httpClient        *http.Client
	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	timeout           time.Duration
	clock             Clock
	classify          ClassifierFunc
	circuitConfig     CircuitBreakerConfig
	stateStore        StateStore
	circuitStore      *CircuitStateStore
	breakers          *CircuitBreakerRegistry
	rateLimiter       *RateLimiter
	retryBudget       *RetryBudget
	queue             *RateLimitedQueue
	deduplication     *DeduplicationTracker
	dedupKeyFunc      DeduplicationKeyFunc
	dedupCondition    DeduplicationCondition
	cache             Cache
	cacheTTL          time.Duration
	middleware        []Middleware
	metrics           *MetricsCollector
	debug             *DebugConfig
	logger            Logger
	validationError   error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient:        &http.Client{},
		maxRetries:        3,
		initialBackoff:    1 * time.Second,
		maxBackoff:        8 * time.Second,
		backoffMultiplier: 2.0,
		jitter:            0,
		timeout:           30 * time.Second,
		clock:             systemClock{},
		classify:          DefaultClassify,
		circuitConfig:     CircuitBreakerConfig{},
		deduplication:     NewDeduplicationTracker(),
		dedupKeyFunc:      DefaultDeduplicationKeyFunc,
		dedupCondition:    DefaultDeduplicationCondition,
		cacheTTL:          5 * time.Minute,
		middleware:        []Middleware{},
		debug:             DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if client.stateStore != nil {
		client.circuitStore = NewCircuitStateStore(client.stateStore, client.clock, client.logger)
	}
	client.breakers = NewCircuitBreakerRegistry(client.circuitConfig, client.clock, client.circuitStore)

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get issues a GET. Reads are not deduplicated unless opts opts in.
func (c *Client) Get(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.Issue(ctx, http.MethodGet, url, nil, opts)
}

// Post issues a POST with a JSON-encoded body.
func (c *Client) Post(ctx context.Context, url string, body any, opts *RequestOptions) (*Response, error) {
	return c.Issue(ctx, http.MethodPost, url, body, opts)
}

// Put issues a PUT with a JSON-encoded body.
func (c *Client) Put(ctx context.Context, url string, body any, opts *RequestOptions) (*Response, error) {
	return c.Issue(ctx, http.MethodPut, url, body, opts)
}

// Patch issues a PATCH with a JSON-encoded body.
func (c *Client) Patch(ctx context.Context, url string, body any, opts *RequestOptions) (*Response, error) {
	return c.Issue(ctx, http.MethodPatch, url, body, opts)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.Issue(ctx, http.MethodDelete, url, nil, opts)
}

// Ping issues a health probe that bypasses breaker gating and retries, so
// recovery can be detected while the circuit is open.
func (c *Client) Ping(ctx context.Context, url string) (*Response, error) {
	return c.Issue(ctx, http.MethodGet, url, nil, &RequestOptions{
		BypassCircuitBreaker: true,
		BypassRetry:          true,
	})
}

// Issue executes one logical request with every reliability layer applied.
// body may be nil, []byte, string, json.RawMessage, or any JSON-encodable
// value.
func (c *Client) Issue(ctx context.Context, method, url string, body any, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	start := c.clock.Now()

	if c.validationError != nil {
		return nil, &ClientError{
			Type:        ErrorTypeValidation,
			Code:        CodeInvalidInput,
			Message:     "client configuration is invalid",
			UserMessage: "The application is misconfigured. Please contact support.",
			Cause:       c.validationError,
			Timestamp:   start,
		}
	}
	if method == "" || url == "" {
		return nil, &ClientError{
			Type:        ErrorTypeValidation,
			Code:        CodeInvalidInput,
			Message:     "method and url are required",
			UserMessage: "The request could not be processed. Please review and try again.",
			Timestamp:   start,
		}
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, &ClientError{
			Type:        ErrorTypeValidation,
			Code:        CodeInvalidInput,
			Message:     "request body could not be encoded",
			UserMessage: "The request could not be processed. Please review and try again.",
			Cause:       err,
			Method:      method,
			URL:         url,
			Timestamp:   start,
		}
	}

	corrID := opts.CorrelationID
	if corrID == "" {
		if c.debug != nil && c.debug.CorrelationIDGen != nil {
			corrID = c.debug.CorrelationIDGen()
		} else {
			corrID = uuid.NewString()
		}
	}

	endpoint := endpointFromURL(url)
	scope := opts.CircuitScope
	if scope == "" {
		scope = DefaultCircuitScope
	}

	if c.debugEnabled() && c.debug.LogRequests {
		c.logger.Debug("Starting request", "correlationID", corrID, "method", method, "url", url, "scope", scope)
	}

	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, endpoint)
		defer c.metrics.RecordRequestEnd(method, endpoint)
	}

	dedupEnabled := c.deduplication != nil && !opts.BypassDeduplication &&
		(opts.ForceDeduplication || c.dedupCondition(method))

	var dedupKey string
	if dedupEnabled {
		dedupKey = c.dedupKeyFunc(method, url, payload)
		entry, owner := c.deduplication.GetOrCreateEntry(dedupKey)
		if !owner {
			resp, werr := entry.Wait(ctx)
			// Settled outcomes are always *ClientError; a bare context
			// error means this waiter was canceled.
			var ce *ClientError
			if werr != nil && !errors.As(werr, &ce) {
				werr = c.canceledError(werr, method, url, corrID, 0, start)
			}
			if c.metrics != nil {
				c.metrics.RecordDeduplicationHit(method, endpoint)
				c.metrics.RecordRequest(method, endpoint, responseStatus(resp), c.clock.Now().Sub(start))
			}
			if c.debugEnabled() && c.debug.LogDeduplication {
				c.logger.Debug("Deduplication hit", "correlationID", corrID, "dedupKey", dedupKey)
			}
			return resp, werr
		}
		if c.debugEnabled() && c.debug.LogDeduplication {
			c.logger.Debug("Deduplication miss, dispatching", "correlationID", corrID, "dedupKey", dedupKey)
		}
	}

	cacheEnabled := c.cache != nil && method == http.MethodGet
	var cacheKey string
	if cacheEnabled {
		cacheKey = DefaultCacheKeyFunc(method, url)
		if entry, found := c.cache.Get(cacheKey); found {
			if c.metrics != nil {
				c.metrics.RecordCacheHit(method, endpoint)
				c.metrics.RecordRequest(method, endpoint, entry.Response.StatusCode, c.clock.Now().Sub(start))
			}
			if dedupEnabled {
				c.deduplication.Complete(dedupKey, entry.Response, nil)
			}
			return entry.Response, nil
		}
		if c.metrics != nil {
			c.metrics.RecordCacheMiss(method, endpoint)
		}
	}

	resp, err := c.execute(ctx, method, url, payload, opts, scope, corrID, endpoint, start)

	if c.metrics != nil {
		c.metrics.RecordRequest(method, endpoint, responseStatus(resp), c.clock.Now().Sub(start))
	}

	if cacheEnabled && err == nil && resp.IsSuccess() {
		c.cache.Set(cacheKey, &CacheEntry{Response: resp}, c.cacheTTL)
	}

	if dedupEnabled {
		c.deduplication.Complete(dedupKey, resp, err)
	}

	return resp, err
}

// execute runs the breaker-gated retry loop around the transport call. The
// breaker is re-checked on every attempt since its state may change between
// attempts.
func (c *Client) execute(ctx context.Context, method, url string, payload []byte, opts *RequestOptions, scope, corrID, endpoint string, start time.Time) (*Response, error) {
	for attempt := 0; ; attempt++ {
		var breaker *CircuitBreaker
		if !opts.BypassCircuitBreaker {
			breaker = c.breakers.Get(scope)
			if !breaker.CanAttempt() {
				if c.debugEnabled() && c.debug.LogCircuit {
					c.logger.Warn("Circuit breaker open", "correlationID", corrID, "scope", scope)
				}
				if c.metrics != nil {
					c.metrics.RecordCircuitOpenDenial(scope)
					c.metrics.RecordError(ErrorTypeCircuitOpen, method, endpoint)
				}
				return nil, c.newError(ErrorTypeCircuitOpen, CodeCircuitOpen,
					"circuit breaker is open for scope "+scope,
					"The video service is temporarily unavailable. Please try again in a minute.",
					nil, method, url, corrID, 0, attempt, start)
			}
		}

		if c.rateLimiter != nil {
			if !c.rateLimiter.Allow() {
				if c.debugEnabled() && c.debug.LogRateLimit {
					c.logger.Warn("Rate limit exceeded", "correlationID", corrID, "endpoint", endpoint)
				}
				if c.metrics != nil {
					c.metrics.RecordRateLimitRejection(method, endpoint)
					c.metrics.RecordError(ErrorTypeRateLimit, method, endpoint)
				}
				return nil, c.newError(ErrorTypeRateLimit, CodeRateLimited,
					"rate limit exceeded",
					"Too many requests right now. Please wait a moment and try again.",
					nil, method, url, corrID, 0, attempt, start)
			}
			if c.metrics != nil {
				c.metrics.RecordRateLimiterTokens("default", c.rateLimiter.Tokens())
			}
		}

		if attempt > 0 {
			if c.debugEnabled() && c.debug.LogRetries {
				c.logger.Info("Retry attempt", "correlationID", corrID, "attempt", attempt, "maxRetries", c.maxRetries, "endpoint", endpoint)
			}
			if c.metrics != nil {
				c.metrics.RecordRetry(method, endpoint, attempt)
			}
		}

		var resp *Response
		var terr error
		call := func() {
			resp, terr = c.transportCall(ctx, method, url, payload, opts, corrID)
		}

		if opts.QueueKey != "" && c.queue != nil {
			queuedAt := c.clock.Now()
			if qerr := c.queue.Do(ctx, opts.QueueKey, call); qerr != nil {
				return nil, c.canceledError(qerr, method, url, corrID, attempt, start)
			}
			if c.metrics != nil {
				c.metrics.RecordQueueWait(opts.QueueKey, c.clock.Now().Sub(queuedAt))
				c.metrics.RecordQueueDepth(opts.QueueKey, c.queue.Depth(opts.QueueKey))
			}
		} else {
			call()
		}

		// A caller-initiated cancellation is excluded from both the retry
		// loop and circuit accounting.
		if ctx.Err() != nil {
			return nil, c.canceledError(ctx.Err(), method, url, corrID, attempt, start)
		}

		if terr == nil && resp.StatusCode < 400 {
			if breaker != nil {
				breaker.RecordSuccess()
				if c.metrics != nil {
					c.metrics.RecordCircuitBreakerState(scope, breaker.State())
				}
			}
			if c.debugEnabled() && c.debug.LogRequests {
				c.logger.Debug("Request succeeded", "correlationID", corrID, "statusCode", resp.StatusCode, "attempt", attempt)
			}
			return resp, nil
		}

		status := 0
		if terr == nil {
			status = resp.StatusCode
		}
		cls := c.classify(status, terr)

		if breaker != nil && cls.CountsAgainstCircuit {
			breaker.RecordFailure()
			if c.metrics != nil {
				c.metrics.RecordCircuitBreakerState(scope, breaker.State())
			}
			if c.debugEnabled() && c.debug.LogCircuit {
				c.logger.Warn("Circuit breaker failure recorded", "correlationID", corrID, "scope", scope, "statusCode", status)
			}
		}

		if cls.Transient && !opts.BypassRetry && attempt < c.maxRetries {
			if c.retryBudget != nil && !c.retryBudget.Allow() {
				if c.metrics != nil {
					c.metrics.RecordRetryBudgetExceeded(endpoint)
					c.metrics.RecordError(ErrorTypeRetryBudgetExceeded, method, endpoint)
				}
				return nil, c.newError(ErrorTypeRetryBudgetExceeded, cls.Code,
					"retry budget exceeded",
					"The video service is busy. Please try again shortly.",
					terr, method, url, corrID, status, attempt, start)
			}

			delay := c.retryDelay(resp, attempt)
			if c.debugEnabled() && c.debug.LogRetries {
				c.logger.Info("Scheduling retry", "correlationID", corrID, "attempt", attempt+1, "backoff", delay, "endpoint", endpoint)
			}
			if werr := sleepContext(ctx, delay); werr != nil {
				return nil, c.canceledError(werr, method, url, corrID, attempt, start)
			}
			continue
		}

		if c.metrics != nil {
			errType := ErrorTypeHTTPStatus
			if terr != nil {
				errType = ErrorTypeTransport
			}
			c.metrics.RecordError(errType, method, endpoint)
		}
		return nil, c.classifiedError(cls, status, terr, method, url, corrID, attempt, start)
	}
}

// transportCall performs one network attempt with the per-attempt timeout.
func (c *Client) transportCall(ctx context.Context, method, url string, payload []byte, opts *RequestOptions, corrID string) (*Response, error) {
	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if len(payload) > 0 {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(CorrelationIDHeader, corrID)
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	httpResp, err := c.executeMiddleware(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       body,
	}, nil
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}
	return current.RoundTrip(req)
}

// retryDelay prefers a server-supplied Retry-After for 429/503, otherwise
// exponential backoff. attempt is zero-based, so the first retry waits the
// initial backoff.
func (c *Client) retryDelay(resp *Response, attempt int) time.Duration {
	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
		if delay := parseRetryAfter(resp.Header.Get("Retry-After")); delay > 0 {
			return delay
		}
	}
	return backoff.Exponential(attempt, c.initialBackoff, c.maxBackoff, c.backoffMultiplier, c.jitter)
}

// parseRetryAfter parses a Retry-After header value, supporting both
// delay-seconds and HTTP-date formats, capped at one hour.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			delay := time.Duration(seconds) * time.Second
			if delay > time.Hour {
				delay = time.Hour
			}
			return delay
		}
		return 0
	}
	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}
	return 0
}

// CircuitState returns the current state of the breaker for scope.
func (c *Client) CircuitState(scope string) CircuitState {
	if scope == "" {
		scope = DefaultCircuitScope
	}
	return c.breakers.Get(scope).State()
}

// ResetCircuit forces the breaker for scope back to CLOSED and clears its
// persisted record.
func (c *Client) ResetCircuit(scope string) {
	if scope == "" {
		scope = DefaultCircuitScope
	}
	c.breakers.Get(scope).Reset()
}

// ClearDeduplicationCache drops pending deduplication entries: the named
// keys, or all of them when none are given.
func (c *Client) ClearDeduplicationCache(keys ...string) {
	if c.deduplication == nil {
		return
	}
	if len(keys) == 0 {
		c.deduplication.ClearAll()
		return
	}
	for _, key := range keys {
		c.deduplication.Clear(key)
	}
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func (c *Client) debugEnabled() bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil
}

func (c *Client) newError(errType, code, message, userMessage string, cause error, method, url, corrID string, statusCode, attempt int, start time.Time) *ClientError {
	now := c.clock.Now()
	return &ClientError{
		Type:          errType,
		Code:          code,
		Message:       message,
		UserMessage:   userMessage,
		Cause:         cause,
		CorrelationID: corrID,
		Method:        method,
		URL:           url,
		StatusCode:    statusCode,
		Attempt:       attempt,
		MaxRetries:    c.maxRetries,
		Timestamp:     now,
		Duration:      now.Sub(start),
	}
}

func (c *Client) canceledError(cause error, method, url, corrID string, attempt int, start time.Time) *ClientError {
	return c.newError(ErrorTypeCanceled, CodeCanceled,
		"request canceled by caller",
		"The request was canceled.",
		cause, method, url, corrID, 0, attempt, start)
}

func (c *Client) classifiedError(cls Classification, statusCode int, cause error, method, url, corrID string, attempt int, start time.Time) *ClientError {
	errType := ErrorTypeHTTPStatus
	message := "request failed with status " + strconv.Itoa(statusCode)
	if cause != nil {
		errType = ErrorTypeTransport
		message = "transport request failed"
	}
	return c.newError(errType, cls.Code, message, cls.UserMessage, cause, method, url, corrID, statusCode, attempt, start)
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(body)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func responseStatus(resp *Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func endpointFromURL(rawURL string) string {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}
	return builder.String()
}
