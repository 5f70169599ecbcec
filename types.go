package auraclient

import (
	"encoding/json"
	"net/http"
	"time"
)

// CircuitState represents the state of a circuit breaker scope.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// String returns the canonical name of the state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenDuration     time.Duration
}

// CircuitRecord is the durable snapshot of one circuit scope. It is written
// wholesale on every transition and read once when the scope is first used.
// NextAttemptAt and LastUpdated are epoch milliseconds.
type CircuitRecord struct {
	ScopeKey      string       `json:"scopeKey"`
	State         CircuitState `json:"state"`
	FailureCount  int          `json:"failureCount"`
	SuccessCount  int          `json:"successCount"`
	NextAttemptAt int64        `json:"nextAttemptAt"`
	LastUpdated   int64        `json:"lastUpdated"`
}

// Response is the settled outcome of one logical request. The body is fully
// read so the same value can be handed to every deduplication waiter.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RequestOptions customizes a single logical call issued through the client.
// The zero value uses the client defaults.
type RequestOptions struct {
	// BypassCircuitBreaker skips breaker gating and accounting entirely.
	// Health probes use this so recovery can be detected while open.
	BypassCircuitBreaker bool

	// BypassRetry disables the retry loop; the first classification is final.
	BypassRetry bool

	// BypassDeduplication opts a mutating call out of in-flight coalescing.
	BypassDeduplication bool

	// ForceDeduplication opts a read into coalescing. Duplicate reads are
	// harmless so they are not coalesced by default.
	ForceDeduplication bool

	// QueueKey routes the call through the rate-limited queue lane for the
	// key. Empty means no queueing.
	QueueKey string

	// CircuitScope selects the breaker partition. Empty means DefaultCircuitScope.
	CircuitScope string

	// Timeout overrides the client-wide per-attempt timeout when positive.
	Timeout time.Duration

	// CorrelationID is propagated across every retry of this call. Generated
	// when empty.
	CorrelationID string

	// Header entries are added to the outgoing request.
	Header http.Header
}

// Clock is the time source used by the breaker, queue and staleness checks.
// Injectable so recovery windows can be simulated in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Middleware wraps the transport for cross-cutting concerns such as
// attaching bearer credentials.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// ClassifierFunc maps a raw outcome (status code, transport error) to its
// semantic classification.
type ClassifierFunc func(statusCode int, err error) Classification

// Option represents a configuration option.
type Option func(*Client)

// DefaultCircuitScope is the breaker partition used when a call does not
// name one.
const DefaultCircuitScope = "global"

// CorrelationIDHeader carries the correlation id to the backend.
const CorrelationIDHeader = "X-Correlation-Id"
