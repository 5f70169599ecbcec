package auraclient

import (
	"errors"
	"fmt"
	"time"
)

// Error types carried in ClientError.Type.
const (
	ErrorTypeTransport           = "Transport"
	ErrorTypeHTTPStatus          = "HTTPStatus"
	ErrorTypeCircuitOpen         = "CircuitOpen"
	ErrorTypeCanceled            = "Canceled"
	ErrorTypeValidation          = "Validation"
	ErrorTypeRateLimit           = "RateLimit"
	ErrorTypeRetryBudgetExceeded = "RetryBudgetExceeded"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrCircuitOpen is returned when the circuit breaker denied the attempt.
	// No network call was made.
	ErrCircuitOpen = errors.New("auraclient: circuit open")

	// ErrRateLimited is returned when a request is denied by the token bucket.
	ErrRateLimited = errors.New("auraclient: rate limited")

	// ErrRetryBudgetExceeded is returned when the retry budget is exhausted.
	ErrRetryBudgetExceeded = errors.New("auraclient: retry budget exceeded")

	// ErrCanceled is returned when the caller aborted the call.
	ErrCanceled = errors.New("auraclient: canceled")
)

// ClientError is the error surfaced to callers. Message is technical and
// belongs in logs; UserMessage is display-safe and never carries status
// codes, URLs or other raw detail.
type ClientError struct {
	Type          string
	Code          string
	Message       string
	UserMessage   string
	Cause         error
	CorrelationID string
	Method        string
	URL           string
	StatusCode    int
	Attempt       int
	MaxRetries    int
	Timestamp     time.Time
	Duration      time.Duration
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.CorrelationID != "" {
		msg = fmt.Sprintf("[%s] %s", e.CorrelationID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches either another ClientError of the same type or the sentinel
// corresponding to the type, so errors.Is(err, ErrCircuitOpen) works.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrCircuitOpen:
		return e.Type == ErrorTypeCircuitOpen
	case ErrRateLimited:
		return e.Type == ErrorTypeRateLimit
	case ErrRetryBudgetExceeded:
		return e.Type == ErrorTypeRetryBudgetExceeded
	case ErrCanceled:
		return e.Type == ErrorTypeCanceled
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context for logs.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Code: %s\n", e.Code)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.CorrelationID != "" {
		info += fmt.Sprintf("Correlation ID: %s\n", e.CorrelationID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxRetries)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// IsTransient reports whether an error represents a failure that might
// succeed on retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrRetryBudgetExceeded) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrorTypeTransport, ErrorTypeCircuitOpen, ErrorTypeRateLimit:
			return true
		case ErrorTypeHTTPStatus:
			return clientErr.StatusCode == 408 || clientErr.StatusCode == 429 || clientErr.StatusCode >= 500
		default:
			return false
		}
	}
	return false
}
