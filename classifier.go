package auraclient

import (
	"context"
	"errors"
	"net"
)

// Classification is the semantic reading of one raw outcome: whether a retry
// might help and whether the failure counts as a backend-health signal.
type Classification struct {
	Transient            bool
	CountsAgainstCircuit bool
	Code                 string
	UserMessage          string
}

// Machine-readable classification codes.
const (
	CodeNetworkError = "NETWORK_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeServerError  = "SERVER_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeClientError  = "CLIENT_ERROR"
	CodeCircuitOpen  = "CIRCUIT_OPEN"
	CodeCanceled     = "CANCELED"
	CodeInvalidInput = "INVALID_INPUT"
)

// DefaultClassify maps a raw outcome to its classification.
//
// The asymmetry is deliberate: 408 and 429 are retried but never counted
// against the circuit (rate limiting and slow requests are not backend-health
// signals), while 5xx and transport failures are retried and counted. Other
// 4xx are neither retried nor counted.
func DefaultClassify(statusCode int, err error) Classification {
	if err != nil {
		// No response at all.
		if isTimeoutError(err) {
			return Classification{
				Transient:            true,
				CountsAgainstCircuit: true,
				Code:                 CodeTimeout,
				UserMessage:          "The video service is taking too long to respond. Please try again.",
			}
		}
		return Classification{
			Transient:            true,
			CountsAgainstCircuit: true,
			Code:                 CodeNetworkError,
			UserMessage:          "We couldn't reach the video service. Check your connection and try again.",
		}
	}

	switch {
	case statusCode == 408:
		return Classification{
			Transient:            true,
			CountsAgainstCircuit: false,
			Code:                 CodeTimeout,
			UserMessage:          "The request timed out. Please try again.",
		}
	case statusCode == 429:
		return Classification{
			Transient:            true,
			CountsAgainstCircuit: false,
			Code:                 CodeRateLimited,
			UserMessage:          "Too many requests right now. Please wait a moment and try again.",
		}
	case statusCode == 504:
		return Classification{
			Transient:            true,
			CountsAgainstCircuit: true,
			Code:                 CodeTimeout,
			UserMessage:          "The video service is taking too long to respond. Please try again.",
		}
	case statusCode >= 500:
		return Classification{
			Transient:            true,
			CountsAgainstCircuit: true,
			Code:                 CodeServerError,
			UserMessage:          "The video service hit a problem. Please try again shortly.",
		}
	case statusCode == 401 || statusCode == 403:
		return Classification{
			Code:        CodeUnauthorized,
			UserMessage: "You are not authorized for this action. Try signing in again.",
		}
	case statusCode == 404:
		return Classification{
			Code:        CodeNotFound,
			UserMessage: "The requested item could not be found.",
		}
	case statusCode >= 400:
		return Classification{
			Code:        CodeClientError,
			UserMessage: "The request could not be processed. Please review and try again.",
		}
	default:
		return Classification{Code: "", UserMessage: ""}
	}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
