package shopify

import (
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// Backoff constants for the default retry policy.
const (
	defaultMaxAttempts = 5
	baseBackoff        = 1 * time.Second
	maxBackoff         = 60 * time.Second
	backoffFactor      = 2.0
	jitterFraction     = 0.25
)

// RetryPolicy decides whether and when a failed request is retried.
// It is an explicit value object so tests can exercise it in isolation
// with a fake clock instead of relying on transport-library defaults.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the initial attempt.
	MaxAttempts int

	// Backoff returns the wait before retry number attempt (0-based).
	Backoff func(attempt int) time.Duration

	// RetryableStatus reports whether an HTTP status code is transient.
	RetryableStatus func(code int) bool
}

// DefaultRetryPolicy returns exponential backoff with ±25% jitter,
// retrying timeouts, throttling, and 5xx responses.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     defaultMaxAttempts,
		Backoff:         expBackoff,
		RetryableStatus: retryableStatus,
	}
}

// expBackoff computes exponential backoff with ±25% jitter.
func expBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// retryableStatus reports whether the given HTTP status code should be
// retried.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
