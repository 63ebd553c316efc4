// Package shopify provides an HTTP client for the Shopify Admin REST API
// with explicit retry policy, rate-limit pacing, and error classification.
package shopify

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, shopify.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("shopify: bad request")
	ErrUnauthorized = errors.New("shopify: unauthorized")
	ErrForbidden    = errors.New("shopify: forbidden")
	ErrNotFound     = errors.New("shopify: not found")
	ErrThrottled    = errors.New("shopify: throttled")
	ErrServerError  = errors.New("shopify: server error")
)

// APIError wraps a sentinel error with the HTTP status code, the Shopify
// request ID, and the response body for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("shopify: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("shopify: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
