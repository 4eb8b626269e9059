package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired means the backend rejected our credentials; the caller
// should route the user back through login rather than retry.
var ErrSessionExpired = errors.New("session expired")

// ErrNotFound maps 404 responses.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx backend response. Transient-ness drives the
// retry affordance in the UI: server-side and rate-limit failures are worth
// retrying, client errors are not.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: http %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: http %d", e.Op, e.Status)
}

// Retryable reports whether the failure is transient.
func (e *StatusError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// TransportError wraps a network-level failure (connection refused, timeout).
// Always retryable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Retryable() bool {
	return true
}

// IsRetryable reports whether err (anywhere in its chain) is a transient
// failure the user may simply retry.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
