// Package upstream provides the shared plumbing for talking to the quote
// provider: session handshake, rate gating, retry with backoff, and response
// classification.
package upstream

import (
	"errors"
	"fmt"
)

// AuthError indicates a session handshake failure. No resource can be
// fetched without a valid bundle, so this is fatal to a whole aggregation.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// ThrottledError indicates the upstream is rate limiting us. The provider
// signals this with HTTP 429 or with a "too many requests" notice inside an
// otherwise successful response body. It is the only error the retrier
// treats as transient and it never surfaces to a client directly.
type ThrottledError struct {
	Op string
}

func (e *ThrottledError) Error() string {
	return "upstream throttled: " + e.Op
}

// UpstreamError indicates a non-2xx or unusable upstream response. Fatal to
// the one resource being fetched, never to the whole aggregation.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil && e.Status > 0:
		return fmt.Sprintf("upstream %s: status %d: %v", e.Op, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("upstream %s: status %d", e.Op, e.Status)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NotFoundError indicates the upstream has no data for the entity.
// Maps to HTTP 404 on single-resource endpoints.
type NotFoundError struct {
	Kind   string
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s data for %s", e.Kind, e.Symbol)
}

// IsThrottled reports whether err is (or wraps) a throttling signal.
func IsThrottled(err error) bool {
	var te *ThrottledError
	return errors.As(err, &te)
}

// IsNotFound reports whether err is (or wraps) a no-data signal.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsAuth reports whether err is (or wraps) a handshake failure.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
