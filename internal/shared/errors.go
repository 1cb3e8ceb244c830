package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrRunCancelled signals that the user chose to stop the whole run.
var ErrRunCancelled = errors.New("run cancelled by user")

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Status, e.URL)
}

// IsRetryableHTTPError checks if an HTTP error should be retried
func IsRetryableHTTPError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// IsRetryableError reports whether a failed request is worth another
// attempt. Transport failures (refused connections, timeouts) are
// retryable; HTTP status errors only for the throttling and gateway
// statuses; a cancelled or expired context is terminal.
func IsRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return IsRetryableHTTPError(err)
	}
	return true
}

// SourceUnavailableError means the metadata catalog could not be reached or
// answered with a failure status after retries were exhausted.
type SourceUnavailableError struct {
	Query string
	Err   error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("metadata source unavailable for %q: %v", e.Query, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// ParseIncompleteError means the catalog answered but the record lacked a
// required field. The affected group is skipped, not failed.
type ParseIncompleteError struct {
	Ref   string
	Field string
}

func (e *ParseIncompleteError) Error() string {
	return fmt.Sprintf("record %s is missing required field %q", e.Ref, e.Field)
}

// DestinationCollisionError means a task would overwrite an existing file
// and no overwrite approval was given.
type DestinationCollisionError struct {
	Source      string
	Destination string
}

func (e *DestinationCollisionError) Error() string {
	return fmt.Sprintf("destination already exists: %s (moving %s)", e.Destination, e.Source)
}

// WriteFailureError wraps a failed tag write on one file. Sibling files in
// the same group are still attempted.
type WriteFailureError struct {
	Path string
	Err  error
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("failed to write tags to %s: %v", e.Path, e.Err)
}

func (e *WriteFailureError) Unwrap() error { return e.Err }

// ConfigInvalidError means the loaded configuration cannot be used. It is
// fatal before any file is touched.
type ConfigInvalidError struct {
	Path   string
	Reason string
}

func (e *ConfigInvalidError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration in %s: %s", e.Path, e.Reason)
}
