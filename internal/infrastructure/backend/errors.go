package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	chaterrors "github.com/janhq/jan-actions/internal/domain/errors"
)

// APIError is a non-2xx backend response.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Operation, e.StatusCode, e.Message)
}

// Unwrap maps 401 to chaterrors.ErrUnauthorized so callers can prompt a login.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return chaterrors.ErrUnauthorized
	}
	return nil
}

// IsRetryable reports whether a backend call may succeed when repeated:
// network failures, 429 and 5xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	if errors.Is(err, chaterrors.ErrUnauthorized) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
