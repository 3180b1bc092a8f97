// Package errors defines error types and classification for action chat operations.
package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/janhq/jan-actions/internal/domain/status"
)

// ChatError represents a failure while creating, loading or streaming an action.
type ChatError struct {
	Code     string               `json:"code"`
	Message  string               `json:"message"`
	Severity status.ErrorSeverity `json:"severity"`
	ActionID string               `json:"action_id,omitempty"`
	Cause    error                `json:"-"`
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ChatError) Unwrap() error {
	return e.Cause
}

// Is matches on code so sentinel values work with errors.Is.
func (e *ChatError) Is(target error) bool {
	var t *ChatError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.ActionID == "" && t.Cause == nil
}

// IsRetryable returns true if the operation can be retried.
func (e *ChatError) IsRetryable() bool {
	return e.Severity.IsRetryable()
}

// WithAction attaches the action id.
func (e *ChatError) WithAction(actionID string) *ChatError {
	cp := *e
	cp.ActionID = actionID
	return &cp
}

// Common error codes.
const (
	ErrCodeCreationFailed = "CREATION_FAILED"
	ErrCodeTransport      = "TRANSPORT_ERROR"
	ErrCodeMalformedEvent = "MALFORMED_EVENT"
	ErrCodePrematureEOF   = "PREMATURE_EOF"
	ErrCodeStreamClosed   = "STREAM_CLOSED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeBusy           = "BUSY"
	ErrCodeTemporary      = "TEMPORARY_FAILURE"
	ErrCodeBackend        = "BACKEND_ERROR"
)

// Predefined errors for common scenarios.
var (
	ErrBusy = &ChatError{
		Code:     ErrCodeBusy,
		Message:  "a response is still streaming",
		Severity: status.ErrorSeverityUser,
	}

	ErrStreamClosed = &ChatError{
		Code:     ErrCodeStreamClosed,
		Message:  "stream closed",
		Severity: status.ErrorSeverityUser,
	}

	ErrPrematureEOF = &ChatError{
		Code:     ErrCodePrematureEOF,
		Message:  "stream ended before completion",
		Severity: status.ErrorSeverityRetryable,
	}

	ErrUnauthorized = &ChatError{
		Code:     ErrCodeUnauthorized,
		Message:  "login required",
		Severity: status.ErrorSeverityUser,
	}
)

// Wrap wraps an error with a code and severity.
func Wrap(err error, code, message string, severity status.ErrorSeverity) *ChatError {
	return &ChatError{
		Code:     code,
		Message:  message,
		Severity: severity,
		Cause:    err,
	}
}

// WrapTransport wraps a stream transport failure.
func WrapTransport(err error) *ChatError {
	return Wrap(err, ErrCodeTransport, "stream transport failed", status.ErrorSeverityRetryable)
}

// WrapMalformed wraps an undecodable stream payload.
func WrapMalformed(err error) *ChatError {
	return Wrap(err, ErrCodeMalformedEvent, "malformed stream event", status.ErrorSeverityFatal)
}

// Classify determines the severity of an error.
func Classify(err error) status.ErrorSeverity {
	if err == nil {
		return ""
	}

	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Severity
	}

	if errors.Is(err, context.Canceled) {
		return status.ErrorSeverityFatal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return status.ErrorSeverityRetryable
	}

	return status.ErrorSeverityRetryable
}

// Code returns the ChatError code of err, or empty when err is not a ChatError.
func Code(err error) string {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
