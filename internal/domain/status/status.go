// Package status defines the lifecycle of a stream assembler and error severities.
package status

import "errors"

// Status represents the lifecycle status of a stream assembler.
type Status string

const (
	StatusIdle   Status = "idle"   // Ready to send
	StatusActive Status = "active" // One stream open, composer disabled
	StatusFailed Status = "failed" // Last stream failed, composer re-enabled
	StatusClosed Status = "closed" // Torn down, no further sends
)

// ErrInvalidTransition is returned when a status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// IsTerminal returns true if no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// IsActive returns true while a stream is open.
func (s Status) IsActive() bool {
	return s == StatusActive
}

// CanSend returns true if a new invoke may start from this status.
func (s Status) CanSend() bool {
	return s == StatusIdle || s == StatusFailed
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ValidTransitions defines allowed status transitions.
var ValidTransitions = map[Status][]Status{
	StatusIdle:   {StatusActive, StatusFailed, StatusClosed},
	StatusActive: {StatusIdle, StatusFailed, StatusClosed},
	StatusFailed: {StatusActive, StatusClosed}, // sending again is the retry
	StatusClosed: {},
}

// CanTransitionTo checks if a transition from current status to target status is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to the target status and returns error if invalid.
func (s Status) TransitionTo(target Status) (Status, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}

// ErrorSeverity indicates how an error should be handled.
type ErrorSeverity string

const (
	ErrorSeverityRetryable ErrorSeverity = "retryable" // Retry with backoff
	ErrorSeverityUser      ErrorSeverity = "user"      // Caller must act (login, wait, resend)
	ErrorSeverityFatal     ErrorSeverity = "fatal"     // Give up
)

// String returns the string representation of the error severity.
func (e ErrorSeverity) String() string {
	return string(e)
}

// IsRetryable returns true if the error can be retried.
func (e ErrorSeverity) IsRetryable() bool {
	return e == ErrorSeverityRetryable
}

// IsFatal returns true if the error should not be retried.
func (e ErrorSeverity) IsFatal() bool {
	return e == ErrorSeverityFatal
}
