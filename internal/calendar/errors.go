package calendar

import (
	"errors"
	"fmt"
)

// AuthError signals a missing, expired, or otherwise invalid credential.
// Recovering requires re-running the interactive authorization flow.
type AuthError struct {
	Backend Backend
	Err     error
}

func (e *AuthError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s: authentication failed: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError signals caller-supplied data violating a constraint, for
// example an end time not after the start time. It is always raised before
// any network I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// NotFoundError signals that a referenced event ID does not exist on the
// backend.
type NotFoundError struct {
	EventID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("event %q not found", e.EventID)
}

// RemoteError signals a transport failure or a non-2xx provider response
// that does not map to one of the other kinds. StatusCode is zero for pure
// transport failures.
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("remote error: HTTP %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("remote error: HTTP %d", e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("remote error: %s", e.Message)
	}
	return fmt.Sprintf("remote error: %v", e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient (rate limiting or a
// server-side error) and worth retrying with backoff.
func (e *RemoteError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsRemote reports whether err is a RemoteError.
func IsRemote(err error) bool {
	var e *RemoteError
	return errors.As(err, &e)
}
