// Package apperr defines the error taxonomy shared by all services.
// Controllers translate these into HTTP responses in one place.
package apperr

import "fmt"

// ValidationError indicates a missing or malformed field in a request.
// The operation was not attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AuthError indicates a missing or invalid session context or webhook
// secret. No side effects were performed.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

// UpstreamError indicates the bot-control provider or the completion
// proxy failed. Op names the remote operation for logs.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func Upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// InternalError indicates an unexpected failure in reduction or
// aggregation logic.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal: %v", e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
