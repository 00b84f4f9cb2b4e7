package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAuthenticated means there are no usable credentials and OAuth must be re-run.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotInitialized means a session has no capabilities or credentials loaded.
	ErrNotInitialized = errors.New("session not initialized")
	// ErrLLMUnavailable means the chat-completion call failed or returned an unusable shape.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrValidation covers malformed input such as a bad OAuth state or a missing argument.
	ErrValidation = errors.New("validation failed")
)

// RemoteAPIError is returned when the job-board API rejects a call.
type RemoteAPIError struct {
	Operation string
	Status    int
	Detail    string
}

// Error implements the error interface.
func (e *RemoteAPIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Operation, e.Status, e.Detail)
}

// IsAuthRejection reports whether the remote side refused the access token.
func (e *RemoteAPIError) IsAuthRejection() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsAuthRejection reports whether err wraps a RemoteAPIError with an auth status.
func IsAuthRejection(err error) bool {
	var apiErr *RemoteAPIError
	return errors.As(err, &apiErr) && apiErr.IsAuthRejection()
}

// Validationf builds an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
