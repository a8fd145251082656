package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to HTTP status codes; use errors.Is against these.
var (
	// ErrValidation indicates missing or malformed client input.
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication indicates missing or wrong credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrConflict indicates a duplicate unique key.
	ErrConflict = errors.New("conflict")
	// ErrAuthorization indicates a known identity without sufficient rights.
	ErrAuthorization = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidToken indicates a bearer token that failed verification or was revoked.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInternal indicates a failure the client cannot fix.
	ErrInternal = errors.New("internal error")
)

// Error carries a client-facing message alongside its kind.
type Error struct {
	Kind    error
	Message string
}

// NewError builds an Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// UserSafeMessage returns the message that may be shown to clients for err.
func UserSafeMessage(err error) string {
	if errors.Is(err, ErrInternal) {
		return "Internal Server Error"
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "Invalid request"
	case errors.Is(err, ErrAuthentication):
		return "Unauthorized"
	case errors.Is(err, ErrInvalidToken):
		return "Invalid token"
	case errors.Is(err, ErrAuthorization):
		return "Forbidden"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrConflict):
		return "Already exists"
	}
	return "Internal Server Error"
}

// Internal wraps cause as an ErrInternal so it maps to a 500 while keeping the
// original error available for logging.
func Internal(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, cause)
}
