// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/operate360/operate360/internal/shared"
)

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInternal):
		return http.StatusInternalServerError
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrConflict):
		// Duplicate registrations are reported as 400.
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrInvalidToken), errors.Is(err, shared.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to a JSON {"message": ...} response.
func RespondError(w http.ResponseWriter, err error) {
	Message(w, StatusFor(err), shared.UserSafeMessage(err))
}
