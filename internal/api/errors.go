package api

import (
	"errors"
	"net/http"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/service"
	"github.com/cardforge/cardforge-api/internal/service/auth"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrDeckNotFound):
		return http.StatusNotFound

	// Lifecycle conflicts
	case errors.Is(err, service.ErrCancelProcessing),
		errors.Is(err, service.ErrJobAlreadyFinished),
		errors.Is(err, service.ErrJobNotRetryable):
		return http.StatusConflict

	// Submission limits
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, service.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType

	case errors.Is(err, service.ErrTooManyActiveJobs):
		return http.StatusTooManyRequests

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidOptions),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error. Known sentinels carry messages already written for users;
// anything else collapses to a generic message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	known := []error{
		service.ErrJobNotFound,
		service.ErrDeckNotFound,
		service.ErrFileTooLarge,
		service.ErrUnsupportedFileType,
		service.ErrTooManyActiveJobs,
		service.ErrCancelProcessing,
		service.ErrJobAlreadyFinished,
		service.ErrJobNotRetryable,
	}
	for _, sentinel := range known {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"
	case errors.Is(err, domain.ErrInvalidOptions):
		return "Invalid processing options"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidID):
		return "Invalid request data"
	default:
		return "An unexpected error occurred"
	}
}
