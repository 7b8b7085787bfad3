package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/service"
	"github.com/cardforge/cardforge-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"job not found", service.ErrJobNotFound, http.StatusNotFound},
		{"deck not found", service.ErrDeckNotFound, http.StatusNotFound},
		{"cancel processing", service.ErrCancelProcessing, http.StatusConflict},
		{"already finished", service.ErrJobAlreadyFinished, http.StatusConflict},
		{"not retryable", service.ErrJobNotRetryable, http.StatusConflict},
		{"file too large", service.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"unsupported type", service.ErrUnsupportedFileType, http.StatusUnsupportedMediaType},
		{"too many jobs", service.ErrTooManyActiveJobs, http.StatusTooManyRequests},
		{"invalid options", domain.ErrInvalidOptions, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestMapErrorToStatusCodeUnwrapsWrappedErrors(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("submit: %w", service.ErrTooManyActiveJobs)
	assert.Equal(t, http.StatusTooManyRequests, MapErrorToStatusCode(wrapped))

	svcErr := service.NewJobServiceError("cancel_job", "cancel failed", service.ErrCancelProcessing)
	assert.Equal(t, http.StatusConflict, MapErrorToStatusCode(svcErr))
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t,
		service.ErrJobNotFound.Error(),
		GetSafeErrorMessage(fmt.Errorf("lookup: %w", service.ErrJobNotFound)))

	// Internal details must never leak through the safe message.
	leaky := errors.New("pq: connection to postgres://user:pw@host failed")
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(leaky))
}
