package serviceerr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name        string
		err         *serviceerr.Error
		expectedMsg string
	}{
		{
			name:        "Error with description",
			err:         &serviceerr.Error{Err: serviceerr.CodeNotFound, Description: "session not found"},
			expectedMsg: "not_found: session not found",
		},
		{
			name:        "Error without description",
			err:         &serviceerr.Error{Err: serviceerr.CodeInvalidRequest, Description: ""},
			expectedMsg: "invalid_request",
		},
		{
			name:        "Predefined error - ErrUnknown",
			err:         serviceerr.ErrUnknown,
			expectedMsg: "unknown: unknown error",
		},
		{
			name:        "Predefined error - ErrStateMismatch",
			err:         serviceerr.ErrStateMismatch,
			expectedMsg: "state_mismatch: state parameter does not match the pending handshake",
		},
		{
			name:        "Predefined error - ErrNoPendingResult",
			err:         serviceerr.ErrNoPendingResult,
			expectedMsg: "no_pending_result: no authentication result is pending for this session",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
		})
	}
}

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code               serviceerr.Code
		expectedHTTPStatus int
	}{
		{serviceerr.CodeInvalidRequest, http.StatusBadRequest},
		{serviceerr.CodeStateMismatch, http.StatusBadRequest},
		{serviceerr.CodeNoPendingResult, http.StatusBadRequest},
		{serviceerr.CodeInvalidCredentials, http.StatusUnauthorized},
		{serviceerr.CodeUnauthorized, http.StatusUnauthorized},
		{serviceerr.CodeNotFound, http.StatusNotFound},
		{serviceerr.CodeProviderUnavailable, http.StatusBadGateway},
		{serviceerr.CodeUnknown, http.StatusInternalServerError},
		{serviceerr.Code("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := &serviceerr.Error{Err: tt.code}
			assert.Equal(t, tt.expectedHTTPStatus, err.HTTPStatus())
		})
	}
}

func TestError_Is(t *testing.T) {
	t.Run("matches sentinel after WithDescription", func(t *testing.T) {
		err := serviceerr.ErrInvalidCredentials.WithDescription("Incorrect username or password.")
		assert.ErrorIs(t, err, serviceerr.ErrInvalidCredentials)
		assert.NotErrorIs(t, err, serviceerr.ErrProviderUnavailable)
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("authenticating user: %w", serviceerr.ErrStateMismatch)

		var serviceErr *serviceerr.Error
		assert.ErrorIs(t, err, serviceerr.ErrStateMismatch)
		assert.True(t, errors.As(err, &serviceErr))
		assert.Equal(t, serviceerr.CodeStateMismatch, serviceErr.Err)
	})
}
