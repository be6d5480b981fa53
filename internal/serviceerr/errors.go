// Package serviceerr defines the error taxonomy of the service. Failures
// are values carrying a machine-readable code and a human-readable
// description, never panics.
package serviceerr

import "net/http"

// Code is a machine-readable error kind, reported verbatim in the
// "error" field of error response bodies.
type Code string

const (
	CodeInvalidRequest      Code = "invalid_request"
	CodeInvalidCredentials  Code = "invalid_credentials"
	CodeProviderUnavailable Code = "provider_unavailable"
	CodeStateMismatch       Code = "state_mismatch"
	CodeNoPendingResult     Code = "no_pending_result"
	CodeUnauthorized        Code = "unauthorized"
	CodeNotFound            Code = "not_found"
	CodeUnknown             Code = "unknown"
)

type Error struct {
	Err         Code
	Description string
}

var (
	ErrUnknown             = &Error{Err: CodeUnknown, Description: "unknown error"}
	ErrNotFound            = &Error{Err: CodeNotFound, Description: "not found"}
	ErrInvalidRequest      = &Error{Err: CodeInvalidRequest}
	ErrUnauthorized        = &Error{Err: CodeUnauthorized, Description: "authentication required"}
	ErrInvalidCredentials  = &Error{Err: CodeInvalidCredentials, Description: "invalid username or password"}
	ErrProviderUnavailable = &Error{Err: CodeProviderUnavailable, Description: "identity provider unreachable"}
	ErrStateMismatch       = &Error{Err: CodeStateMismatch, Description: "state parameter does not match the pending handshake"}
	ErrNoPendingResult     = &Error{Err: CodeNoPendingResult, Description: "no authentication result is pending for this session"}
)

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

// WithDescription returns a copy of the error carrying the given
// description, keeping the original sentinel untouched.
func (e *Error) WithDescription(description string) *Error {
	return &Error{Err: e.Err, Description: description}
}

// Is makes errors.Is match any *Error with the same code, so sentinel
// comparisons keep working on errors returned by WithDescription.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Err == other.Err
}

func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest, CodeStateMismatch, CodeNoPendingResult:
		return http.StatusBadRequest
	case CodeInvalidCredentials, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeProviderUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
