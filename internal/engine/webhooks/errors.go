package webhooks

import (
	"errors"
	"net/http"
)

var (
	ErrMissingCredential     = errors.New("webhooks: missing credential")
	ErrWebhookNotFound       = errors.New("webhooks: webhook not found")
	ErrSecretUnavailable     = errors.New("webhooks: secret unavailable")
	ErrAuthenticationFailed  = errors.New("webhooks: authentication failed")
	ErrInvalidPayload        = errors.New("webhooks: invalid payload")
	ErrUsageLimitExceeded    = errors.New("webhooks: usage limit exceeded")
	ErrRegistryUnavailable   = errors.New("webhooks: registry unavailable")
	ErrPlatformNotConfigured = errors.New("webhooks: platform not configured")
	ErrInvalidRequest        = errors.New("webhooks: invalid request")
)

// RejectionError records where in the verification flow a call was rejected.
// Detail is for operators only and must not be sent to the caller.
type RejectionError struct {
	State  State
	Err    error
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(state State, err error, detail string) *RejectionError {
	return &RejectionError{State: state, Err: err, Detail: detail}
}

// StatusFor maps an error from this package to the HTTP status returned to callers.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingCredential), errors.Is(err, ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, ErrWebhookNotFound), errors.Is(err, ErrPlatformNotConfigured):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUsageLimitExceeded):
		return http.StatusTooManyRequests
	}
	// Secret, registry and configuration failures all surface as 500.
	return http.StatusInternalServerError
}
