package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by a Client call that reached the
// network wraps exactly one of them; match with errors.Is.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrValidation     = errors.New("validation failed")
	ErrServer         = errors.New("server error")
	ErrNetwork        = errors.New("network error")
)

// APIError describes a failed request.
type APIError struct {
	Kind       error
	StatusCode int // 0 for network failures
	Message    string
	Err        error // underlying transport error, if any
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%v (%d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
}

// Unwrap exposes both the kind and the underlying error.
func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// kindFor maps a non-2xx status code to an error kind.
func kindFor(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthentication
	case http.StatusTooManyRequests:
		return ErrRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return ErrValidation
	default:
		return ErrServer
	}
}
