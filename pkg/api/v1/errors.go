package v1

import "errors"

// Common API errors.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrTimeout        = errors.New("operation timed out")
	ErrUnavailable    = errors.New("service unavailable")
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}
