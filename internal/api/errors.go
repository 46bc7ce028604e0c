package api

import "net/http"

type APIErrorCode string

const (
	CodeUnhealthy APIErrorCode = "unhealthy"
	CodeNotReady  APIErrorCode = "not_ready"
)

// APIError represents a custom error with a code and the HTTP status it is
// reported with.
type APIError struct {
	Code   APIErrorCode
	Status int
}

var (
	ErrUnhealthy = &APIError{Code: CodeUnhealthy, Status: http.StatusServiceUnavailable}
	ErrNotReady  = &APIError{Code: CodeNotReady, Status: http.StatusServiceUnavailable}
)

// Implement the error interface for APIError
func (e *APIError) Error() string {
	return string(e.Code)
}
