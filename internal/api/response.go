package api

// SuccessResponse represents a successful API response
type SuccessResponse struct {
	Ok   bool        `json:"ok"`
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response. Data carries whatever the
// handler returned alongside the error, e.g. the failing health checks.
type ErrorResponse struct {
	Ok        bool        `json:"ok"`
	ErrorCode string      `json:"errorCode"`
	Data      interface{} `json:"data,omitempty"`
}
