package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openbuilders/sol-batch-sender/internal/errors"
)

// WithMethod is a middleware that checks if the endpoint was called using a
// specific HTTP method and rejects it otherwise.
func WithMethod(next http.HandlerFunc, method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, fmt.Sprintf("Only %s method is allowed", method), http.StatusMethodNotAllowed)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// WithJSONResponse wraps an APIHandler and handles JSON response formatting
func WithJSONResponse(handler APIHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := handler(w, r)

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			errorResponse := ErrorResponse{Ok: false, Data: data}
			status := http.StatusInternalServerError

			switch e := err.(type) {
			case *APIError:
				errorResponse.ErrorCode = string(e.Code)
				status = e.Status
			case errors.ServiceError:
				errorResponse.ErrorCode = string(e.Code)
				slog.Debug("ServiceError", "error", e, "stack", e.Err)
			default:
				errorResponse.ErrorCode = err.Error()
			}

			slog.Debug("API error", "error", err)

			w.WriteHeader(status)
			if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
				slog.Error("Failed to encode error response", "error", err)
			}
			return
		}

		successResponse := SuccessResponse{
			Ok:   true,
			Data: data,
		}

		if err := json.NewEncoder(w).Encode(successResponse); err != nil {
			http.Error(w, `{"ok": false, "errorCode": "internal_error", "errorDescription": "Failed to encode success response"}`, http.StatusInternalServerError)
			return
		}
	}
}
