// Package api provides the HTTP handlers and the shared error envelope.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/whispr-campus/whispr/internal/middleware"
)

// Error codes carried in the response envelope and logged by the request
// middleware on 4xx/5xx responses.
const (
	ErrCodeValidation  = "validation_error"
	ErrCodeAuthFailed  = "auth_failed"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeInternal    = "internal_error"
	ErrCodeForbidden   = "forbidden"
	ErrCodeConflict    = "conflict"
	ErrCodeBadRequest  = "bad_request"
)

// codeStatus maps error codes to their HTTP status.
var codeStatus = map[string]int{
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeAuthFailed:  http.StatusUnauthorized,
	ErrCodeNotFound:    http.StatusNotFound,
	ErrCodeRateLimited: http.StatusTooManyRequests,
	ErrCodeForbidden:   http.StatusForbidden,
	ErrCodeConflict:    http.StatusConflict,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInternal:    http.StatusInternalServerError,
}

// StatusCodeMapping returns the HTTP status for an error code. Unknown codes
// map to 500.
func StatusCodeMapping(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the wire shape of every API error:
// {"error": {"code": "...", "message": "..."}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail holds the machine-readable code and the human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes the JSON error envelope with the given status. Callers
// that want the code to appear in the access log set it on the context first:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeValidation)
//	api.WriteError(w, ctx, http.StatusBadRequest, api.ErrCodeValidation, "query is required")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	// Propagate the error code to the logging middleware's response context.
	middleware.UpdateResponseContext(w, ctx)

	body, err := json.Marshal(ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}
