package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/whispr-campus/whispr/internal/middleware"
)

// decodeErrorBody parses the recorded body as the standard error envelope.
func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestWriteError_Envelope(t *testing.T) {
	tests := []struct {
		code    string
		status  int
		message string
	}{
		{ErrCodeValidation, http.StatusBadRequest, "min_rating must be between 1 and 5"},
		{ErrCodeAuthFailed, http.StatusUnauthorized, "Authentication required"},
		{ErrCodeNotFound, http.StatusNotFound, "Review not found"},
		{ErrCodeRateLimited, http.StatusTooManyRequests, "Too many requests"},
		{ErrCodeForbidden, http.StatusForbidden, "Access denied"},
		{ErrCodeConflict, http.StatusConflict, "Review already exists"},
		{ErrCodeBadRequest, http.StatusBadRequest, "Malformed request"},
		{ErrCodeInternal, http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, context.Background(), tt.status, tt.code, tt.message)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
				t.Errorf("Content-Type = %s, want application/json", ct)
			}
			resp := decodeErrorBody(t, w)
			if resp.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.code)
			}
			if resp.Error.Message != tt.message {
				t.Errorf("message = %q, want %q", resp.Error.Message, tt.message)
			}
		})
	}
}

func TestWriteError_ExactJSONShape(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, context.Background(), http.StatusBadRequest, ErrCodeValidation, "limit must be between 1 and 100")

	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(raw) != 1 {
		t.Errorf("expected a single top-level error key, got %v", raw)
	}
	errObj, ok := raw["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error to be an object, got %T", raw["error"])
	}
	if len(errObj) != 2 {
		t.Errorf("expected exactly code and message, got %v", errObj)
	}
}

func TestWriteError_SpecialCharacters(t *testing.T) {
	msg := `query "os & networks" <deep>`
	w := httptest.NewRecorder()
	WriteError(w, context.Background(), http.StatusBadRequest, ErrCodeValidation, msg)

	if resp := decodeErrorBody(t, w); resp.Error.Message != msg {
		t.Errorf("message not preserved through encoding: %q", resp.Error.Message)
	}
}

// TestWriteError_LogsErrorCode drives WriteError through the logging
// middleware and checks that the code lands in the WARN access log entry.
func TestWriteError_LogsErrorCode(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "query is required")
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var entry struct {
		Level     string `json:"level"`
		Status    int    `json:"status"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry %q: %v", buf.String(), err)
	}
	if entry.Level != "WARN" {
		t.Errorf("log level = %s, want WARN for 4xx", entry.Level)
	}
	if entry.Status != http.StatusBadRequest {
		t.Errorf("logged status = %d, want 400", entry.Status)
	}
	if entry.ErrorCode != ErrCodeValidation {
		t.Errorf("logged error_code = %s, want %s", entry.ErrorCode, ErrCodeValidation)
	}
}

// TestWriteError_LogsRequestID checks that a client-supplied request id is
// attached to the same log entry as the error code.
func TestWriteError_LogsRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := middleware.RequestID(
		middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid token")
		})),
	)

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("X-Request-ID", "req-feed-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	var entry struct {
		RequestID string `json:"request_id"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry.RequestID != "req-feed-42" {
		t.Errorf("request_id = %s, want req-feed-42", entry.RequestID)
	}
	if entry.ErrorCode != ErrCodeAuthFailed {
		t.Errorf("error_code = %s, want %s", entry.ErrorCode, ErrCodeAuthFailed)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeAuthFailed, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"unheard_of", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusCodeMapping(tt.code); got != tt.want {
			t.Errorf("StatusCodeMapping(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
