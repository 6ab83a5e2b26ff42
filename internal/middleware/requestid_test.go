package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	t.Run("mints a UUID when absent", func(t *testing.T) {
		var ctxID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID = GetRequestID(r.Context())
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search", nil))

		if ctxID == "" {
			t.Fatal("expected a request id in the handler context")
		}
		if _, err := uuid.Parse(ctxID); err != nil {
			t.Errorf("generated id %q is not a UUID: %v", ctxID, err)
		}
		if got := rr.Header().Get(RequestIDHeader); got != ctxID {
			t.Errorf("response header %q does not match context id %q", got, ctxID)
		}
	})

	t.Run("keeps a client-supplied id", func(t *testing.T) {
		var ctxID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/feed", nil)
		req.Header.Set(RequestIDHeader, "gateway-7f3a")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if ctxID != "gateway-7f3a" {
			t.Errorf("context id = %q, want gateway-7f3a", ctxID)
		}
		if got := rr.Header().Get(RequestIDHeader); got != "gateway-7f3a" {
			t.Errorf("response header = %q, want gateway-7f3a", got)
		}
	})
}

func TestRequestID_ReplacesMalformedIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"newline injection", "req-1\nlevel=ERROR forged"},
		{"shell characters", "req@#$%"},
		{"oversized", strings.Repeat("a", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/search?q=statistics", nil)
			req.Header.Set(RequestIDHeader, tt.id)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			got := rr.Header().Get(RequestIDHeader)
			if got == tt.id {
				t.Fatalf("malformed id %q was kept", tt.id)
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("replacement id %q is not a UUID: %v", got, err)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("GetRequestID on bare context = %q, want empty", id)
	}
}
