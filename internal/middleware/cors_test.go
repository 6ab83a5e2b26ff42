package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const campusOrigin = "https://whispr.campus"

func corsHandler(cfg CORSConfig) http.Handler {
	return CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func readAPICORS() CORSConfig {
	return CORSConfig{
		AllowedOrigins:   []string{campusOrigin, "http://localhost:3000"},
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{
			name:       "allowed origin gets CORS headers",
			cfg:        readAPICORS(),
			method:     http.MethodGet,
			origin:     campusOrigin,
			wantStatus: http.StatusOK,
			wantOrigin: campusOrigin,
		},
		{
			name:       "localhost dev origin allowed",
			cfg:        readAPICORS(),
			method:     http.MethodGet,
			origin:     "http://localhost:3000",
			wantStatus: http.StatusOK,
			wantOrigin: "http://localhost:3000",
		},
		{
			name:       "unknown origin rejected",
			cfg:        readAPICORS(),
			method:     http.MethodGet,
			origin:     "https://evil.example",
			wantStatus: http.StatusForbidden,
			wantOrigin: "",
		},
		{
			name:       "same-origin request passes through",
			cfg:        readAPICORS(),
			method:     http.MethodGet,
			origin:     "",
			wantStatus: http.StatusOK,
			wantOrigin: "",
		},
		{
			name:       "empty allowlist disables CORS",
			cfg:        CORSConfig{},
			method:     http.MethodGet,
			origin:     "https://anywhere.example",
			wantStatus: http.StatusOK,
			wantOrigin: "",
		},
		{
			name:       "preflight from allowed origin",
			cfg:        readAPICORS(),
			method:     http.MethodOptions,
			origin:     campusOrigin,
			wantStatus: http.StatusNoContent,
			wantOrigin: campusOrigin,
		},
		{
			name:       "preflight from unknown origin rejected",
			cfg:        readAPICORS(),
			method:     http.MethodOptions,
			origin:     "https://evil.example",
			wantStatus: http.StatusForbidden,
			wantOrigin: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/search?q=operating+systems", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			corsHandler(tt.cfg).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/feed", nil)
	req.Header.Set("Origin", campusOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	corsHandler(readAPICORS()).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	h := rr.Header()
	if got := h.Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}
	if got := h.Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization, X-Request-ID" {
		t.Errorf("Allow-Headers = %q", got)
	}
	if got := h.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
	if got := h.Get("Access-Control-Max-Age"); got != "300" {
		t.Errorf("Max-Age = %q", got)
	}
}

func TestCORS_NoCredentialsHeaderWhenDisabled(t *testing.T) {
	cfg := readAPICORS()
	cfg.AllowCredentials = false

	req := httptest.NewRequest(http.MethodGet, "/feed/stats", nil)
	req.Header.Set("Origin", campusOrigin)
	rr := httptest.NewRecorder()
	corsHandler(cfg).ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, want unset", got)
	}
}

func TestCORS_WhitespaceOriginsTrimmed(t *testing.T) {
	cfg := readAPICORS()
	cfg.AllowedOrigins = []string{"  " + campusOrigin + "  ", ""}

	req := httptest.NewRequest(http.MethodGet, "/search?q=algorithms", nil)
	req.Header.Set("Origin", campusOrigin)
	rr := httptest.NewRecorder()
	corsHandler(cfg).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != campusOrigin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, campusOrigin)
	}
}
