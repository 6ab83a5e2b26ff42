package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/whispr-campus/whispr/internal/middleware"
)

// HealthChecker reports whether one external dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandlers serves the liveness and readiness probes. Checkers are
// optional: a nil checker means the dependency is not configured for this
// deployment (in-memory repositories, in-memory rate limiting) and reports ok.
type HealthHandlers struct {
	dbChecker      HealthChecker
	redisChecker   HealthChecker
	metricsEnabled bool
}

// HealthHandlersConfig configures the probe handlers.
type HealthHandlersConfig struct {
	DBChecker      HealthChecker
	RedisChecker   HealthChecker
	MetricsEnabled bool
}

// NewHealthHandlers creates the probe handlers.
func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	return &HealthHandlers{
		dbChecker:      config.DBChecker,
		redisChecker:   config.RedisChecker,
		metricsEnabled: config.MetricsEnabled,
	}
}

// HealthResponse is the probe response body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// requireGet rejects every method but GET with the standard error envelope.
func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
	WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	return false
}

func writeProbe(w http.ResponseWriter, statusCode int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode probe response", "error", err)
	}
}

// Health handles GET /health. Liveness only: answering at all means alive.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	writeProbe(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": "ok"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /health/ready. Every configured dependency is probed
// with a shared timeout; any failure flips the whole response to 503 so the
// instance is pulled from rotation until the dependency recovers.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deps := []struct {
		name    string
		checker HealthChecker
	}{
		{"database", h.dbChecker},
		{"redis", h.redisChecker},
	}

	checks := make(map[string]string, len(deps)+1)
	healthy := true
	for _, dep := range deps {
		if dep.checker == nil {
			checks[dep.name] = "ok"
			continue
		}
		if err := dep.checker.HealthCheck(ctx); err != nil {
			checks[dep.name] = "error"
			healthy = false
			slog.WarnContext(ctx, "readiness check failed", "dependency", dep.name, "error", err)
		} else {
			checks[dep.name] = "ok"
		}
	}

	// The Prometheus registry has no failure mode once initialized.
	checks["metrics"] = "ok"

	status, statusCode := "healthy", http.StatusOK
	if !healthy {
		status, statusCode = "unhealthy", http.StatusServiceUnavailable
	}
	writeProbe(w, statusCode, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
