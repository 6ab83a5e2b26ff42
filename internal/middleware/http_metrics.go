package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

var staticRoutes = map[string]struct{}{
	"/":             {},
	"/search":       {},
	"/feed":         {},
	"/feed/stats":   {},
	"/health":       {},
	"/health/ready": {},
	"/metrics":      {},
}

// normalizePath collapses id segments so metric cardinality stays bounded.
// /courses/8f3a becomes /courses/{id}; unknown paths pass through unchanged
// so a new route still shows up in dashboards before this table learns it.
func normalizePath(path string) string {
	if _, ok := staticRoutes[path]; ok {
		return path
	}
	for _, prefix := range []string{"/courses/", "/professors/"} {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if rest := path[len(prefix):]; rest != "" && !strings.Contains(rest, "/") {
			return prefix + "{id}"
		}
	}
	return path
}

// metricsResponseWriter captures status and bytes written for recording.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// HTTPMetrics records duration, count, and sizes for every request except
// the kubelet health probes, which would dominate the series otherwise.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/health/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			mrw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			var requestSize int64
			if cl := r.Header.Get("Content-Length"); cl != "" {
				if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
					requestSize = n
				}
			}

			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				requestSize,
				mrw.size,
			)
		})
	}
}
