package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func registeredMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	return m, reg
}

func TestHTTPMetrics_RecordsRequest(t *testing.T) {
	m, reg := registeredMetrics(t)
	body := `{"results":[],"total":0}`
	wrapped := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))

	req := httptest.NewRequest(http.MethodGet, "/search?q=linear+algebra", nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
	if total == nil {
		t.Fatal("http_requests_total not recorded")
	}
	if len(total.GetMetric()) != 1 {
		t.Fatalf("label sets = %d, want 1", len(total.GetMetric()))
	}
	labels := map[string]string{}
	for _, l := range total.GetMetric()[0].GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	if labels["method"] != "GET" || labels["path"] != "/search" || labels["status"] != "200" {
		t.Errorf("labels = %v, want GET /search 200", labels)
	}

	size := gatherFamily(t, reg, MetricHTTPResponseSizeBytes)
	if size == nil {
		t.Fatal("http_response_size_bytes not recorded")
	}
	h := size.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 || h.GetSampleSum() != float64(len(body)) {
		t.Errorf("response size count=%d sum=%v, want 1 and %d",
			h.GetSampleCount(), h.GetSampleSum(), len(body))
	}
}

func TestHTTPMetrics_RequestSizeFromContentLength(t *testing.T) {
	m, reg := registeredMetrics(t)
	wrapped := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	payload := `{"q":"machine learning"}`
	req := httptest.NewRequest(http.MethodGet, "/search", strings.NewReader(payload))
	req.Header.Set("Content-Length", strconv.Itoa(len(payload)))
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	size := gatherFamily(t, reg, MetricHTTPRequestSizeBytes)
	if size == nil {
		t.Fatal("http_request_size_bytes not recorded")
	}
	if sum := size.GetMetric()[0].GetHistogram().GetSampleSum(); sum != float64(len(payload)) {
		t.Errorf("request size sum = %v, want %d", sum, len(payload))
	}
}

func TestHTTPMetrics_HealthProbesExcluded(t *testing.T) {
	for _, path := range []string{"/health", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			m, reg := registeredMetrics(t)
			wrapped := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))

			total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
			if total != nil && len(total.GetMetric()) > 0 {
				t.Errorf("probe %s produced metrics", path)
			}
		})
	}
}

func TestHTTPMetrics_ErrorStatusLabeled(t *testing.T) {
	m, reg := registeredMetrics(t)
	wrapped := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
	if total == nil {
		t.Fatal("http_requests_total not recorded")
	}
	var status string
	for _, l := range total.GetMetric()[0].GetLabel() {
		if l.GetName() == "status" {
			status = l.GetValue()
		}
	}
	if status != "404" {
		t.Errorf("status label = %q, want 404", status)
	}
}

func TestHTTPMetrics_CollapsesCourseIDs(t *testing.T) {
	m, reg := registeredMetrics(t)
	wrapped := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{
		"/courses/123",
		"/courses/456",
		"/courses/550e8400-e29b-41d4-a716-446655440000",
	} {
		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
	if total == nil {
		t.Fatal("http_requests_total not recorded")
	}
	if len(total.GetMetric()) != 1 {
		t.Fatalf("label sets = %d, want 1 after id collapsing", len(total.GetMetric()))
	}
	metric := total.GetMetric()[0]
	for _, l := range metric.GetLabel() {
		if l.GetName() == "path" && l.GetValue() != "/courses/{id}" {
			t.Errorf("path label = %q, want /courses/{id}", l.GetValue())
		}
	}
	if v := metric.GetCounter().GetValue(); v != 3 {
		t.Errorf("counter = %v, want 3", v)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/search", "/search"},
		{"/feed", "/feed"},
		{"/feed/stats", "/feed/stats"},
		{"/health", "/health"},
		{"/health/ready", "/health/ready"},
		{"/metrics", "/metrics"},
		{"/courses/123", "/courses/{id}"},
		{"/courses/550e8400-e29b-41d4-a716-446655440000", "/courses/{id}"},
		{"/professors/abc123", "/professors/{id}"},
		{"/courses/", "/courses/"},
		{"/courses/123/reviews", "/courses/123/reviews"},
		{"/unknown/path", "/unknown/path"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMetricsResponseWriter(t *testing.T) {
	t.Run("accumulates write sizes", func(t *testing.T) {
		mrw := &metricsResponseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
		n1, _ := mrw.Write([]byte("great professor, "))
		n2, _ := mrw.Write([]byte("tough exams"))
		if mrw.size != int64(n1+n2) {
			t.Errorf("size = %d, want %d", mrw.size, n1+n2)
		}
	})

	t.Run("first WriteHeader wins", func(t *testing.T) {
		mrw := &metricsResponseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
		mrw.WriteHeader(http.StatusTooManyRequests)
		mrw.WriteHeader(http.StatusInternalServerError)
		if mrw.statusCode != http.StatusTooManyRequests {
			t.Errorf("statusCode = %d, want 429", mrw.statusCode)
		}
	})

	t.Run("implicit 200 when handler never writes header", func(t *testing.T) {
		m, reg := registeredMetrics(t)
		wrapped := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search", nil))

		total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
		if total == nil {
			t.Fatal("http_requests_total not recorded")
		}
		for _, l := range total.GetMetric()[0].GetLabel() {
			if l.GetName() == "status" && l.GetValue() != "200" {
				t.Errorf("status label = %q, want 200", l.GetValue())
			}
		}
	})
}
