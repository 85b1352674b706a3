package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqa/internal/platform/metrics"
	"dqa/pkg/platform/middleware/metadata"
	"dqa/pkg/requestcontext"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// =============================================================================
// API key
// =============================================================================

func TestRequireAPIKey(t *testing.T) {
	h := RequireAPIKey("s3cret", []string{"/dqa/docs", "/dqa/openapi", "/metrics"}, discard())(http.HandlerFunc(ok))

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{name: "valid key", path: "/dqa/health", key: "s3cret", status: http.StatusOK},
		{name: "wrong key", path: "/dqa/health", key: "nope", status: http.StatusUnauthorized},
		{name: "missing key", path: "/dqa", status: http.StatusUnauthorized},
		{name: "bearer prefix is not accepted", path: "/dqa", key: "Bearer s3cret", status: http.StatusUnauthorized},
		{name: "docs are public", path: "/dqa/docs", status: http.StatusOK},
		{name: "openapi is public", path: "/dqa/openapi.json", status: http.StatusOK},
		{name: "metrics are public", path: "/metrics", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				r.Header.Set("Authorization", tt.key)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, r)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
}

// =============================================================================
// Request ID, logging and recovery
// =============================================================================

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestLoggerWritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestID(metadata.ClientMetadata(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))))

	r := httptest.NewRequest(http.MethodGet, "/dqa/health", nil)
	r.Header.Set(RequestIDHeader, "req-log")
	r.Header.Set("User-Agent", "dqa-dashboard/1.0")
	h.ServeHTTP(httptest.NewRecorder(), r)

	out := buf.String()
	assert.Contains(t, out, `"msg":"http request"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"path":"/dqa/health"`)
	assert.Contains(t, out, `"request_id":"req-log"`)
	assert.Contains(t, out, `"user_agent":"dqa-dashboard/1.0"`)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	assert.Contains(t, buf.String(), "panic recovered")
}

// =============================================================================
// Latency
// =============================================================================

func TestLatencyMiddlewareLabelsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := chi.NewRouter()
	r.Use(LatencyMiddleware(m))
	r.Get("/dqa/config/{config_name}", ok)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dqa/config/non_acronyms", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight))

	families, err := reg.Gather()
	require.NoError(t, err)
	routes := map[string]string{}
	for _, f := range families {
		if f.GetName() != "dqa_http_request_duration_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			routes[labels["route"]] = labels["status"]
		}
	}
	assert.Equal(t, map[string]string{
		"/dqa/config/{config_name}": "200",
		"unmatched":                 "404",
	}, routes)
}
