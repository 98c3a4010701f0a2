package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"byund.io/internal/obs"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	obs.InitLogger(obs.LogOptions{Output: &buf})
	t.Cleanup(func() { obs.InitLogger(obs.LogOptions{}) })
	return &buf
}

func TestRateLimitExceeded(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequestID(RateLimit(base, 1, 1, nil))

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req.Clone(context.Background()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req.Clone(context.Background()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	assert.NotEmpty(t, rr2.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &body))
	assert.Equal(t, "rate limit exceeded", body["error"])
	assert.NotEmpty(t, body["request_id"])

	// A different client has its own bucket.
	other := req.Clone(context.Background())
	other.RemoteAddr = "10.0.0.2:1234"
	rr3 := httptest.NewRecorder()
	handler.ServeHTTP(rr3, other)
	assert.Equal(t, http.StatusOK, rr3.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "has space")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.NotEqual(t, "has space", seen)
	assert.Len(t, seen, 36)
}

func TestLoggingJSONEmitsStructuredEntry(t *testing.T) {
	buf := captureLogs(t)

	handler := RequestID(LoggingJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/log-test", nil)
	req.Header.Set("User-Agent", "middleware-test")
	req.RemoteAddr = "127.0.0.1:1234"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	for _, key := range []string{"time", "level", "msg", "request_id", "method", "path", "status", "duration_ms"} {
		assert.Contains(t, entry, key)
	}
	assert.Equal(t, "request_complete", entry["msg"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "warning", entry["level"])
}

func TestRecovererReturnsJSON500(t *testing.T) {
	captureLogs(t)
	handler := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["error"])
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"listed origin", []string{"https://dash.byund.io"}, "https://dash.byund.io", "https://dash.byund.io"},
		{"unlisted origin", []string{"https://dash.byund.io"}, "https://evil.example", ""},
		{"localhost in dev", nil, "http://localhost:3000", "http://localhost:3000"},
		{"localhost not listed", []string{"https://dash.byund.io"}, "http://localhost:3000", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			CORS(next, tt.allowed).ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}

	pre := httptest.NewRequest(http.MethodOptions, "/", nil)
	rr := httptest.NewRecorder()
	CORS(next, nil).ServeHTTP(rr, pre)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.50 "})
	require.NoError(t, err)

	tests := []struct {
		name    string
		proxies TrustedProxies
		remote  string
		xff     string
		want    string
	}{
		{"no header", proxies, "192.0.2.1:5555", "", "192.0.2.1"},
		{"untrusted peer ignores header", nil, "192.0.2.1:5555", "203.0.113.9", "192.0.2.1"},
		{"untrusted peer with list", proxies, "198.51.100.7:5555", "203.0.113.9", "198.51.100.7"},
		{"trusted peer", proxies, "10.1.2.3:443", "203.0.113.9", "203.0.113.9"},
		{"nearest untrusted hop", proxies, "10.1.2.3:443", "1.1.1.1, 203.0.113.9, 192.0.2.50", "203.0.113.9"},
		{"only trusted hops", proxies, "10.1.2.3:443", "10.9.9.9", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, tt.proxies.ClientIP(req))
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"not-an-ip"})
	require.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	require.Error(t, err)
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimit(base, 1, 1, nil)

	codes := make([]int, 0, 3)
	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		req.Header.Set("X-Forwarded-For", spoofed)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
