package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.CORSOrigin = "https://exam.example"
	s := NewServer(cfg, &fakeRecognizer{}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/recognize", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://exam.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Empty(t, rec.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 2
	s := NewServer(cfg, &fakeRecognizer{}, nil)
	now := time.Unix(1_700_000_000, 0)
	s.rateLimiter.now = func() time.Time { return now }

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/recognize", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	// GET passes the limiter and fails in the handler
	assert.Equal(t, http.StatusMethodNotAllowed, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, call("10.0.0.1").Code)

	rec := call("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "rate_limit_exceeded", decode[ErrorResponse](t, rec).Error)

	// other clients have their own bucket
	assert.Equal(t, http.StatusMethodNotAllowed, call("10.0.0.2").Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusMethodNotAllowed, call("10.0.0.1").Code)
}

func TestHandleRateLimitErrorUnknown(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	rec := httptest.NewRecorder()
	s.handleRateLimitError(rec, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.9:1234", "203.0.113.5"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 203.0.113.6 "}, "10.0.0.9:1234", "203.0.113.6"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.9:1234", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.2", "192.0.2.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
