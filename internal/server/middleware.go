package server

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// statusRecorder remembers the status a handler wrote for the request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// corsMiddleware answers preflights, sets the CORS headers and records the
// request count and latency per endpoint.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.corsOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Max-Age", "86400")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(sr, r)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sr.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	}
}

// rateLimitMiddleware takes a token from the client's bucket; it is a no-op
// when limiting is disabled.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	if s.rateLimiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.rateLimiter.Allow(getClientIP(r)); err != nil {
			rateLimitHits.Inc()
			s.handleRateLimitError(w, err)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRateLimitError(w http.ResponseWriter, err error) {
	var limited *RateLimitError
	if !errors.As(err, &limited) {
		s.writeErrorResponse(w, "internal_error", "Rate limiting check failed", http.StatusInternalServerError)
		return
	}
	retry := int(math.Ceil(limited.RetryAfter.Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limited.Limit, 'g', -1, 64))
	s.writeErrorResponse(w, "rate_limit_exceeded", limited.Error(), http.StatusTooManyRequests)
}

// getClientIP keys rate limiting: the first X-Forwarded-For hop, then
// X-Real-IP, then the connection's address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
