package server

import (
	"context"
	"time"

	"github.com/MeKo-Tech/omr/internal/common"
	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/template"
)

// Recognizer is the engine surface the server calls.
type Recognizer interface {
	Recognize(ctx context.Context, in engine.Input) (*engine.Output, error)
	RecognizeSecond(ctx context.Context, in engine.SecondInput) (*engine.Output, error)
}

// LayoutFunc returns a recognizer for a layout submitted with a request.
type LayoutFunc func(data []byte, format template.Format) (Recognizer, error)

// CacheLayouts serves request layouts from an engine cache.
func CacheLayouts(c *engine.Cache) LayoutFunc {
	return func(data []byte, format template.Format) (Recognizer, error) {
		e, err := c.Get(data, format)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	engine      Recognizer
	layouts     LayoutFunc
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	rateLimiter *RateLimiter
	version     string
	started     time.Time
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	ShutdownTimeout int
	// RateLimit is the sustained requests per second per client; 0 disables limiting.
	RateLimit float64
	RateBurst int
	Version   string
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string             `json:"status"`
	Version   string             `json:"version,omitempty"`
	Time      string             `json:"time"`
	UptimeSec int64              `json:"uptime_sec"`
	Template  bool               `json:"template_loaded"`
	Memory    common.MemoryStats `json:"memory"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewServer creates a server around rec, the engine of the configured
// layout. rec may be nil when every request brings its own layout.
func NewServer(cfg Config, rec Recognizer, layouts LayoutFunc) *Server {
	s := &Server{
		engine:      rec,
		layouts:     layouts,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		version:     cfg.Version,
		started:     time.Now(),
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if s.timeout <= 0 {
		s.timeout = time.Minute
	}
	if cfg.RateLimit > 0 {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return s
}
