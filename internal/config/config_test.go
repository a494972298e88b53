package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "default", cfg.Worker.Queue)
	assert.InDelta(t, 0.21, cfg.Engine.Match.DiffThreshold, 1e-9)
}

func TestValidateLogSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "DEBUG"
	assert.NoError(t, cfg.Validate(), "levels are case-insensitive")

	cfg.LogLevel = "loud"
	cfg.LogFormat = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestValidateEngineSection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Match.DiffThreshold = 2
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match")
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"defaults", func(*ServerConfig) {}, ""},
		{"port zero", func(s *ServerConfig) { s.Port = 0 }, "port"},
		{"port too high", func(s *ServerConfig) { s.Port = 70000 }, "port"},
		{"upload", func(s *ServerConfig) { s.MaxUploadMB = 0 }, "max_upload_mb"},
		{"timeout", func(s *ServerConfig) { s.TimeoutSec = 0 }, "timeout_sec"},
		{"shutdown", func(s *ServerConfig) { s.ShutdownTimeout = -1 }, "shutdown_timeout"},
		{"rate", func(s *ServerConfig) { s.RateLimit = -1 }, "rate_limit"},
		{"burst", func(s *ServerConfig) { s.RateBurst = 0 }, "rate_burst"},
		{"no limit no burst", func(s *ServerConfig) { s.RateLimit = 0; s.RateBurst = 0 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultConfig().Server
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWorkerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantErr string
	}{
		{"defaults", func(*WorkerConfig) {}, ""},
		{"redis", func(w *WorkerConfig) { w.RedisAddr = "" }, "redis_addr"},
		{"concurrency", func(w *WorkerConfig) { w.Concurrency = 0 }, "concurrency"},
		{"queue", func(w *WorkerConfig) { w.Queue = "" }, "queue"},
		{"retry", func(w *WorkerConfig) { w.MaxRetry = -1 }, "max_retry"},
		{"timeout", func(w *WorkerConfig) { w.TimeoutSec = 0 }, "timeout_sec"},
		{"retention", func(w *WorkerConfig) { w.Retention = -1 }, "retention_hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultConfig().Worker
			tt.mutate(&w)
			err := w.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToEngineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Render = true
	cfg.Engine.Workers = 3
	ec := cfg.ToEngineConfig()
	assert.True(t, ec.Render)
	assert.Equal(t, 3, ec.Workers)
	assert.Equal(t, cfg.Engine.Fill, ec.Fill)
}
