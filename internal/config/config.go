package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/omr/internal/engine"
)

// Config represents the complete configuration for the omr application.
// The recognition sections sit at the top level, next to the settings of
// the serve and worker commands.
type Config struct {
	// Global settings
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	// Template is the default layout file used when a command gets none.
	Template string `mapstructure:"template" yaml:"template" json:"template"`

	Engine engine.Config `mapstructure:",squash" yaml:",inline" json:"engine"`

	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
	Worker WorkerConfig `mapstructure:"worker" yaml:"worker" json:"worker"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	File      string `mapstructure:"file" yaml:"file" json:"file"`
	Pretty    bool   `mapstructure:"pretty" yaml:"pretty" json:"pretty"`
	RenderDir string `mapstructure:"render_dir" yaml:"render_dir" json:"render_dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string  `mapstructure:"host" yaml:"host" json:"host"`
	Port            int     `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string  `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int     `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int     `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int     `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	RateBurst       int     `mapstructure:"rate_burst" yaml:"rate_burst" json:"rate_burst"`
}

// WorkerConfig contains the task queue settings.
type WorkerConfig struct {
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr" json:"redis_addr"`
	RedisDB     int    `mapstructure:"redis_db" yaml:"redis_db" json:"redis_db"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	Queue       string `mapstructure:"queue" yaml:"queue" json:"queue"`
	MaxRetry    int    `mapstructure:"max_retry" yaml:"max_retry" json:"max_retry"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	// Retention keeps finished task results readable, in hours.
	Retention   int    `mapstructure:"retention_hours" yaml:"retention_hours" json:"retention_hours"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// DefaultConfig returns a configuration with sensible default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Engine:    engine.DefaultConfig(),
		Output: OutputConfig{
			Pretty: true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			RateLimit:       10,
			RateBurst:       20,
		},
		Worker: WorkerConfig{
			RedisAddr:   "127.0.0.1:6379",
			Concurrency: 4,
			Queue:       "default",
			MaxRetry:    3,
			TimeoutSec:  120,
			Retention:   24,
		},
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid log level: %s (valid: %s)", c.LogLevel, strings.Join(logLevels, ", ")))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.LogFormat)) {
		errs = append(errs, fmt.Errorf("invalid log format: %s (valid: %s)", c.LogFormat, strings.Join(logFormats, ", ")))
	}
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := c.Worker.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("worker: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks the server settings.
func (s ServerConfig) Validate() error {
	switch {
	case s.Port < 1 || s.Port > 65535:
		return fmt.Errorf("port must be in [1,65535], got %d", s.Port)
	case s.MaxUploadMB < 1:
		return fmt.Errorf("max_upload_mb must be positive, got %d", s.MaxUploadMB)
	case s.TimeoutSec < 1:
		return fmt.Errorf("timeout_sec must be positive, got %d", s.TimeoutSec)
	case s.ShutdownTimeout < 0:
		return fmt.Errorf("shutdown_timeout must be >= 0, got %d", s.ShutdownTimeout)
	case s.RateLimit < 0:
		return fmt.Errorf("rate_limit must be >= 0, got %f", s.RateLimit)
	case s.RateLimit > 0 && s.RateBurst < 1:
		return fmt.Errorf("rate_burst must be positive when rate_limit is set, got %d", s.RateBurst)
	}
	return nil
}

// Validate checks the worker settings.
func (w WorkerConfig) Validate() error {
	switch {
	case w.RedisAddr == "":
		return errors.New("redis_addr is required")
	case w.Concurrency < 1:
		return fmt.Errorf("concurrency must be positive, got %d", w.Concurrency)
	case w.Queue == "":
		return errors.New("queue is required")
	case w.MaxRetry < 0:
		return fmt.Errorf("max_retry must be >= 0, got %d", w.MaxRetry)
	case w.TimeoutSec < 1:
		return fmt.Errorf("timeout_sec must be positive, got %d", w.TimeoutSec)
	case w.Retention < 0:
		return fmt.Errorf("retention_hours must be >= 0, got %d", w.Retention)
	}
	return nil
}

// ToEngineConfig returns the recognition settings.
func (c *Config) ToEngineConfig() engine.Config {
	return c.Engine
}
