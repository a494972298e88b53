package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/server"
	"github.com/MeKo-Tech/omr/internal/version"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket recognition service",
	Long: `Start an HTTP server around the recognition engine.

Endpoints:
  GET  /health               - health check
  GET  /metrics              - Prometheus metrics
  POST /v1/recognize         - multipart "images" (and optional "template") upload
  POST /v1/recognize/second  - second-pass JSON request
  GET  /v1/ws                - WebSocket sessions ("init", "recognize", "recognize_second")

Without --template every request must bring its own layout.

Examples:
  omr serve --template exam.json
  omr serve --host 0.0.0.0 --port 3000 --rate-limit 5`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "allowed CORS origin")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 60, "recognition timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	serveCmd.Flags().Float64("rate-limit", 10, "requests per second per client (0 disables)")
	serveCmd.Flags().Int("rate-burst", 20, "request burst per client")
	serveCmd.Flags().Int("cache-size", 16, "number of uploaded layouts kept ready")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()

	scfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		CORSOrigin:      cfg.Server.CORSOrigin,
		MaxUploadMB:     int64(cfg.Server.MaxUploadMB),
		TimeoutSec:      cfg.Server.TimeoutSec,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		Version:         version.Version,
	}
	if cmd.Flags().Changed("host") {
		scfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		scfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		scfg.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	if cmd.Flags().Changed("max-upload-size") {
		mb, _ := cmd.Flags().GetInt("max-upload-size")
		scfg.MaxUploadMB = int64(mb)
	}
	if cmd.Flags().Changed("timeout") {
		scfg.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
	}
	if cmd.Flags().Changed("shutdown-timeout") {
		scfg.ShutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	if cmd.Flags().Changed("rate-limit") {
		scfg.RateLimit, _ = cmd.Flags().GetFloat64("rate-limit")
	}
	if cmd.Flags().Changed("rate-burst") {
		scfg.RateBurst, _ = cmd.Flags().GetInt("rate-burst")
	}

	if scfg.Port < 1 || scfg.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", scfg.Port)
	}

	e, err := loadOptionalEngine(cfg)
	if err != nil {
		return err
	}
	var rec server.Recognizer
	if e != nil {
		defer func() { _ = e.Close() }()
		rec = e
	}

	cacheSize, _ := cmd.Flags().GetInt("cache-size")
	cache, err := engine.NewCache(cfg.ToEngineConfig(), engine.Options{}, cacheSize)
	if err != nil {
		return err
	}

	srv := server.NewServer(scfg, rec, server.CacheLayouts(cache))
	slog.Info("Starting OMR server", "host", scfg.Host, "port", scfg.Port, "template", cfg.Template)
	return server.ListenAndServe(cmd.Context(), srv, scfg)
}
