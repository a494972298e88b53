package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/recognize", s.corsMiddleware(s.rateLimitMiddleware(s.recognizeHandler)))
	mux.HandleFunc("/v1/recognize/second", s.corsMiddleware(s.rateLimitMiddleware(s.secondHandler)))
	mux.HandleFunc("/v1/ws", s.rateLimitMiddleware(s.websocketHandler))
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, s *Server, cfg Config) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdown := time.Duration(cfg.ShutdownTimeout) * time.Second
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()
	slog.Info("Shutting down server", "timeout", shutdown)
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
