package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Config holds the queue settings.
type Config struct {
	RedisAddr   string
	RedisDB     int
	Concurrency int
	Queue       string
	MaxRetry    int
	Timeout     time.Duration
	Retention   time.Duration
}

func (c Config) redis() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, DB: c.RedisDB}
}

// Worker consumes recognition tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	cfg    Config
}

// New returns a worker that hands tasks to proc.
func New(cfg Config, proc *Processor) (*Worker, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Queue == "" {
		return nil, errors.New("queue is required")
	}
	if proc == nil {
		return nil, errors.New("processor is required")
	}

	server := asynq.NewServer(cfg.redis(), asynq.Config{
		Concurrency:    cfg.Concurrency,
		Queues:         map[string]int{cfg.Queue: 1},
		RetryDelayFunc: retryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			slog.Warn("Task error", "type", task.Type(), "error", err)
		}),
		Logger:          NewLogger(slog.Default()),
		ShutdownTimeout: cfg.Timeout,
	})

	mux := asynq.NewServeMux()
	proc.Register(mux)
	return &Worker{server: server, mux: mux, cfg: cfg}, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("Starting worker", "redis", w.cfg.RedisAddr, "queue", w.cfg.Queue, "concurrency", w.cfg.Concurrency)
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	<-ctx.Done()
	slog.Info("Stopping worker")
	w.server.Shutdown()
	return nil
}

// retryDelay backs off exponentially from 5s up to one minute.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n > 4 {
		return time.Minute
	}
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	return min(delay, time.Minute)
}
