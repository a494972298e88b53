package worker

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger adapts slog to the asynq.Logger interface.
type Logger struct {
	log *slog.Logger
}

// NewLogger wraps l.
func NewLogger(l *slog.Logger) *Logger {
	return &Logger{log: l.With("component", "asynq")}
}

func (l *Logger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l *Logger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l *Logger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l *Logger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }

// Fatal logs and exits, as asynq expects.
func (l *Logger) Fatal(args ...any) {
	l.log.Error(fmt.Sprint(args...))
	os.Exit(1)
}
