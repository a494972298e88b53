// Package common provides stage timers and runtime statistics for logs and
// health reports.
package common

import (
	"log/slog"
	"time"
)

// Timer measures one recognition stage.
type Timer struct {
	stage    string
	start    time.Time
	duration time.Duration
}

// NewNamedTimer starts a timer for stage.
func NewNamedTimer(stage string) *Timer {
	return &Timer{stage: stage, start: time.Now()}
}

// Stop records and returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Done stops the timer and logs msg at debug level with the stage and
// duration appended to args.
func (t *Timer) Done(msg string, args ...any) time.Duration {
	d := t.Stop()
	slog.Debug(msg, append(args, "stage", t.stage, "duration", d)...)
	return d
}

// Duration is the time recorded by the last Stop.
func (t *Timer) Duration() time.Duration {
	return t.duration
}
