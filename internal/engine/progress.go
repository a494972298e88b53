package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Progress receives registration progress of a batch. Calls arrive from the
// collecting goroutine, one at a time.
type Progress interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(index int, err error)
}

// NoOpProgress ignores every event.
type NoOpProgress struct{}

func (NoOpProgress) OnStart(int)         {}
func (NoOpProgress) OnProgress(int, int) {}
func (NoOpProgress) OnComplete()         {}
func (NoOpProgress) OnError(int, error)  {}

// ConsoleProgress draws a progress bar.
type ConsoleProgress struct {
	mu             sync.Mutex
	w              io.Writer
	prefix         string
	width          int
	updateInterval time.Duration
	start          time.Time
	lastUpdate     time.Time
}

// NewConsoleProgress writes to w, or stderr when w is nil.
func NewConsoleProgress(w io.Writer, prefix string) *ConsoleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgress{w: w, prefix: prefix, width: 40, updateInterval: 100 * time.Millisecond}
}

func (c *ConsoleProgress) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.w, "%s0/%d\n", c.prefix, total)
}

func (c *ConsoleProgress) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if total == 0 || (now.Sub(c.lastUpdate) < c.updateInterval && current < total) {
		return
	}
	c.lastUpdate = now
	filled := c.width * current / total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	_, _ = fmt.Fprintf(c.w, "\r%s[%s] %d/%d", c.prefix, bar, current, total)
}

func (c *ConsoleProgress) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sdone in %v\n", c.prefix, time.Since(c.start).Round(time.Millisecond))
}

func (c *ConsoleProgress) OnError(index int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%simage %d: %v\n", c.prefix, index, err)
}

// LogProgress reports progress through slog.
type LogProgress struct {
	logger *slog.Logger
	level  slog.Level
	start  time.Time
}

// NewLogProgress logs at level; a nil logger means slog.Default().
func NewLogProgress(logger *slog.Logger, level slog.Level) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgress{logger: logger, level: level}
}

func (l *LogProgress) OnStart(total int) {
	l.start = time.Now()
	l.logger.Log(context.Background(), l.level, "Registering images", "total", total)
}

func (l *LogProgress) OnProgress(current, total int) {
	l.logger.Log(context.Background(), l.level, "Image registered", "current", current, "total", total)
}

func (l *LogProgress) OnComplete() {
	l.logger.Log(context.Background(), l.level, "Registration completed",
		"elapsed", time.Since(l.start).Round(time.Millisecond))
}

func (l *LogProgress) OnError(index int, err error) {
	l.logger.Log(context.Background(), slog.LevelWarn, "Image registration failed", "index", index, "error", err)
}
