package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/metrics"
	"github.com/MeKo-Tech/omr/internal/template"
)

// Recognizer is the engine surface the worker calls.
type Recognizer interface {
	Recognize(ctx context.Context, in engine.Input) (*engine.Output, error)
	RecognizeSecond(ctx context.Context, in engine.SecondInput) (*engine.Output, error)
}

// LayoutFunc returns a recognizer for a layout carried in a payload.
type LayoutFunc func(data []byte, format template.Format) (Recognizer, error)

// CacheLayouts serves payload layouts from an engine cache.
func CacheLayouts(c *engine.Cache) LayoutFunc {
	return func(data []byte, format template.Format) (Recognizer, error) {
		e, err := c.Get(data, format)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// Processor handles recognition tasks.
type Processor struct {
	engine  Recognizer
	layouts LayoutFunc
	timeout time.Duration
}

// NewProcessor returns a processor. rec is the engine of the configured
// layout and may be nil when every task carries its own.
func NewProcessor(rec Recognizer, layouts LayoutFunc, timeout time.Duration) *Processor {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Processor{engine: rec, layouts: layouts, timeout: timeout}
}

// Register routes the task types to p.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRecognize, p.HandleRecognize)
	mux.HandleFunc(TypeRecognizeSecond, p.HandleRecognizeSecond)
}

// HandleRecognize runs a TypeRecognize task and stores the output as the task
// result. Malformed payloads and layouts are not retried.
func (p *Processor) HandleRecognize(ctx context.Context, task *asynq.Task) error {
	var payload RecognizePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	rec, err := p.recognizer(payload.Template, payload.TemplateFormat)
	if err != nil {
		return err
	}

	in := payload.input()
	return p.run(ctx, task, "task", in.TaskID, func(ctx context.Context) (*engine.Output, error) {
		return rec.Recognize(ctx, in)
	})
}

// HandleRecognizeSecond runs a TypeRecognizeSecond task.
func (p *Processor) HandleRecognizeSecond(ctx context.Context, task *asynq.Task) error {
	var payload SecondPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	rec, err := p.recognizer(payload.Template, payload.TemplateFormat)
	if err != nil {
		return err
	}

	return p.run(ctx, task, "task_second", payload.Second.TaskID, func(ctx context.Context) (*engine.Output, error) {
		return rec.RecognizeSecond(ctx, payload.Second)
	})
}

func (p *Processor) recognizer(data []byte, f template.Format) (Recognizer, error) {
	if len(data) == 0 {
		if p.engine == nil {
			return nil, fmt.Errorf("task carries no template and none is configured: %w", asynq.SkipRetry)
		}
		return p.engine, nil
	}
	if p.layouts == nil {
		return nil, fmt.Errorf("task templates are disabled: %w", asynq.SkipRetry)
	}
	rec, err := p.layouts(data, format(f))
	if err != nil {
		return nil, fmt.Errorf("invalid template: %v: %w", err, asynq.SkipRetry)
	}
	return rec, nil
}

func (p *Processor) run(ctx context.Context, task *asynq.Task, kind, taskID string,
	call func(context.Context) (*engine.Output, error),
) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	out, err := call(ctx)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveFailure(kind)
		slog.Error("Task failed", "type", task.Type(), "task_id", taskID, "duration", duration, "error", err)
		if errors.Is(err, engine.ErrEmptyBatch) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("recognition failed: %w", err)
	}
	metrics.ObserveOutput(kind, out, duration)
	slog.Info("Task finished", "type", task.Type(), "task_id", out.TaskID, "code", out.Code, "duration", duration)

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	// tasks built outside a server have no result writer
	if w := task.ResultWriter(); w != nil {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}
