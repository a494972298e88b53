package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/MeKo-Tech/omr/internal/engine"
)

// Client submits tasks and reads their results.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	cfg       Config
}

// NewClient connects to the queue in cfg.
func NewClient(cfg Config) *Client {
	return &Client{
		client:    asynq.NewClient(cfg.redis()),
		inspector: asynq.NewInspector(cfg.redis()),
		cfg:       cfg,
	}
}

// Enqueue submits task to the configured queue and returns its id.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task) (string, error) {
	info, err := c.client.EnqueueContext(ctx, task, c.options()...)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return info.ID, nil
}

func (c *Client) options() []asynq.Option {
	opts := []asynq.Option{asynq.Queue(c.cfg.Queue), asynq.MaxRetry(c.cfg.MaxRetry)}
	if c.cfg.Timeout > 0 {
		opts = append(opts, asynq.Timeout(c.cfg.Timeout))
	}
	if c.cfg.Retention > 0 {
		opts = append(opts, asynq.Retention(c.cfg.Retention))
	}
	return opts
}

// TaskResult is the state of a submitted task.
type TaskResult struct {
	ID      string         `json:"id"`
	State   string         `json:"state"`
	Retried int            `json:"retried"`
	Error   string         `json:"error,omitempty"`
	Output  *engine.Output `json:"output,omitempty"`
}

// Result looks up task id. Output is set once the task has completed.
func (c *Client) Result(id string) (*TaskResult, error) {
	info, err := c.inspector.GetTaskInfo(c.cfg.Queue, id)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	return taskResult(info)
}

func taskResult(info *asynq.TaskInfo) (*TaskResult, error) {
	res := &TaskResult{ID: info.ID, State: info.State.String(), Retried: info.Retried, Error: info.LastErr}
	if info.State != asynq.TaskStateCompleted || len(info.Result) == 0 {
		return res, nil
	}
	var out engine.Output
	if err := json.Unmarshal(info.Result, &out); err != nil {
		return nil, fmt.Errorf("task %s: decode result: %w", info.ID, err)
	}
	res.Output = &out
	return res, nil
}

// Close releases the Redis connections.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return err
	}
	return c.inspector.Close()
}
