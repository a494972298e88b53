// Package batch runs the CLI recognition of files, directories and PDFs.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/omr/internal/common"
	"github.com/MeKo-Tech/omr/internal/engine"
)

// Recognizer is the part of the engine a batch needs.
type Recognizer interface {
	Recognize(ctx context.Context, in engine.Input) (*engine.Output, error)
}

// Result is a finished batch run.
type Result struct {
	Output    *engine.Output
	Sources   []string
	Rendered  []string
	Formatted []byte
}

// Run recognizes the inputs named by args as one submission and writes the
// formatted output to cfg.OutputFile, if set.
func Run(ctx context.Context, rec Recognizer, taskID string, args []string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sources, err := LoadSources(args, cfg)
	if err != nil {
		return nil, err
	}

	timer := common.NewNamedTimer("batch")
	out, err := rec.Recognize(ctx, engine.Input{TaskID: taskID, Sources: sources})
	if err != nil {
		return nil, fmt.Errorf("recognition failed: %w", err)
	}
	slog.Info("Batch recognized", "task_id", out.TaskID, "inputs", len(sources), "code", out.Code, "duration", timer.Stop())

	res := &Result{Output: out}
	for _, s := range sources {
		res.Sources = append(res.Sources, s.Name)
	}

	if cfg.RenderDir != "" {
		if res.Rendered, err = WriteRenderings(cfg.RenderDir, out); err != nil {
			return nil, err
		}
	}

	if res.Formatted, err = FormatOutput(out, cfg.Format, cfg.Pretty); err != nil {
		return nil, fmt.Errorf("format output: %w", err)
	}
	if cfg.OutputFile != "" {
		if err := os.WriteFile(cfg.OutputFile, res.Formatted, 0o600); err != nil {
			return nil, fmt.Errorf("write output: %w", err)
		}
	}
	return res, nil
}
