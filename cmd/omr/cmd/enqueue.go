package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/omr/internal/batch"
	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/worker"
)

// enqueueCmd represents the enqueue command.
var enqueueCmd = &cobra.Command{
	Use:   "enqueue [files or directories...]",
	Short: "Submit a recognition task to the Redis queue",
	Long: `Submit the given photographs as one "omr:recognize" task. The template
file is sent along with the task, so workers need no local layout. PDF pages
are sent as PNG images.

Examples:
  omr enqueue --template exam.json p1.jpg p2.jpg
  omr enqueue --template exam.json scans/ --wait`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnqueue,
}

// resultCmd represents the result command.
var resultCmd = &cobra.Command{
	Use:   "result <task-id>",
	Short: "Show the state and result of a queued task",
	Args:  cobra.ExactArgs(1),
	RunE:  runResult,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(resultCmd)

	addQueueFlags(enqueueCmd)
	enqueueCmd.Flags().String("task-id", "", "task id copied into the result")
	enqueueCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	enqueueCmd.Flags().Bool("wait", false, "wait for the task and print its result")
	enqueueCmd.Flags().Duration("wait-timeout", 5*time.Minute, "how long --wait waits")

	addQueueFlags(resultCmd)
}

// taskImages reads the inputs into payload images.
func taskImages(args []string, bc batch.Config) ([]worker.Image, error) {
	sources, err := batch.LoadSources(args, bc)
	if err != nil {
		return nil, err
	}
	images := make([]worker.Image, 0, len(sources))
	for _, s := range sources {
		data := s.Data
		if s.Image != nil {
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, s.Image, imaging.PNG); err != nil {
				return nil, fmt.Errorf("encode %s: %w", s.Name, err)
			}
			data = buf.Bytes()
		}
		images = append(images, worker.Image{Name: s.Name, Data: data})
	}
	return images, nil
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg.Template == "" {
		return errNoTemplate
	}
	layout, err := os.ReadFile(cfg.Template)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	// catch layout errors before a worker does
	if _, err := template.Parse(layout, template.FormatFromPath(cfg.Template)); err != nil {
		return fmt.Errorf("template %s: %w", cfg.Template, err)
	}

	bc := batch.DefaultConfig()
	bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	images, err := taskImages(args, bc)
	if err != nil {
		return err
	}

	taskID, _ := cmd.Flags().GetString("task-id")
	task, err := worker.NewRecognizeTask(worker.RecognizePayload{
		TaskID:         taskID,
		Template:       layout,
		TemplateFormat: template.FormatFromPath(cfg.Template),
		Images:         images,
	})
	if err != nil {
		return err
	}

	client := worker.NewClient(queueConfig(cfg, cmd))
	defer func() { _ = client.Close() }()

	id, err := client.Enqueue(cmd.Context(), task)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Enqueued task %s (%d images)\n", id, len(images))

	if wait, _ := cmd.Flags().GetBool("wait"); !wait {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	}
	timeout, _ := cmd.Flags().GetDuration("wait-timeout")
	res, err := waitForResult(cmd, client, id, timeout)
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

// waitForResult polls the task until it completes or is archived.
func waitForResult(cmd *cobra.Command, client *worker.Client, id string, timeout time.Duration) (*worker.TaskResult, error) {
	deadline := time.After(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		res, err := client.Result(id)
		if err != nil {
			return nil, err
		}
		switch res.State {
		case "completed":
			return res, nil
		case "archived":
			return nil, fmt.Errorf("task %s failed: %s", id, res.Error)
		}
		select {
		case <-cmd.Context().Done():
			return nil, cmd.Context().Err()
		case <-deadline:
			return nil, errors.New("timed out waiting for task " + id)
		case <-ticker.C:
		}
	}
}

func runResult(cmd *cobra.Command, args []string) error {
	client := worker.NewClient(queueConfig(GetConfig(), cmd))
	defer func() { _ = client.Close() }()

	res, err := client.Result(args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
