package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/omr/internal/config"
	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/worker"
)

// workerCmd represents the worker command.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process recognition tasks from a Redis queue",
	Long: `Start an asynq worker that processes "omr:recognize" and
"omr:recognize_second" tasks. The JSON output of each task is stored as its
result and can be read with "omr result".

Tasks may carry their own layout; otherwise the configured template is used.

Examples:
  omr worker --template exam.json
  omr worker --redis redis.internal:6379 --concurrency 8 --queue omr`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	addQueueFlags(workerCmd)
	workerCmd.Flags().Int("concurrency", 4, "tasks processed in parallel")
	workerCmd.Flags().Int("cache-size", 16, "number of task layouts kept ready")
}

// addQueueFlags registers the flags shared by the queue commands.
func addQueueFlags(cmd *cobra.Command) {
	cmd.Flags().String("redis", "127.0.0.1:6379", "Redis address")
	cmd.Flags().Int("redis-db", 0, "Redis database")
	cmd.Flags().String("queue", "default", "queue name")
}

// queueConfig maps the worker configuration and the command flags to worker.Config.
func queueConfig(cfg *config.Config, cmd *cobra.Command) worker.Config {
	wc := worker.Config{
		RedisAddr:   cfg.Worker.RedisAddr,
		RedisDB:     cfg.Worker.RedisDB,
		Concurrency: cfg.Worker.Concurrency,
		Queue:       cfg.Worker.Queue,
		MaxRetry:    cfg.Worker.MaxRetry,
		Timeout:     time.Duration(cfg.Worker.TimeoutSec) * time.Second,
		Retention:   time.Duration(cfg.Worker.Retention) * time.Hour,
	}
	if cmd.Flags().Changed("redis") {
		wc.RedisAddr, _ = cmd.Flags().GetString("redis")
	}
	if cmd.Flags().Changed("redis-db") {
		wc.RedisDB, _ = cmd.Flags().GetInt("redis-db")
	}
	if cmd.Flags().Changed("queue") {
		wc.Queue, _ = cmd.Flags().GetString("queue")
	}
	if cmd.Flags().Lookup("concurrency") != nil && cmd.Flags().Changed("concurrency") {
		wc.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	return wc
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()
	wc := queueConfig(cfg, cmd)

	e, err := loadOptionalEngine(cfg)
	if err != nil {
		return err
	}
	var rec worker.Recognizer
	if e != nil {
		defer func() { _ = e.Close() }()
		rec = e
	}

	cacheSize, _ := cmd.Flags().GetInt("cache-size")
	cache, err := engine.NewCache(cfg.ToEngineConfig(), engine.Options{}, cacheSize)
	if err != nil {
		return err
	}

	w, err := worker.New(wc, worker.NewProcessor(rec, worker.CacheLayouts(cache), wc.Timeout))
	if err != nil {
		return err
	}
	return w.Run(cmd.Context())
}
