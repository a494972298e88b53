package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/omr/internal/config"
	"github.com/MeKo-Tech/omr/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "omr",
	Short: "Optical mark recognition for photographed answer sheets",
	Long: `omr reads photographed or scanned answer sheets against a scan layout
(the template) and reports the filled options, numbers and codes of every page.

Photographs may arrive in any order and orientation; each is matched to the
template page it shows. Besides the CLI the engine runs as an HTTP/WebSocket
service and as a Redis queue worker.

Examples:
  omr recognize --template exam.json sheet1.jpg sheet2.jpg
  omr recognize --template exam.yaml scans/ --format csv
  omr serve --template exam.json --port 8080
  omr worker --redis 127.0.0.1:6379`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	Version:           version.String(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// The command context is cancelled on SIGINT and SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in ., $HOME/.config/omr, $HOME, /etc/omr)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringP("template", "t", "", "scan layout file (.json or .yaml)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("template", rootCmd.PersistentFlags().Lookup("template"))
}

// setup loads the configuration and installs the logger before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	if err := initConfig(); err != nil {
		return err
	}
	slog.SetDefault(newLogger(globalConfig, cmd.ErrOrStderr()))
	if used := configLoader.GetConfigFileUsed(); used != "" {
		slog.Debug("Configuration loaded", "file", used)
	}
	return nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return nil
}

// newLogger builds the structured logger. Logs go to w so that stdout only
// carries results.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			cfg := config.DefaultConfig()
			return &cfg
		}
	}
	return globalConfig
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
