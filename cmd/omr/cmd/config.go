package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/omr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the default configuration",
	Long: `Write every setting with its default value, ready to be edited.
The file defaults to omr.yaml in the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			file = args[0]
		}
		if err := config.GenerateDefaultConfigFile(file); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Configuration written to %s\n", file)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Print the configuration after defaults, the config file, OMR_ environment
variables and flags have been applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		loader := GetConfigLoader()
		out, err := yaml.Marshal(loader.GetResolvedConfig())
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		stderr := cmd.ErrOrStderr()
		if used := loader.GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(stderr, "Config file: %s\n", used)
		} else {
			_, _ = fmt.Fprintf(stderr, "No config file found in %v\n", config.GetConfigSearchPaths())
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
