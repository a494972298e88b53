package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/omr/internal/version"
)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		v, commit, date := version.Info()
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "omr version %s\n", v)
		_, _ = fmt.Fprintf(out, "Commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "Date: %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
