package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/omr/internal/batch"
	"github.com/MeKo-Tech/omr/internal/engine"
)

// secondCmd represents the second command.
var secondCmd = &cobra.Command{
	Use:   "second",
	Short: "Re-read option rectangles that are already in photograph space",
	Long: `Run a second-pass recognition. The input JSON carries, per page, the answer
groups with photograph-space option rectangles and one base64 image per page;
no fiducial detection or page matching takes place.

Examples:
  omr second --template exam.json --input second.json
  cat second.json | omr second --template exam.json --input -`,
	Args: cobra.NoArgs,
	RunE: runSecond,
}

func init() {
	rootCmd.AddCommand(secondCmd)

	secondCmd.Flags().StringP("input", "i", "", "second-pass request JSON file, - for stdin")
	secondCmd.Flags().StringP("output", "o", "", "write the result to this file instead of stdout")
	secondCmd.Flags().StringP("format", "f", "json", "output format (json, csv)")
	secondCmd.Flags().Bool("pretty", true, "indent JSON output")
	_ = secondCmd.MarkFlagRequired("input")
}

func readSecondInput(cmd *cobra.Command, path string) (engine.SecondInput, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return engine.SecondInput{}, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var in engine.SecondInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return engine.SecondInput{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return in, nil
}

func runSecond(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()

	path, _ := cmd.Flags().GetString("input")
	in, err := readSecondInput(cmd, path)
	if err != nil {
		return err
	}
	e, err := loadEngine(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	out, err := e.RecognizeSecond(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	pretty, _ := cmd.Flags().GetBool("pretty")
	data, err := batch.FormatOutput(out, format, pretty)
	if err != nil {
		return err
	}
	if file, _ := cmd.Flags().GetString("output"); file != "" {
		return os.WriteFile(file, data, 0o600)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
