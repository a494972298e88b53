package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/omr/internal/batch"
	"github.com/MeKo-Tech/omr/internal/config"
	"github.com/MeKo-Tech/omr/internal/engine"
)

// recognizeCmd represents the recognize command.
var recognizeCmd = &cobra.Command{
	Use:   "recognize [files or directories...]",
	Short: "Recognize a submission of answer-sheet photographs",
	Long: `Recognize all given photographs as one submission against the template.

Inputs may be image files (JPEG, PNG, BMP, TIFF), directories and scanned
PDFs; every PDF page image counts as one photograph. The result holds one
page per template page and one status per photograph.

Examples:
  omr recognize --template exam.json p1.jpg p2.jpg
  omr recognize --template exam.json scans/ --recursive --output result.json
  omr recognize --template exam.json exam.pdf --format csv
  omr recognize --template exam.json p1.jpg --render-dir debug/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("task-id", "", "task id copied into the result")
	recognizeCmd.Flags().StringP("output", "o", "", "write the result to this file instead of stdout")
	recognizeCmd.Flags().StringP("format", "f", "json", "output format (json, csv)")
	recognizeCmd.Flags().Bool("pretty", true, "indent JSON output")
	recognizeCmd.Flags().String("render-dir", "", "write rectified pages and debug renderings to this directory")
	recognizeCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	recognizeCmd.Flags().StringSlice("include", nil, "only take files matching these glob patterns")
	recognizeCmd.Flags().StringSlice("exclude", nil, "skip files matching these glob patterns")
	recognizeCmd.Flags().String("pdf-pages", "", "PDF pages to read, e.g. 1-3,5")
	recognizeCmd.Flags().String("pdf-password", "", "password of encrypted PDFs")
	recognizeCmd.Flags().Int("workers", 0, "parallel preprocessing workers (default: config or CPU count)")
	recognizeCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
}

// configToBatchConfig maps the configuration and the command flags to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) batch.Config {
	bc := batch.DefaultConfig()

	bc.OutputFile = cfg.Output.File
	if cmd.Flags().Changed("output") {
		bc.OutputFile, _ = cmd.Flags().GetString("output")
	}
	bc.Format, _ = cmd.Flags().GetString("format")
	bc.Pretty = cfg.Output.Pretty
	if cmd.Flags().Changed("pretty") {
		bc.Pretty, _ = cmd.Flags().GetBool("pretty")
	}
	bc.RenderDir = cfg.Output.RenderDir
	if cmd.Flags().Changed("render-dir") {
		bc.RenderDir, _ = cmd.Flags().GetString("render-dir")
	}

	bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	bc.PDFPages, _ = cmd.Flags().GetString("pdf-pages")
	bc.PDFPassword, _ = cmd.Flags().GetString("pdf-password")
	return bc
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := *GetConfig()
	bc := configToBatchConfig(&cfg, cmd)
	if err := bc.Validate(); err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Engine.Workers, _ = cmd.Flags().GetInt("workers")
	}
	// renderings need the debug overlay
	if bc.RenderDir != "" {
		cfg.Engine.Render = true
	}

	var progress engine.Progress
	if show, _ := cmd.Flags().GetBool("progress"); show {
		progress = engine.NewConsoleProgress(cmd.ErrOrStderr(), "Registering")
	}
	e, err := loadEngine(&cfg, progress)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	taskID, _ := cmd.Flags().GetString("task-id")
	res, err := batch.Run(cmd.Context(), e, taskID, args, bc)
	if err != nil {
		return err
	}

	if bc.OutputFile != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Result written to %s\n", bc.OutputFile)
	} else if _, err := cmd.OutOrStdout().Write(res.Formatted); err != nil {
		return err
	}
	for _, p := range res.Rendered {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Rendered %s\n", p)
	}
	if res.Output.Code != engine.CodeOK {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", res.Output.Message)
	}
	return nil
}
