package batch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/pdf"
)

// ErrNoInputs is returned when discovery finds nothing to recognize.
var ErrNoInputs = errors.New("no input images found")

// LoadSources discovers the inputs named by args and turns them into engine
// sources. Every embedded image of a PDF becomes its own source, named
// "<file>#<page>". Image files are passed undecoded so undecodable files
// surface as per-image statuses instead of aborting the batch.
func LoadSources(args []string, cfg Config) ([]engine.Source, error) {
	files, err := discoverFiles(args, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoInputs
	}

	var sources []engine.Source
	for _, f := range files {
		if isPDF(f) {
			pages, err := pdf.ExtractFile(f, pdf.Options{Pages: cfg.PDFPages, UserPassword: cfg.PDFPassword})
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f, err)
			}
			for _, p := range pages {
				sources = append(sources, engine.Source{Name: fmt.Sprintf("%s#%d", f, p.Page), Image: p.Image})
			}
			slog.Debug("Expanded pdf", "file", f, "images", len(pages))
			continue
		}
		data, err := os.ReadFile(f) //nolint:gosec // G304: reading user-provided input files is expected
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		sources = append(sources, engine.Source{Name: f, Data: data})
	}
	return sources, nil
}
