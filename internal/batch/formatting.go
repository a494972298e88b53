package batch

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MeKo-Tech/omr/internal/engine"
)

// FormatOutput renders a recognition output as JSON or CSV.
func FormatOutput(out *engine.Output, format string, pretty bool) ([]byte, error) {
	switch format {
	case "csv":
		return formatCSV(out)
	default:
		return formatJSON(out, pretty)
	}
}

func formatJSON(out *engine.Output, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

// formatCSV writes one row per option of every page.
func formatCSV(out *engine.Output) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{{"page", "has_page", "image_index", "rec_id", "rec_type", "option", "value", "diagnostic", "x", "y", "w", "h"}}

	for pi, page := range out.Pages {
		for _, g := range page.Recognizes {
			for oi, op := range g.RecOptions {
				row := []string{
					strconv.Itoa(pi),
					strconv.FormatBool(page.HasPage),
					strconv.Itoa(page.ImageIndex),
					g.RecID,
					strconv.Itoa(g.RecType),
					strconv.Itoa(oi),
					"", "", "", "", "", "",
				}
				if op.Value != nil {
					row[6] = op.Value.String()
				}
				if op.Diagnostic != nil {
					row[7] = strconv.FormatFloat(*op.Diagnostic, 'f', 4, 64)
				}
				if c := op.Coordinate; c != nil {
					row[8], row[9], row[10], row[11] = strconv.Itoa(c.X), strconv.Itoa(c.Y), strconv.Itoa(c.W), strconv.Itoa(c.H)
				}
				rows = append(rows, row)
			}
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteRenderings stores the rectified and debug images of every matched
// page in dir as page_<n>.jpg and page_<n>_render.jpg. It returns the
// written paths.
func WriteRenderings(dir string, out *engine.Output) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	var written []string
	write := func(name, b64 string) error {
		if b64 == "" {
			return nil
		}
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}
	for i, page := range out.Pages {
		if !page.HasPage {
			continue
		}
		if err := write(fmt.Sprintf("page_%d.jpg", i), page.ImageRotated); err != nil {
			return written, err
		}
		if err := write(fmt.Sprintf("page_%d_render.jpg", i), page.ImageRendering); err != nil {
			return written, err
		}
	}
	return written, nil
}
