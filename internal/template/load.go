package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a serialization of a Scan.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension; unknown extensions are JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads, parses and prepares a scan layout file.
func Load(path string) (*Scan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: template path comes from the caller
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	scan, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return scan, nil
}

// Parse decodes data and runs Prepare on the result.
func Parse(data []byte, format Format) (*Scan, error) {
	var scan Scan
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &scan); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &scan); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if err := scan.Prepare(); err != nil {
		return nil, err
	}
	return &scan, nil
}
