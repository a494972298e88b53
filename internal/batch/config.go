package batch

import (
	"errors"
	"fmt"
)

// Config controls input discovery and result output for the CLI.
type Config struct {
	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// PDF input
	PDFPages    string
	PDFPassword string

	// Output settings
	Format     string
	Pretty     bool
	OutputFile string
	RenderDir  string
}

// DefaultConfig returns a Config with the CLI defaults.
func DefaultConfig() Config {
	return Config{Format: "json", Pretty: true}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Format {
	case "json", "csv":
	default:
		return fmt.Errorf("invalid output format: %s (valid: json, csv)", c.Format)
	}
	for _, p := range append(append([]string{}, c.IncludePatterns...), c.ExcludePatterns...) {
		if p == "" {
			return errors.New("empty file pattern")
		}
	}
	return nil
}
