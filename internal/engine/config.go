package engine

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/MeKo-Tech/omr/internal/barcode"
	"github.com/MeKo-Tech/omr/internal/detector"
	"github.com/MeKo-Tech/omr/internal/fill"
	"github.com/MeKo-Tech/omr/internal/geometry"
	"github.com/MeKo-Tech/omr/internal/mapping"
	"github.com/MeKo-Tech/omr/internal/match"
	"github.com/MeKo-Tech/omr/internal/ocr"
	"github.com/MeKo-Tech/omr/internal/raster"
	"github.com/MeKo-Tech/omr/internal/refine"
	"github.com/MeKo-Tech/omr/internal/template"
)

// Config bundles the read-only parameters of every recognition stage.
type Config struct {
	Raster   raster.Config     `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	Detector detector.Config   `mapstructure:"detector" yaml:"detector" json:"detector"`
	Geometry geometry.Config   `mapstructure:"geometry" yaml:"geometry" json:"geometry"`
	Match    match.Config      `mapstructure:"match" yaml:"match" json:"match"`
	Refine   refine.Config     `mapstructure:"refine" yaml:"refine" json:"refine"`
	Mapping  mapping.Config    `mapstructure:"mapping" yaml:"mapping" json:"mapping"`
	Fill     fill.Config       `mapstructure:"fill" yaml:"fill" json:"fill"`
	Barcode  barcode.Config    `mapstructure:"barcode" yaml:"barcode" json:"barcode"`
	OCR      ocr.Config        `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	RecTypes template.RecTypes `mapstructure:"recognize_type" yaml:"recognize_type" json:"recognize_type"`

	// Workers bounds the preprocessing and detection pool. 0 means runtime.NumCPU().
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
	// JPEGQuality is used for the rectified and rendered page images.
	JPEGQuality int `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`
	// Render adds a debug overlay of every matched page to the output.
	Render bool `mapstructure:"render" yaml:"render" json:"render"`
	// OmitImages leaves image_rotated empty.
	OmitImages bool `mapstructure:"omit_images" yaml:"omit_images" json:"omit_images"`
}

// DefaultConfig returns the defaults of every stage.
func DefaultConfig() Config {
	return Config{
		Raster:      raster.DefaultConfig(),
		Detector:    detector.DefaultConfig(),
		Geometry:    geometry.DefaultConfig(),
		Match:       match.DefaultConfig(),
		Refine:      refine.DefaultConfig(),
		Mapping:     mapping.DefaultConfig(),
		Fill:        fill.DefaultConfig(),
		Barcode:     barcode.DefaultConfig(),
		OCR:         ocr.DefaultConfig(),
		RecTypes:    template.DefaultRecTypes(),
		Workers:     runtime.NumCPU(),
		JPEGQuality: 85,
	}
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	add("preprocess", c.Raster.Validate())
	add("detector", c.Detector.Validate())
	add("geometry", c.Geometry.Validate())
	add("match", c.Match.Validate())
	add("refine", c.Refine.Validate())
	add("mapping", c.Mapping.Validate())
	add("fill", c.Fill.Validate())
	add("barcode", c.Barcode.Validate())
	add("ocr", c.OCR.Validate())
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality must be in [1,100], got %d", c.JPEGQuality))
	}
	return errors.Join(errs...)
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}
