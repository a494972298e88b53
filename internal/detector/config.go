package detector

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/omr/internal/raster"
)

// Config controls fiducial detection.
type Config struct {
	// MinSize and MaxSize bound the width and height of a candidate, in px.
	MinSize int `mapstructure:"min_size" yaml:"min_size" json:"min_size"`
	MaxSize int `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
	// CenterBand rejects candidates whose top edge lies in (band·H, (1-band)·H).
	// Zero disables the check.
	CenterBand float64 `mapstructure:"center_band" yaml:"center_band" json:"center_band"`
	// MinSimilarity is the lowest (w,h) cosine similarity against the template fiducial.
	MinSimilarity float64 `mapstructure:"min_similarity" yaml:"min_similarity" json:"min_similarity"`
	// StrictCorners keeps the top-left pick in the left quarter and the
	// bottom-right pick in the right quarter of the page.
	StrictCorners bool `mapstructure:"strict_corners" yaml:"strict_corners" json:"strict_corners"`
	// MinAngle is the smallest skew, in radians, that is corrected.
	MinAngle float64 `mapstructure:"min_angle" yaml:"min_angle" json:"min_angle"`
	// Retries is the ordered list of morphology triples tried until a valid set appears.
	Retries []raster.MorphParams `mapstructure:"retries" yaml:"retries" json:"retries"`
}

// DefaultConfig returns the detection defaults.
func DefaultConfig() Config {
	return Config{
		MinSize:       10,
		MaxSize:       200,
		CenterBand:    0.25,
		MinSimilarity: 0.985,
		MinAngle:      0.0005,
		Retries: []raster.MorphParams{
			{Threshold: 180, Erode: 5, Dilate: 5},
			{Threshold: 160, Erode: 3, Dilate: 5},
			{Threshold: 200, Erode: 5, Dilate: 7},
			{Threshold: 140, Erode: 2, Dilate: 3},
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinSize < 1 || c.MaxSize < c.MinSize {
		return fmt.Errorf("invalid fiducial size bounds [%d,%d]", c.MinSize, c.MaxSize)
	}
	if c.CenterBand < 0 || c.CenterBand >= 0.5 {
		return fmt.Errorf("center_band must be in [0,0.5), got %f", c.CenterBand)
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("min_similarity must be in [0,1], got %f", c.MinSimilarity)
	}
	var errs []error
	for i, p := range c.Retries {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("retries[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
