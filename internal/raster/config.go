package raster

import "fmt"

// MorphParams is one (threshold, erode, dilate) retry triple. Erode and Dilate
// are neighbourhood radii in pixels; the closing pass after dilation reuses Dilate.
type MorphParams struct {
	Threshold uint8 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	Erode     int   `mapstructure:"erode" yaml:"erode" json:"erode"`
	Dilate    int   `mapstructure:"dilate" yaml:"dilate" json:"dilate"`
}

// Config controls preprocessing.
type Config struct {
	BlurSigma          float64     `mapstructure:"blur_sigma" yaml:"blur_sigma" json:"blur_sigma"`
	FillThreshold      uint8       `mapstructure:"fill_threshold" yaml:"fill_threshold" json:"fill_threshold"`
	AutoThreshold      bool        `mapstructure:"auto_threshold" yaml:"auto_threshold" json:"auto_threshold"`
	AutoThresholdRatio float64     `mapstructure:"auto_threshold_ratio" yaml:"auto_threshold_ratio" json:"auto_threshold_ratio"`
	Morph              MorphParams `mapstructure:"morph" yaml:"morph" json:"morph"`
}

// DefaultConfig returns the preprocessing defaults.
func DefaultConfig() Config {
	return Config{
		BlurSigma:          1.0,
		FillThreshold:      180,
		AutoThreshold:      false,
		AutoThresholdRatio: 0.78,
		Morph:              MorphParams{Threshold: 180, Erode: 5, Dilate: 5},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BlurSigma < 0 {
		return fmt.Errorf("blur_sigma must be >= 0, got %f", c.BlurSigma)
	}
	if c.AutoThresholdRatio <= 0 || c.AutoThresholdRatio > 1 {
		return fmt.Errorf("auto_threshold_ratio must be in (0,1], got %f", c.AutoThresholdRatio)
	}
	return c.Morph.Validate()
}

// Validate checks one retry triple.
func (p MorphParams) Validate() error {
	if p.Erode < 0 || p.Dilate < 0 {
		return fmt.Errorf("morphology radii must be >= 0, got erode=%d dilate=%d", p.Erode, p.Dilate)
	}
	return nil
}

func (p MorphParams) String() string {
	return fmt.Sprintf("threshold=%d erode=%d dilate=%d", p.Threshold, p.Erode, p.Dilate)
}
