package geometry

import "fmt"

// Config holds the validator tolerances.
type Config struct {
	// MinDiagonalArea is the smallest area spanned by either diagonal, in px².
	MinDiagonalArea float64 `mapstructure:"min_diagonal_area" yaml:"min_diagonal_area" json:"min_diagonal_area"`
	// MaxDiff bounds the difference between opposite sides, in px.
	MaxDiff int `mapstructure:"max_diff" yaml:"max_diff" json:"max_diff"`
	// AngleTolerance is the allowed deviation from 90° at each corner, in degrees.
	AngleTolerance float64 `mapstructure:"angle_tolerance" yaml:"angle_tolerance" json:"angle_tolerance"`
	// OutlierK is the stddev multiplier for outlier rejection.
	OutlierK float64 `mapstructure:"outlier_k" yaml:"outlier_k" json:"outlier_k"`
	// SimilarityCeiling marks similarities that are never outliers.
	SimilarityCeiling float64 `mapstructure:"similarity_ceiling" yaml:"similarity_ceiling" json:"similarity_ceiling"`
	// SimilarityFloor is the smallest similarity spread treated as an outlier.
	SimilarityFloor float64 `mapstructure:"similarity_floor" yaml:"similarity_floor" json:"similarity_floor"`
	// SizeFloor is the smallest (w+h) spread treated as an outlier, relative to the mean.
	SizeFloor float64 `mapstructure:"size_floor" yaml:"size_floor" json:"size_floor"`
}

// DefaultConfig returns the validator defaults.
func DefaultConfig() Config {
	return Config{
		MinDiagonalArea:   2500,
		MaxDiff:           30,
		AngleTolerance:    3,
		OutlierK:          1.5,
		SimilarityCeiling: 0.995,
		SimilarityFloor:   0.01,
		SizeFloor:         0.2,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinDiagonalArea < 0 {
		return fmt.Errorf("min_diagonal_area must be >= 0, got %f", c.MinDiagonalArea)
	}
	if c.MaxDiff < 0 {
		return fmt.Errorf("max_diff must be >= 0, got %d", c.MaxDiff)
	}
	if c.AngleTolerance <= 0 || c.AngleTolerance >= 90 {
		return fmt.Errorf("angle_tolerance must be in (0,90), got %f", c.AngleTolerance)
	}
	if c.OutlierK <= 0 {
		return fmt.Errorf("outlier_k must be > 0, got %f", c.OutlierK)
	}
	if c.SimilarityCeiling <= 0 || c.SimilarityCeiling > 1 {
		return fmt.Errorf("similarity_ceiling must be in (0,1], got %f", c.SimilarityCeiling)
	}
	if c.SimilarityFloor < 0 || c.SizeFloor < 0 {
		return fmt.Errorf("outlier floors must be >= 0")
	}
	return nil
}
