package refine

import "fmt"

// Config controls boundary and assist-marker refinement.
type Config struct {
	// EdgeRange is how far, in px, an edge may move during the edge search.
	EdgeRange int `mapstructure:"edge_range" yaml:"edge_range" json:"edge_range"`
	// MinSize and MaxSize bound a refined width or height, in px.
	MinSize int `mapstructure:"min_size" yaml:"min_size" json:"min_size"`
	MaxSize int `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
	// GroupRange and GroupStep span the joint nudge of all markers on one side.
	GroupRange int `mapstructure:"group_range" yaml:"group_range" json:"group_range"`
	GroupStep  int `mapstructure:"group_step" yaml:"group_step" json:"group_step"`
	// Cycles is the number of individual nudge + edge search rounds.
	Cycles int `mapstructure:"cycles" yaml:"cycles" json:"cycles"`
	// Fiducials enables the fiducial boundary refinement.
	Fiducials bool `mapstructure:"fiducials" yaml:"fiducials" json:"fiducials"`
}

// DefaultConfig returns the refinement defaults.
func DefaultConfig() Config {
	return Config{
		EdgeRange:  8,
		MinSize:    6,
		MaxSize:    200,
		GroupRange: 8,
		GroupStep:  2,
		Cycles:     2,
		Fiducials:  true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.EdgeRange < 0 || c.GroupRange < 0 || c.Cycles < 0 {
		return fmt.Errorf("refine ranges and cycles must be >= 0")
	}
	if c.GroupStep < 1 {
		return fmt.Errorf("group_step must be >= 1, got %d", c.GroupStep)
	}
	if c.MinSize < 1 || c.MaxSize < c.MinSize {
		return fmt.Errorf("invalid refine size bounds [%d,%d]", c.MinSize, c.MaxSize)
	}
	return nil
}
