package fill

import "fmt"

// Neighbourhood is the square of positional offsets searched around every
// option: 0, ±Step, ±2·Step, ... up to ±Range on both axes.
type Neighbourhood struct {
	Range int `mapstructure:"range" yaml:"range" json:"range"`
	Step  int `mapstructure:"step" yaml:"step" json:"step"`
}

// Offsets lists the offsets on one axis, zero first.
func (n Neighbourhood) Offsets() []int {
	out := []int{0}
	if n.Step < 1 {
		return out
	}
	for d := n.Step; d <= n.Range; d += n.Step {
		out = append(out, -d, d)
	}
	return out
}

// Config holds the classifier thresholds. Variances of fill rates are in
// [0, 0.25]; the final pass works on fill rates scaled to percent.
type Config struct {
	Standard   Neighbourhood `mapstructure:"standard" yaml:"standard" json:"standard"`
	ExamNumber Neighbourhood `mapstructure:"exam_number" yaml:"exam_number" json:"exam_number"`

	// DarkWeight raises the score of offsets whose threshold is darker.
	DarkWeight float64 `mapstructure:"dark_weight" yaml:"dark_weight" json:"dark_weight"`
	// MaxThreshold caps every grey threshold; paler pixels are never ink.
	MaxThreshold uint8 `mapstructure:"max_threshold" yaml:"max_threshold" json:"max_threshold"`

	// CertainlyFilled and FilledCeiling trigger the all-filled override: the
	// smallest variance found is below CertainlyFilled and its threshold is
	// below FilledCeiling.
	CertainlyFilled float64 `mapstructure:"certainly_filled" yaml:"certainly_filled" json:"certainly_filled"`
	FilledCeiling   uint8   `mapstructure:"filled_ceiling" yaml:"filled_ceiling" json:"filled_ceiling"`
	// Uniform is the smallest-variance bound below which the page threshold is used.
	Uniform float64 `mapstructure:"uniform" yaml:"uniform" json:"uniform"`

	// Same is the between-class variance, in percent², below which the final
	// pass treats a group as uniform.
	Same float64 `mapstructure:"same" yaml:"same" json:"same"`
	// FillCeiling and EmptyCeiling, in percent, decide uniform groups: a
	// maximum at or above FillCeiling fills all, at or below EmptyCeiling
	// empties all.
	FillCeiling  float64 `mapstructure:"fill_ceiling" yaml:"fill_ceiling" json:"fill_ceiling"`
	EmptyCeiling float64 `mapstructure:"empty_ceiling" yaml:"empty_ceiling" json:"empty_ceiling"`
}

// DefaultConfig returns the classifier defaults.
func DefaultConfig() Config {
	return Config{
		Standard:        Neighbourhood{Range: 4, Step: 2},
		ExamNumber:      Neighbourhood{Range: 2, Step: 1},
		DarkWeight:      0.5,
		MaxThreshold:    180,
		CertainlyFilled: 0.002,
		FilledCeiling:   120,
		Uniform:         0.01,
		Same:            150,
		FillCeiling:     50,
		EmptyCeiling:    25,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for name, n := range map[string]Neighbourhood{"standard": c.Standard, "exam_number": c.ExamNumber} {
		if n.Range < 0 || n.Step < 1 {
			return fmt.Errorf("%s neighbourhood needs range >= 0 and step >= 1", name)
		}
	}
	if c.DarkWeight < 0 {
		return fmt.Errorf("dark_weight must be >= 0, got %f", c.DarkWeight)
	}
	if c.CertainlyFilled < 0 || c.Uniform < c.CertainlyFilled {
		return fmt.Errorf("need 0 <= certainly_filled <= uniform, got %f and %f", c.CertainlyFilled, c.Uniform)
	}
	if c.EmptyCeiling < 0 || c.FillCeiling > 100 || c.EmptyCeiling >= c.FillCeiling {
		return fmt.Errorf("need 0 <= empty_ceiling < fill_ceiling <= 100, got %f and %f", c.EmptyCeiling, c.FillCeiling)
	}
	return nil
}
