// Package geometry checks that four detected fiducials form a plausible page
// rectangle and rebuilds the set from three corners when one is unusable.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// Corner order used by every fiducial set.
const (
	TopLeft = iota
	TopRight
	BottomLeft
	BottomRight
)

var (
	// ErrInvalid is wrapped by every validation failure.
	ErrInvalid = errors.New("invalid fiducial set")
	// ErrTooFewPoints is returned by Repair when fewer than three usable corners remain.
	ErrTooFewPoints = errors.New("fewer than 3 usable fiducials")
)

// Validator checks fiducial sets against a Config.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Config returns the validator configuration.
func (v *Validator) Config() Config { return v.cfg }

// Validate reports whether set (TL, TR, BL, BR) satisfies the corner contract.
// expected is the template fiducial (w,h) used for the shape comparison.
func (v *Validator) Validate(set [4]utils.Rect, expected [2]float64) error {
	for i := range set {
		for j := i + 1; j < len(set); j++ {
			if set[i] == set[j] {
				return fmt.Errorf("%w: corners %d and %d coincide", ErrInvalid, i, j)
			}
		}
	}

	tl, tr := set[TopLeft].Origin(), set[TopRight].Origin()
	bl, br := set[BottomLeft].Origin(), set[BottomRight].Origin()

	d1 := math.Abs(br.X-tl.X) * math.Abs(br.Y-tl.Y)
	d2 := math.Abs(tr.X-bl.X) * math.Abs(bl.Y-tr.Y)
	if d1 < v.cfg.MinDiagonalArea || d2 < v.cfg.MinDiagonalArea {
		return fmt.Errorf("%w: diagonal areas %.0f/%.0f below %.0f", ErrInvalid, d1, d2, v.cfg.MinDiagonalArea)
	}

	// Top edge against bottom edge; for a parallelogram both vectors agree.
	dx := math.Abs(tr.X + bl.X - tl.X - br.X)
	dy := math.Abs(tr.Y + bl.Y - tl.Y - br.Y)
	if dx > float64(v.cfg.MaxDiff) || dy > float64(v.cfg.MaxDiff) {
		return fmt.Errorf("%w: side difference (%.0f,%.0f) exceeds %d", ErrInvalid, dx, dy, v.cfg.MaxDiff)
	}

	angles := [4]float64{
		utils.AngleAt(tl, tr, bl),
		utils.AngleAt(tr, tl, br),
		utils.AngleAt(bl, tl, br),
		utils.AngleAt(br, tr, bl),
	}
	for i, a := range angles {
		if math.Abs(a-90) > v.cfg.AngleTolerance {
			return fmt.Errorf("%w: corner %d angle %.2f", ErrInvalid, i, a)
		}
	}

	if idx := v.firstOutlier(set[:], expected); idx >= 0 {
		return fmt.Errorf("%w: corner %d is a shape outlier", ErrInvalid, idx)
	}
	return nil
}

// firstOutlier returns the index of the first rectangle whose shape or size is
// an outlier within rects, or -1.
func (v *Validator) firstOutlier(rects []utils.Rect, expected [2]float64) int {
	flags := v.outliers(rects, expected)
	for i, f := range flags {
		if f {
			return i
		}
	}
	return -1
}

func (v *Validator) outliers(rects []utils.Rect, expected [2]float64) []bool {
	sims := make([]float64, len(rects))
	sizes := make([]float64, len(rects))
	for i, r := range rects {
		sims[i] = utils.CosineSimilarity([]float64{float64(r.W), float64(r.H)}, expected[:])
		sizes[i] = float64(r.W + r.H)
	}
	simOut := outlierFlags(sims, v.cfg.OutlierK, func(float64) float64 { return v.cfg.SimilarityFloor })
	sizeOut := outlierFlags(sizes, v.cfg.OutlierK, func(m float64) float64 { return v.cfg.SizeFloor * m })

	flags := make([]bool, len(rects))
	for i := range rects {
		if simOut[i] && sims[i] < v.cfg.SimilarityCeiling {
			flags[i] = true
		}
		if sizeOut[i] {
			flags[i] = true
		}
	}
	return flags
}

// outlierFlags compares each value with the mean and stddev of the others.
// A value is flagged when it leaves mean ± max(k·stddev, floor(mean)).
// Leaving the value out matters for small sets: with four points a single
// extreme value can never exceed 1.5 sample stddevs, since (n-1)/sqrt(n)
// bounds its z-score.
func outlierFlags(vals []float64, k float64, floor func(mean float64) float64) []bool {
	flags := make([]bool, len(vals))
	if len(vals) < 3 {
		return flags
	}
	others := make([]float64, 0, len(vals)-1)
	for i, val := range vals {
		others = others[:0]
		others = append(others, vals[:i]...)
		others = append(others, vals[i+1:]...)
		mean, std := stat.MeanStdDev(others, nil)
		if math.IsNaN(std) {
			std = 0
		}
		if math.Abs(val-mean) > math.Max(k*std, floor(mean)) {
			flags[i] = true
		}
	}
	return flags
}
