package refine

import (
	"math"

	"github.com/MeKo-Tech/omr/internal/raster"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// SearchEdges moves each edge of r to the strongest ink transition within
// EdgeRange. Transitions are measured between adjacent one-pixel strips
// spanning r, so both a dark marker on paper and an ink-free pocket inside
// ink are tightened. An axis keeps its old edges when the new size would
// leave [MinSize, MaxSize] or when no transition is found.
func (r *Refiner) SearchEdges(in *raster.Integral, rect utils.Rect) utils.Rect {
	rng := r.cfg.EdgeRange
	if rng == 0 {
		return rect
	}

	row := func(y int) float64 { return in.Ink(utils.NewRect(rect.X, y, rect.W, 1)) }
	top, okTop := strongestStep(rect.Y, rng, func(y int) float64 { return row(y) - row(y-1) })
	bottom, okBottom := strongestStep(rect.Y+rect.H-1, rng, func(y int) float64 { return row(y) - row(y+1) })
	if okTop && okBottom {
		if h := bottom - top + 1; h >= r.cfg.MinSize && h <= r.cfg.MaxSize {
			rect.Y, rect.H = top, h
		}
	}

	col := func(x int) float64 { return in.Ink(utils.NewRect(x, rect.Y, 1, rect.H)) }
	left, okLeft := strongestStep(rect.X, rng, func(x int) float64 { return col(x) - col(x-1) })
	right, okRight := strongestStep(rect.X+rect.W-1, rng, func(x int) float64 { return col(x) - col(x+1) })
	if okLeft && okRight {
		if w := right - left + 1; w >= r.cfg.MinSize && w <= r.cfg.MaxSize {
			rect.X, rect.W = left, w
		}
	}
	return rect
}

// strongestStep returns the position in [at-rng, at+rng] with the largest
// absolute step. Ties keep the position closest to at.
func strongestStep(at, rng int, step func(int) float64) (int, bool) {
	best, bestV := at, 0.0
	for d := 0; d <= rng; d++ {
		for _, p := range [2]int{at - d, at + d} {
			if v := math.Abs(step(p)); v > bestV {
				best, bestV = p, v
			}
		}
	}
	return best, bestV > 0
}
