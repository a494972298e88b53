package geometry

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// Result is a validated fiducial set.
type Result struct {
	Corners  [4]utils.Rect
	Repaired bool
}

// Check validates set and falls back to Repair when it is invalid.
func (v *Validator) Check(set [4]utils.Rect, expected [2]float64) (Result, error) {
	err := v.Validate(set, expected)
	if err == nil {
		return Result{Corners: set}, nil
	}
	repaired, rerr := v.Repair(set[:], expected)
	if rerr != nil {
		return Result{}, fmt.Errorf("%w (repair: %w)", err, rerr)
	}
	return Result{Corners: repaired, Repaired: true}, nil
}

// Repair rebuilds a fiducial set from the three candidates that form the angle
// closest to 90°. Duplicate and outlier candidates are dropped first. The
// missing corner is the parallelogram completion of the triple and takes the
// average size of the three. The result is re-sorted and validated.
func (v *Validator) Repair(cands []utils.Rect, expected [2]float64) ([4]utils.Rect, error) {
	var out [4]utils.Rect

	pts := unique(cands)
	if len(pts) >= 3 {
		flags := v.outliers(pts, expected)
		kept := pts[:0:0]
		for i, p := range pts {
			if !flags[i] {
				kept = append(kept, p)
			}
		}
		pts = kept
	}
	if len(pts) < 3 {
		return out, ErrTooFewPoints
	}

	bestScore := math.Inf(1)
	var best [4]utils.Rect
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				quad, score := complete(pts[i], pts[j], pts[k])
				if score < bestScore {
					bestScore, best = score, quad
				}
			}
		}
	}

	out = Order(best)
	if err := v.Validate(out, expected); err != nil {
		return out, err
	}
	return out, nil
}

// complete picks the vertex of the triple whose angle is closest to 90° as the
// corner and adds the fourth point opposite to it. The score is the angle's
// distance from 90°.
func complete(a, b, c utils.Rect) ([4]utils.Rect, float64) {
	tri := [3]utils.Rect{a, b, c}
	corner, score := 0, math.Inf(1)
	for i := range tri {
		n1, n2 := tri[(i+1)%3], tri[(i+2)%3]
		d := math.Abs(utils.AngleAt(tri[i].Origin(), n1.Origin(), n2.Origin()) - 90)
		if d < score {
			corner, score = i, d
		}
	}
	n1, n2 := tri[(corner+1)%3], tri[(corner+2)%3]
	c0 := tri[corner]
	w := int(math.Round(float64(a.W+b.W+c.W) / 3))
	h := int(math.Round(float64(a.H+b.H+c.H) / 3))
	missing := utils.NewRect(n1.X+n2.X-c0.X, n1.Y+n2.Y-c0.Y, w, h)
	return [4]utils.Rect{a, b, c, missing}, score
}

// Order sorts four rectangles into (TL, TR, BL, BR) by the extremes of x+y and x−y.
func Order(rects [4]utils.Rect) [4]utils.Rect {
	var out [4]utils.Rect
	minSum, maxSum := 0, 0
	minDiff, maxDiff := 0, 0
	for i, r := range rects {
		s, d := r.X+r.Y, r.X-r.Y
		if s < rects[minSum].X+rects[minSum].Y {
			minSum = i
		}
		if s > rects[maxSum].X+rects[maxSum].Y {
			maxSum = i
		}
		if d < rects[minDiff].X-rects[minDiff].Y {
			minDiff = i
		}
		if d > rects[maxDiff].X-rects[maxDiff].Y {
			maxDiff = i
		}
	}
	out[TopLeft] = rects[minSum]
	out[TopRight] = rects[maxDiff]
	out[BottomLeft] = rects[minDiff]
	out[BottomRight] = rects[maxSum]
	return out
}

func unique(rects []utils.Rect) []utils.Rect {
	out := make([]utils.Rect, 0, len(rects))
	for _, r := range rects {
		dup := false
		for _, o := range out {
			if o == r {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}
