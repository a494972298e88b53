package raster

import (
	"errors"
	"image"
	"slices"

	"github.com/MeKo-Tech/omr/internal/utils"
)

const (
	estimateBox   = 200
	estimateBoxes = 10
)

// ErrTooFewBoxes is returned when a raster is too small to sample enough
// boxes for threshold estimation.
var ErrTooFewBoxes = errors.New("not enough boxes (less than 10) to estimate the threshold")

// EstimateBinarizationThreshold samples 200x200 boxes on a 200 px grid and
// returns the mean of the 10 brightest box averages, an estimate of the paper
// brightness under the photograph's lighting.
func EstimateBinarizationThreshold(g *image.Gray) (uint8, error) {
	in := NewIntegral(g)
	defer in.Release()

	var averages []int64
	for y := 0; y < in.H; y += estimateBox {
		for x := 0; x < in.W; x += estimateBox {
			right := min(x+estimateBox, in.W-1)
			bottom := min(y+estimateBox, in.H-1)
			r := utils.NewRect(x, y, right-x+1, bottom-y+1)
			n := int64(r.W * r.H)
			if n <= 0 {
				continue
			}
			averages = append(averages, in.Sum(r)/n)
		}
	}
	if len(averages) < estimateBoxes {
		return 0, ErrTooFewBoxes
	}
	slices.SortFunc(averages, func(a, b int64) int { return int(b - a) })
	var total int64
	for _, v := range averages[:estimateBoxes] {
		total += v
	}
	return uint8(total / estimateBoxes), nil
}
