package raster

import (
	"image"

	"github.com/MeKo-Tech/omr/internal/mempool"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// Integral is a summed-area table over an 8-bit raster. Entry (x,y) holds the
// sum of all pixels strictly above and left of (x,y), so the table is
// (w+1) x (h+1) and rectangle sums need no edge cases.
type Integral struct {
	W, H int
	sums []int64
}

// NewIntegral builds the summed-area table of g.
func NewIntegral(g *image.Gray) *Integral {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := w + 1
	sums := mempool.GetInt64(stride * (h + 1))
	for y := range h {
		row := g.Pix[(y)*g.Stride : (y)*g.Stride+w]
		var acc int64
		base := (y + 1) * stride
		prev := y * stride
		for x, v := range row {
			acc += int64(v)
			sums[base+x+1] = sums[prev+x+1] + acc
		}
	}
	return &Integral{W: w, H: h, sums: sums}
}

// Release returns the table to the buffer pool. The Integral must not be used afterwards.
func (in *Integral) Release() {
	if in == nil || in.sums == nil {
		return
	}
	mempool.PutInt64(in.sums)
	in.sums = nil
}

func (in *Integral) at(x, y int) int64 { return in.sums[y*(in.W+1)+x] }

// Sum returns the pixel sum of r clipped to the raster.
func (in *Integral) Sum(r utils.Rect) int64 {
	c := utils.ClampRect(r, in.W, in.H)
	if c.Area() == 0 {
		return 0
	}
	x0, y0, x1, y1 := c.X, c.Y, c.X+c.W, c.Y+c.H
	return in.at(x1, y1) - in.at(x0, y1) - in.at(x1, y0) + in.at(x0, y0)
}

// Mean returns the mean pixel value of r clipped to the raster, and the
// number of pixels it covered.
func (in *Integral) Mean(r utils.Rect) (float64, int) {
	c := utils.ClampRect(r, in.W, in.H)
	n := c.Area()
	if n == 0 {
		return 0, 0
	}
	return float64(in.Sum(c)) / float64(n), n
}

// FillRate is 1 - mean/255 over r: 1 for solid ink, 0 for blank paper.
// Regions entirely outside the raster have fill rate 0.
func (in *Integral) FillRate(r utils.Rect) float64 {
	mean, n := in.Mean(r)
	if n == 0 {
		return 0
	}
	return 1 - mean/255
}

// Ink returns the amount of ink in r measured in pixels (255 - value summed, / 255).
func (in *Integral) Ink(r utils.Rect) float64 {
	c := utils.ClampRect(r, in.W, in.H)
	n := c.Area()
	if n == 0 {
		return 0
	}
	return float64(int64(n)*255-in.Sum(c)) / 255
}
