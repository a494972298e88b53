package fill

import (
	"image"
	"math"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// Histogram counts 8-bit grey values.
type Histogram [256]int64

// AddRect counts the pixels of g inside r; parts outside g are skipped.
func (h *Histogram) AddRect(g *image.Gray, r utils.Rect) {
	b := g.Bounds()
	rr := r.ToImageRect().Add(b.Min).Intersect(b)
	for y := rr.Min.Y; y < rr.Max.Y; y++ {
		off := (y-b.Min.Y)*g.Stride + (rr.Min.X - b.Min.X)
		for _, v := range g.Pix[off : off+rr.Dx()] {
			h[v]++
		}
	}
}

// Merge adds o into h.
func (h *Histogram) Merge(o *Histogram) {
	for i, v := range o {
		h[i] += v
	}
}

// Total returns the number of counted pixels.
func (h *Histogram) Total() int64 {
	var n int64
	for _, v := range h {
		n += v
	}
	return n
}

// Ratio returns the fraction of counted pixels with a value <= t, or 0 for
// an empty histogram.
func (h *Histogram) Ratio(t int) float64 {
	var n, below int64
	for i, v := range h {
		n += v
		if i <= t {
			below += v
		}
	}
	if n == 0 {
		return 0
	}
	return float64(below) / float64(n)
}

// Otsu returns the threshold of h and its between-class variance.
func (h *Histogram) Otsu() (int, float64) {
	return otsu(h[:])
}

// otsu picks the threshold t (class 0 holds values <= t) that maximises the
// between-class variance w0·w1·(μ0−μ1)². Where several consecutive
// thresholds reach the maximum, as across an empty gap between two clusters,
// the middle of that run is returned. A histogram with fewer than two
// occupied bins returns its rounded mean and zero variance.
func otsu(hist []int64) (int, float64) {
	var n int64
	var sum float64
	occupied := 0
	for i, v := range hist {
		n += v
		sum += float64(i) * float64(v)
		if v > 0 {
			occupied++
		}
	}
	if n == 0 {
		return 0, 0
	}
	if occupied < 2 {
		return int(math.Round(sum / float64(n))), 0
	}

	best := -1.0
	first, last := 0, 0
	var n0 int64
	var sum0 float64
	for t := 0; t < len(hist)-1; t++ {
		n0 += hist[t]
		sum0 += float64(t) * float64(hist[t])
		n1 := n - n0
		if n0 == 0 || n1 == 0 {
			continue
		}
		w0 := float64(n0) / float64(n)
		w1 := 1 - w0
		d := sum0/float64(n0) - (sum-sum0)/float64(n1)
		v := w0 * w1 * d * d
		switch {
		case v > best*(1+1e-12):
			best, first, last = v, t, t
		case v >= best*(1-1e-12) && t == last+1:
			last = t
		}
	}
	return (first + last) / 2, best
}

// otsuValues runs otsu over percent values in [0,100].
func otsuValues(values []float64) (int, float64) {
	hist := make([]int64, 101)
	for _, v := range values {
		hist[clampPercent(v)]++
	}
	return otsu(hist)
}

func clampPercent(v float64) int {
	return max(0, min(100, int(math.Round(v))))
}
