// Package fill decides which answer bubbles of a group are filled. Each group
// gets its own grey threshold from a small positional search, with overrides
// for groups that look uniform, and a final pass binarizes the fill rates.
package fill

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// Mode tells which branch produced a group's fill rates.
type Mode int

const (
	// ModeSearch is the best offset of the neighbourhood search.
	ModeSearch Mode = iota
	// ModeAllFilled is the ink bleed-through override.
	ModeAllFilled
	// ModePage used the page-wide threshold for a uniform group.
	ModePage
)

func (m Mode) String() string {
	switch m {
	case ModeAllFilled:
		return "all_filled"
	case ModePage:
		return "page"
	default:
		return "search"
	}
}

// Group is the classification of one answer group.
type Group struct {
	// Fills are the raw fill rates in [0,1], one per option.
	Fills []float64
	// Threshold is the grey threshold that produced Fills.
	Threshold int
	// Offset is the positional offset applied to every option.
	Offset image.Point
	Mode   Mode
	// MinVariance is the smallest fill-rate variance seen during the search.
	MinVariance float64
}

// Classifier is stateless and safe for concurrent use.
type Classifier struct {
	cfg Config
}

// New creates a classifier.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config returns the classifier configuration.
func (c *Classifier) Config() Config { return c.cfg }

// PageThreshold returns the Otsu threshold of every fill-type option on a
// page, capped at MaxThreshold.
func (c *Classifier) PageThreshold(blur *image.Gray, groups [][]utils.Rect) int {
	var h Histogram
	for _, rects := range groups {
		for _, r := range rects {
			h.AddRect(blur, r)
		}
	}
	t, _ := h.Otsu()
	return min(t, int(c.cfg.MaxThreshold))
}

// Classify searches the neighbourhood n around rects on the blurred raster.
// For every offset the combined histogram of all options gives a threshold,
// and the offset whose fill rates spread the most, weighted towards darker
// thresholds, wins. If the smallest spread found is tiny at a dark threshold
// every option is filled; if it is merely small the page threshold pageT is
// used at offset zero.
func (c *Classifier) Classify(blur *image.Gray, rects []utils.Rect, n Neighbourhood, pageT int) Group {
	if len(rects) == 0 {
		return Group{}
	}

	hists := make([]Histogram, len(rects))
	fills := make([]float64, len(rects))
	best := Group{Fills: make([]float64, len(rects))}
	bestScore := math.Inf(-1)
	minVar, minT := math.Inf(1), 0

	offsets := n.Offsets()
	for _, dy := range offsets {
		for _, dx := range offsets {
			var combined Histogram
			for i, r := range rects {
				hists[i] = Histogram{}
				hists[i].AddRect(blur, r.Translate(dx, dy))
				combined.Merge(&hists[i])
			}
			t, _ := combined.Otsu()
			t = min(t, int(c.cfg.MaxThreshold))
			for i := range hists {
				fills[i] = hists[i].Ratio(t)
			}
			_, variance := stat.PopMeanVariance(fills, nil)

			score := variance * (1 + c.cfg.DarkWeight*float64(255-t)/255)
			if score > bestScore {
				bestScore = score
				copy(best.Fills, fills)
				best.Threshold = t
				best.Offset = image.Pt(dx, dy)
			}
			if variance < minVar {
				minVar, minT = variance, t
			}
		}
	}
	best.MinVariance = minVar

	switch {
	case minVar < c.cfg.CertainlyFilled && minT < int(c.cfg.FilledCeiling):
		for i := range best.Fills {
			best.Fills[i] = 1
		}
		best.Threshold, best.Offset, best.Mode = minT, image.Point{}, ModeAllFilled
	case minVar < c.cfg.Uniform:
		for i, r := range rects {
			var h Histogram
			h.AddRect(blur, r)
			best.Fills[i] = h.Ratio(pageT)
		}
		best.Threshold, best.Offset, best.Mode = pageT, image.Point{}, ModePage
	}
	return best
}

// Final binarizes the fill rates of one group. Rates are compared in percent
// against their own Otsu threshold. When the between-class variance is below
// Same the group is uniform: all filled if its maximum reaches FillCeiling,
// all empty if it stays at or below EmptyCeiling, and thresholded otherwise.
func (c *Classifier) Final(fills []float64) []int {
	out := make([]int, len(fills))
	if len(fills) == 0 {
		return out
	}
	values := make([]float64, len(fills))
	hi := 0.0
	for i, f := range fills {
		values[i] = f * 100
		hi = math.Max(hi, values[i])
	}

	t, variance := otsuValues(values)
	if variance < c.cfg.Same {
		switch {
		case hi >= c.cfg.FillCeiling:
			for i := range out {
				out[i] = 1
			}
			return out
		case hi <= c.cfg.EmptyCeiling:
			return out
		}
	}
	for i, v := range values {
		if clampPercent(v) > t {
			out[i] = 1
		}
	}
	return out
}
