// Package refine tightens fiducial boundaries after page matching and turns
// assist-marker drift into per-row move operations.
package refine

import (
	"log/slog"

	"github.com/MeKo-Tech/omr/internal/mapping"
	"github.com/MeKo-Tech/omr/internal/match"
	"github.com/MeKo-Tech/omr/internal/raster"
	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// Refiner is stateless and safe for concurrent use.
type Refiner struct {
	cfg     Config
	matcher *match.Matcher
}

// New creates a refiner. matcher scores fiducial refinements.
func New(cfg Config, matcher *match.Matcher) *Refiner {
	return &Refiner{cfg: cfg, matcher: matcher}
}

// RefineFiducials runs the edge search on every fiducial against the binary
// raster. The refined set is kept only when it lowers the page-number score
// of page; a tie keeps the originals. The boolean reports whether it was kept.
func (r *Refiner) RefineFiducials(page *template.Page, im *raster.Image, fids [4]utils.Rect) ([4]utils.Rect, bool) {
	if !r.cfg.Fiducials {
		return fids, false
	}
	var refined [4]utils.Rect
	for i, f := range fids {
		refined[i] = r.SearchEdges(im.IntegralBinary, f)
	}
	if refined == fids {
		return fids, false
	}
	before := r.matcher.Score(page, im, fids)
	after := r.matcher.Score(page, im, refined)
	slog.Debug("Fiducial refinement", "score_before", before, "score_after", after)
	if after >= before {
		return fids, false
	}
	return refined, true
}

// RefineAssists locates the assist markers of page and returns one move
// operation per row. mapper must be the page's mapper without moves.
func (r *Refiner) RefineAssists(page *template.Page, im *raster.Image, mapper *mapping.Mapper) *mapping.Moves {
	moves := mapping.NewMoves()
	n := len(page.AssistPoints)
	if n == 0 {
		return moves
	}

	origL := make([]utils.Rect, n)
	origR := make([]utils.Rect, n)
	for i, ap := range page.AssistPoints {
		origL[i] = mapper.MapRow(ap.Left, ap.Row())
		origR[i] = mapper.MapRow(ap.Right, ap.Row())
	}

	in := im.IntegralBinary
	lefts := r.nudgeGroup(in, origL)
	rights := r.nudgeGroup(in, origR)
	for range r.cfg.Cycles {
		for i := range n {
			lefts[i] = r.SearchEdges(in, nudge(in, lefts[i]))
			rights[i] = r.SearchEdges(in, nudge(in, rights[i]))
		}
	}

	for i, ap := range page.AssistPoints {
		op := mapping.NewMoveOp(ap.Row(), origL[i], origR[i], lefts[i], rights[i])
		moves.Add(op)
		slog.Debug("Assist row move", "row", op.Row, "dx", op.DX, "dy", op.DY, "angle", op.Angle)
	}
	return moves
}

// nudgeGroup translates all rects by the step-sampled offset with the lowest
// mean fill. The zero offset is tried first and only a strictly lower mean
// replaces it.
func (r *Refiner) nudgeGroup(in *raster.Integral, rects []utils.Rect) []utils.Rect {
	meanFill := func(dx, dy int) float64 {
		sum := 0.0
		for _, rc := range rects {
			sum += in.FillRate(rc.Translate(dx, dy))
		}
		return sum / float64(len(rects))
	}

	bestDX, bestDY := 0, 0
	best := meanFill(0, 0)
	g, s := r.cfg.GroupRange, r.cfg.GroupStep
	for dy := -g; dy <= g; dy += s {
		for dx := -g; dx <= g; dx += s {
			if dx == 0 && dy == 0 {
				continue
			}
			if v := meanFill(dx, dy); v < best {
				best, bestDX, bestDY = v, dx, dy
			}
		}
	}

	out := make([]utils.Rect, len(rects))
	for i, rc := range rects {
		out[i] = rc.Translate(bestDX, bestDY)
	}
	return out
}

// neighbours lists the centre first, then the 8-neighbourhood.
var neighbours = [9][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

// nudge moves rc by one pixel towards lower fill, if any neighbour is lower.
func nudge(in *raster.Integral, rc utils.Rect) utils.Rect {
	best := rc
	bestV := in.FillRate(rc)
	for _, d := range neighbours[1:] {
		c := rc.Translate(d[0], d[1])
		if v := in.FillRate(c); v < bestV {
			best, bestV = c, v
		}
	}
	return best
}
