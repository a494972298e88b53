// Package detector locates the four corner fiducials of a page photograph
// on its morphological raster and removes small skew.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/omr/internal/geometry"
	"github.com/MeKo-Tech/omr/internal/mempool"
	"github.com/MeKo-Tech/omr/internal/raster"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// ErrNoFiducials is returned when every retry triple failed to produce a
// valid fiducial set.
var ErrNoFiducials = errors.New("no valid fiducial set found")

// Candidate is a dark blob that may be a fiducial. Rect is anchored at the
// blob's top-left extreme; W and H are the distances to the top-right and
// bottom-left extremes, so they stay meaningful under rotation.
type Candidate struct {
	Rect    utils.Rect
	TL      utils.Point
	TR      utils.Point
	BL      utils.Point
	Contour []utils.Point
}

// Result is a successful detection.
type Result struct {
	// Fiducials are ordered TL, TR, BL, BR, in the coordinates of the rotated raster.
	Fiducials [4]utils.Rect
	// Angle is the rotation applied to the raster, in radians.
	Angle    float64
	Params   raster.MorphParams
	Attempts int
	Repaired bool
}

// Detector finds fiducial sets. It is safe for concurrent use.
type Detector struct {
	cfg       Config
	validator *geometry.Validator
}

// New creates a detector.
func New(cfg Config, validator *geometry.Validator) *Detector {
	return &Detector{cfg: cfg, validator: validator}
}

// Detect runs the retry list on im until a valid set is found, then rotates
// im about the top-left fiducial so the top edge is horizontal. expected is
// the template fiducial (w,h). im keeps the morphology of the successful
// attempt.
func (d *Detector) Detect(ctx context.Context, im *raster.Image, expected [2]float64) (Result, error) {
	retries := d.cfg.Retries
	if len(retries) == 0 {
		retries = []raster.MorphParams{im.MorphParams}
	}

	var lastErr error
	for i, p := range retries {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if p != im.MorphParams {
			im.Remorph(p)
		}

		cands := d.Candidates(im.Morph, expected)
		set, err := d.selectCorners(cands, im.Width())
		if err == nil {
			var res geometry.Result
			res, err = d.validator.Check(set, expected)
			if err == nil {
				out := Result{Fiducials: res.Corners, Params: p, Attempts: i + 1, Repaired: res.Repaired}
				d.straighten(im, &out)
				slog.Debug("Fiducials detected",
					"attempt", i+1,
					"params", p.String(),
					"candidates", len(cands),
					"repaired", res.Repaired,
					"angle_deg", out.Angle*180/math.Pi)
				return out, nil
			}
		}
		slog.Debug("Fiducial attempt failed", "attempt", i+1, "params", p.String(),
			"candidates", len(cands), "error", err)
		lastErr = err
	}
	return Result{}, fmt.Errorf("%w after %d attempts: %w", ErrNoFiducials, len(retries), lastErr)
}

// straighten rotates im and the fiducials by the negative top-edge angle.
func (d *Detector) straighten(im *raster.Image, res *Result) {
	tl, tr := res.Fiducials[geometry.TopLeft].Origin(), res.Fiducials[geometry.TopRight].Origin()
	angle := math.Atan2(tr.Y-tl.Y, tr.X-tl.X)
	if math.Abs(angle) < d.cfg.MinAngle {
		return
	}
	im.Rotate(-angle, tl)
	for i, f := range res.Fiducials {
		res.Fiducials[i] = utils.RotateRect(f, tl, -angle)
	}
	res.Angle = -angle
}

// Candidates extracts the blobs of morph that pass the size, position and
// shape filters.
func (d *Detector) Candidates(morph *image.Gray, expected [2]float64) []Candidate {
	mask, w, h := darkMask(morph)
	defer mempool.PutBool(mask)
	comps, labels := connectedComponents(mask, w, h)

	// Rotated squares have a bounding box up to √2 larger than their side.
	maxBox := int(math.Ceil(float64(d.cfg.MaxSize) * math.Sqrt2))
	var out []Candidate
	for i, st := range comps {
		if st.width() < d.cfg.MinSize || st.height() < d.cfg.MinSize ||
			st.width() > maxBox || st.height() > maxBox {
			continue
		}
		contour := traceContourMoore(labels, w, h, int32(i+1), st)
		if len(contour) == 0 {
			continue
		}
		c := candidateFromContour(contour)
		if d.accept(c, h, expected) {
			out = append(out, c)
		}
	}
	return out
}

func candidateFromContour(contour []utils.Point) Candidate {
	tl, tr, bl := contour[0], contour[0], contour[0]
	for _, p := range contour[1:] {
		if p.X+p.Y < tl.X+tl.Y {
			tl = p
		}
		if p.X-p.Y > tr.X-tr.Y {
			tr = p
		}
		if p.X-p.Y < bl.X-bl.Y {
			bl = p
		}
	}
	// Points are pixel centres; +1 restores the covered extent.
	w := int(math.Round(utils.EuclideanDistance(tl, tr))) + 1
	h := int(math.Round(utils.EuclideanDistance(tl, bl))) + 1
	return Candidate{
		Rect:    utils.NewRect(int(tl.X), int(tl.Y), w, h),
		TL:      tl,
		TR:      tr,
		BL:      bl,
		Contour: contour,
	}
}

func (d *Detector) accept(c Candidate, imgH int, expected [2]float64) bool {
	r := c.Rect
	if r.W < d.cfg.MinSize || r.H < d.cfg.MinSize || r.W > d.cfg.MaxSize || r.H > d.cfg.MaxSize {
		return false
	}
	if band := d.cfg.CenterBand; band > 0 {
		y := float64(r.Y)
		if y > band*float64(imgH) && y < (1-band)*float64(imgH) {
			return false
		}
	}
	if expected[0] > 0 && expected[1] > 0 {
		sim := utils.CosineSimilarity([]float64{float64(r.W), float64(r.H)}, expected[:])
		if sim < d.cfg.MinSimilarity {
			return false
		}
	}
	return true
}

// selectCorners picks the extreme candidates as TL, TR, BL, BR.
func (d *Detector) selectCorners(cands []Candidate, imgW int) ([4]utils.Rect, error) {
	var set [4]utils.Rect
	if len(cands) < 3 {
		return set, fmt.Errorf("%w: %d candidates", geometry.ErrTooFewPoints, len(cands))
	}

	tl, tr, bl, br := -1, -1, -1, -1
	for i, c := range cands {
		r := c.Rect
		sum, diff := r.X+r.Y, r.X-r.Y
		if !d.cfg.StrictCorners || 4*r.X < imgW {
			if tl < 0 || sum < cands[tl].Rect.X+cands[tl].Rect.Y {
				tl = i
			}
		}
		if !d.cfg.StrictCorners || 4*r.X > 3*imgW {
			if br < 0 || sum > cands[br].Rect.X+cands[br].Rect.Y {
				br = i
			}
		}
		if tr < 0 || diff > cands[tr].Rect.X-cands[tr].Rect.Y {
			tr = i
		}
		if bl < 0 || diff < cands[bl].Rect.X-cands[bl].Rect.Y {
			bl = i
		}
	}
	if tl < 0 || br < 0 {
		return set, errors.New("no candidate in the left or right quarter")
	}
	set[geometry.TopLeft] = cands[tl].Rect
	set[geometry.TopRight] = cands[tr].Rect
	set[geometry.BottomLeft] = cands[bl].Rect
	set[geometry.BottomRight] = cands[br].Rect
	return set, nil
}
