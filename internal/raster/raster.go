// Package raster turns a decoded photograph into the bundle of derived
// rasters every later recognition stage reads from.
package raster

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/segment"
	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// Image is a registered photograph: the colour raster plus the blurred,
// binarized and morphological rasters and their integral tables. Rotations
// mutate every raster in place and rebuild the integrals.
type Image struct {
	RGB    *image.NRGBA
	Blur   *image.Gray
	Binary *image.Gray
	Morph  *image.Gray

	IntegralBinary *Integral
	IntegralMorph  *Integral

	// Rotated90 is set when preprocessing turned the photograph to match the
	// template orientation.
	Rotated90 bool
	// MorphParams records the triple that produced Morph.
	MorphParams MorphParams
	// FillThreshold is the threshold that produced Binary.
	FillThreshold uint8
}

// Width returns the raster width.
func (im *Image) Width() int { return im.RGB.Bounds().Dx() }

// Height returns the raster height.
func (im *Image) Height() int { return im.RGB.Bounds().Dy() }

// Preprocess builds a registered image. When expected has a non-zero size and
// its orientation disagrees with the photograph, the photograph is first turned
// 90° clockwise.
func Preprocess(src image.Image, expected image.Point, cfg Config) (*Image, error) {
	if err := utils.ValidateImage(src); err != nil {
		return nil, err
	}
	rgb := utils.ToNRGBA(src)
	rotated := false
	if expected.X > 0 && expected.Y > 0 {
		b := rgb.Bounds()
		if (expected.Y > expected.X) != (b.Dy() > b.Dx()) {
			rgb = imaging.Rotate270(rgb)
			rotated = true
		}
	}

	blurred := utils.ToGray(rgb)
	if cfg.BlurSigma > 0 {
		blurred = utils.ToGray(imaging.Blur(blurred, cfg.BlurSigma))
	}

	threshold := cfg.FillThreshold
	if cfg.AutoThreshold {
		if est, err := EstimateBinarizationThreshold(blurred); err == nil {
			threshold = uint8(math.Round(float64(est) * cfg.AutoThresholdRatio))
		}
	}

	im := &Image{
		RGB:           rgb,
		Blur:          blurred,
		Binary:        Binarize(blurred, threshold),
		Rotated90:     rotated,
		FillThreshold: threshold,
	}
	im.IntegralBinary = NewIntegral(im.Binary)
	im.Remorph(cfg.Morph)
	return im, nil
}

// Binarize maps pixels below threshold to 0 and the rest to 255.
func Binarize(g *image.Gray, threshold uint8) *image.Gray {
	return segment.Threshold(g, threshold)
}

// Morphology binarizes g at p.Threshold, erodes with radius p.Erode, then
// dilates and erodes again with radius p.Dilate. Erosion grows dark regions,
// so the first pass reconnects broken marker borders and the closing pair
// removes small dark specks.
func Morphology(g *image.Gray, p MorphParams) *image.Gray {
	out := Binarize(g, p.Threshold)
	out = erode(out, p.Erode)
	out = dilate(out, p.Dilate)
	return erode(out, p.Dilate)
}

// Remorph rebuilds the morphological raster and its integral from Blur.
func (im *Image) Remorph(p MorphParams) {
	im.IntegralMorph.Release()
	im.Morph = Morphology(im.Blur, p)
	im.IntegralMorph = NewIntegral(im.Morph)
	im.MorphParams = p
}

// Rotate turns every raster by angle radians about pivot. A positive angle is
// clockwise in image coordinates, matching utils.RotatePoint. Uncovered pixels
// become white.
func (im *Image) Rotate(angle float64, pivot utils.Point) {
	if angle == 0 {
		return
	}
	deg := angle * 180 / math.Pi
	opts := &transform.RotationOptions{
		Pivot: &image.Point{X: int(math.Round(pivot.X)), Y: int(math.Round(pivot.Y))},
	}
	im.RGB = utils.FlattenOnWhite(transform.Rotate(im.RGB, deg, opts))
	im.Blur = utils.GrayFromRGBA(transform.Rotate(im.Blur, deg, opts))
	im.Binary = utils.GrayFromRGBA(transform.Rotate(im.Binary, deg, opts))
	im.Morph = utils.GrayFromRGBA(transform.Rotate(im.Morph, deg, opts))
	im.rebuildIntegrals()
}

// Rotate180 turns every raster by 180°. Pixel (x,y) moves to (W-1-x, H-1-y),
// which is not a turn about (W/2, H/2) for even sizes. Rectangles must be
// carried across with match.Rotate180Fiducials, not utils.RotatePoint.
func (im *Image) Rotate180() {
	im.RGB = imaging.Rotate180(im.RGB)
	im.Blur = utils.ToGray(imaging.Rotate180(im.Blur))
	im.Binary = utils.ToGray(imaging.Rotate180(im.Binary))
	im.Morph = utils.ToGray(imaging.Rotate180(im.Morph))
	im.rebuildIntegrals()
}

func (im *Image) rebuildIntegrals() {
	im.IntegralBinary.Release()
	im.IntegralMorph.Release()
	im.IntegralBinary = NewIntegral(im.Binary)
	im.IntegralMorph = NewIntegral(im.Morph)
}

// Clone returns a deep copy with its own integral tables.
func (im *Image) Clone() *Image {
	c := *im
	c.RGB = imaging.Clone(im.RGB)
	c.Blur = cloneGray(im.Blur)
	c.Binary = cloneGray(im.Binary)
	c.Morph = cloneGray(im.Morph)
	c.IntegralBinary = NewIntegral(c.Binary)
	c.IntegralMorph = NewIntegral(c.Morph)
	return &c
}

// Release hands the integral buffers back to the pool.
func (im *Image) Release() {
	im.IntegralBinary.Release()
	im.IntegralMorph.Release()
}

func cloneGray(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Bounds())
	copy(out.Pix, g.Pix)
	return out
}
