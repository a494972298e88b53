// Package render draws debug overlays of a recognized page: detected
// fiducials, assist markers and every resolved answer region with its value.
// Rendering only reads recognition results.
package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// Region is one resolved answer region.
type Region struct {
	Rect   utils.Rect
	Label  string
	Marked bool
}

// Page collects what gets drawn over one rectified photograph.
type Page struct {
	Fiducials []utils.Rect
	Assists   []utils.Rect
	Regions   []Region
}

// Style holds the overlay colours.
type Style struct {
	Fiducial color.RGBA
	Assist   color.RGBA
	Region   color.RGBA
	Marked   color.RGBA
	Text     color.RGBA
	Face     font.Face
}

// DefaultStyle returns the overlay colours used by the CLI.
func DefaultStyle() Style {
	return Style{
		Fiducial: color.RGBA{R: 255, A: 255},
		Assist:   color.RGBA{B: 255, A: 255},
		Region:   color.RGBA{G: 160, A: 255},
		Marked:   color.RGBA{R: 255, G: 140, A: 255},
		Text:     color.RGBA{R: 200, B: 200, A: 255},
		Face:     basicfont.Face7x13,
	}
}

// Overlay returns an RGBA copy of img with p drawn over it.
func Overlay(img image.Image, p Page, st Style) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	for _, f := range p.Fiducials {
		utils.DrawRect(dst, f.ToImageRect(), st.Fiducial, 3)
	}
	// fiducials come ordered TL, TR, BL, BR
	if len(p.Fiducials) == 4 {
		for _, e := range [][2]int{{0, 1}, {1, 3}, {3, 2}, {2, 0}} {
			utils.DrawLine(dst, center(p.Fiducials[e[0]]), center(p.Fiducials[e[1]]), st.Fiducial, 1)
		}
	}
	for _, a := range p.Assists {
		utils.DrawRect(dst, a.ToImageRect(), st.Assist, 2)
	}
	for _, r := range p.Regions {
		if r.Marked {
			utils.FillRect(dst, r.Rect.ToImageRect(), st.Marked, 0.35)
			utils.DrawRect(dst, r.Rect.ToImageRect(), st.Marked, 2)
		} else {
			utils.DrawRect(dst, r.Rect.ToImageRect(), st.Region, 1)
		}
		if r.Label != "" {
			Label(dst, r.Label, image.Pt(r.Rect.X, r.Rect.Y-2), st)
		}
	}
	return dst
}

func center(r utils.Rect) utils.Point {
	o, f := r.Origin(), r.Far()
	return utils.Point{X: (o.X + f.X) / 2, Y: (o.Y + f.Y) / 2}
}

// Label writes text with its baseline at pt. Text above the top edge is moved
// below it.
func Label(dst draw.Image, text string, pt image.Point, st Style) {
	face := st.Face
	if face == nil {
		face = basicfont.Face7x13
	}
	ascent := face.Metrics().Ascent.Ceil()
	if pt.Y-ascent < dst.Bounds().Min.Y {
		pt.Y = dst.Bounds().Min.Y + ascent
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(st.Text),
		Face: face,
		Dot:  fixed.P(pt.X, pt.Y),
	}
	d.DrawString(text)
}
