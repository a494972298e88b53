package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextPage draws lines of text on a white w x h page, the way a photograph
// of an unrelated document looks to the engine.
func TextPage(w, h int, lines ...string) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
	lineHeight := face.Metrics().Height.Ceil() * 2
	for i, line := range lines {
		drawer.Dot = fixed.P(40, 60+i*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

// SaveImage writes img to path; the format follows the extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, imaging.Save(img, path))
}
