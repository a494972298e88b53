package raster

import (
	"image"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// windowPick is the direct (2r+1)^2 neighbourhood search with edge repeat.
func windowPick(g *image.Gray, radius int, ink uint8) []uint8 {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := make([]uint8, w*h)
	for y := range h {
		for x := range w {
			v := 255 - ink
			for ky := -radius; ky <= radius; ky++ {
				for kx := -radius; kx <= radius; kx++ {
					xx := min(max(x+kx, 0), w-1)
					yy := min(max(y+ky, 0), h-1)
					if g.Pix[yy*g.Stride+xx] == ink {
						v = ink
					}
				}
			}
			out[y*w+x] = v
		}
	}
	return out
}

func TestErodeDilate_MatchWindowSearch(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("separable passes equal the square window", prop.ForAll(
		func(w, h, radius int, seed int64) bool {
			g := image.NewGray(image.Rect(0, 0, w, h))
			state := uint64(seed)
			for i := range g.Pix {
				state = state*6364136223846793005 + 1442695040888963407
				if state>>61 == 0 {
					g.Pix[i] = 0
				} else {
					g.Pix[i] = 255
				}
			}
			eroded := erode(g, radius)
			dilated := dilate(g, radius)
			return string(eroded.Pix) == string(windowPick(g, radius, 0)) &&
				string(dilated.Pix) == string(windowPick(g, radius, 255))
		},
		gen.IntRange(1, 30),
		gen.IntRange(1, 30),
		gen.IntRange(1, 6),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestErode_ZeroRadiusIsIdentity(t *testing.T) {
	g := whiteGray(4, 4)
	assert.Same(t, g, erode(g, 0))
	assert.Same(t, g, dilate(g, 0))
}

func TestPreprocess_PageSizedRetriesStayFast(t *testing.T) {
	src := whiteGray(620, 877)
	cfg := DefaultConfig()

	start := time.Now()
	im, err := Preprocess(src, image.Point{}, cfg)
	require.NoError(t, err)
	defer im.Release()
	im.Remorph(MorphParams{Threshold: 200, Erode: 5, Dilate: 7})

	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, uint8(255), im.Morph.GrayAt(300, 400).Y)
}
