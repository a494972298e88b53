package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omr/internal/utils"
)

func squareMask(w, h int, r utils.Rect) []bool {
	mask := make([]bool, w*h)
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			mask[y*w+x] = true
		}
	}
	return mask
}

func TestConnectedComponents(t *testing.T) {
	w, h := 20, 10
	mask := squareMask(w, h, utils.NewRect(1, 1, 3, 3))
	for i, v := range squareMask(w, h, utils.NewRect(10, 2, 5, 4)) {
		mask[i] = mask[i] || v
	}
	// diagonal neighbour only: separate under 4-connectivity
	mask[4*w+4] = true

	comps, labels := connectedComponents(mask, w, h)
	require.Len(t, comps, 3)
	assert.Equal(t, compStats{count: 9, minX: 1, minY: 1, maxX: 3, maxY: 3}, comps[0])
	assert.Equal(t, 20, comps[1].count)
	assert.Equal(t, 5, comps[1].width())
	assert.Equal(t, 4, comps[1].height())
	assert.Equal(t, int32(2), labels[2*w+10])
	assert.Equal(t, int32(0), labels[0])
}

func TestTraceContourMoore_Square(t *testing.T) {
	w, h := 10, 10
	mask := squareMask(w, h, utils.NewRect(2, 2, 4, 4))
	comps, labels := connectedComponents(mask, w, h)
	require.Len(t, comps, 1)

	pts := traceContourMoore(labels, w, h, 1, comps[0])
	assert.Equal(t, []utils.Point{{X: 2, Y: 2}, {X: 5, Y: 2}, {X: 5, Y: 5}, {X: 2, Y: 5}}, pts)
}

func TestTraceContourMoore_SinglePixelAndBadLabel(t *testing.T) {
	w, h := 5, 5
	mask := squareMask(w, h, utils.NewRect(2, 2, 1, 1))
	comps, labels := connectedComponents(mask, w, h)
	assert.Equal(t, []utils.Point{{X: 2, Y: 2}}, traceContourMoore(labels, w, h, 1, comps[0]))
	assert.Nil(t, traceContourMoore(labels, w, h, 0, comps[0]))
}

func TestCandidateFromContour_RotatedSquare(t *testing.T) {
	// a 30px square turned by about 4°
	contour := []utils.Point{{X: 10, Y: 12}, {X: 39, Y: 10}, {X: 41, Y: 39}, {X: 12, Y: 41}}
	c := candidateFromContour(contour)
	assert.Equal(t, utils.NewRect(10, 12, 30, 30), c.Rect)
	assert.Equal(t, utils.Point{X: 39, Y: 10}, c.TR)
	assert.Equal(t, utils.Point{X: 12, Y: 41}, c.BL)
}
