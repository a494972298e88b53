package detector

import (
	"image"

	"github.com/MeKo-Tech/omr/internal/mempool"
)

// compStats holds the bounding box and pixel count of a connected component.
type compStats struct {
	count int
	minX  int
	minY  int
	maxX  int
	maxY  int
}

func (c compStats) width() int  { return c.maxX - c.minX + 1 }
func (c compStats) height() int { return c.maxY - c.minY + 1 }

// darkMask marks pixels of g below 128. The mask comes from the pool and must
// be returned with mempool.PutBool.
func darkMask(g *image.Gray) ([]bool, int, int) {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := mempool.GetBool(w * h)
	for y := range h {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range row {
			if v < 128 {
				mask[y*w+x] = true
			}
		}
	}
	return mask, w, h
}

// connectedComponents labels the 4-connected components of mask. Labels start
// at 1; label i belongs to comps[i-1].
func connectedComponents(mask []bool, w, h int) ([]compStats, []int32) {
	labels := make([]int32, w*h)
	var comps []compStats
	var queue []int
	label := int32(1)

	for y := range h {
		for x := range w {
			idx := y*w + x
			if mask[idx] && labels[idx] == 0 {
				var st compStats
				st, queue = performComponentBFS(mask, labels, queue[:0], w, h, x, y, label)
				comps = append(comps, st)
				label++
			}
		}
	}

	return comps, labels
}

// performComponentBFS floods one component from a seed pixel.
func performComponentBFS(mask []bool, labels []int32, queue []int,
	w, h, startX, startY int, label int32,
) (compStats, []int) {
	st := compStats{minX: startX, minY: startY, maxX: startX, maxY: startY}
	start := startY*w + startX
	labels[start] = label
	queue = append(queue, start)

	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

	for head := 0; head < len(queue); head++ {
		ci := queue[head]
		cx, cy := ci%w, ci/w
		updateComponentStats(&st, cx, cy)
		for _, d := range dirs {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := ny*w + nx
			if mask[ni] && labels[ni] == 0 {
				labels[ni] = label
				queue = append(queue, ni)
			}
		}
	}
	return st, queue
}

func updateComponentStats(st *compStats, cx, cy int) {
	st.count++
	st.minX = min(st.minX, cx)
	st.minY = min(st.minY, cy)
	st.maxX = max(st.maxX, cx)
	st.maxY = max(st.maxY, cy)
}
