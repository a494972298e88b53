package detector

import "github.com/MeKo-Tech/omr/internal/utils"

// traceContourMoore returns the outer boundary of a labeled component using
// Moore-neighbour tracing, restricted to the component's bounding box for the
// start search. Collinear runs collapse to their end points, so polygon
// vertices (and with them all extreme points) survive. Points are pixel
// centres.
func traceContourMoore(labels []int32, w, h int, label int32, st compStats) []utils.Point {
	if label <= 0 || len(labels) != w*h {
		return nil
	}

	sx, sy := findStartingPixel(labels, w, label, st)
	if sx == -1 {
		return nil
	}

	pts := make([]utils.Point, 0, 64)
	addPoint := func(x, y int) {
		p := utils.Point{X: float64(x), Y: float64(y)}
		n := len(pts)
		if n > 0 && pts[n-1] == p {
			return
		}
		if n >= 2 && collinear(pts[n-2], pts[n-1], p) {
			pts = pts[:n-1]
		}
		pts = append(pts, p)
	}

	cx, cy := sx, sy
	bx, by := sx-1, sy // the start is the first pixel in raster order, so its west is background
	addPoint(cx, cy)

	maxSteps := 4*st.count + 8
	for range maxSteps {
		nx, ny, found := nextBoundaryPixel(labels, w, h, label, cx, cy, bx, by)
		if !found {
			break // isolated pixel
		}
		bx, by = cx, cy
		cx, cy = nx, ny
		if cx == sx && cy == sy {
			break
		}
		addPoint(cx, cy)
	}

	if n := len(pts); n >= 3 && collinear(pts[n-2], pts[n-1], pts[0]) {
		pts = pts[:n-1]
	}
	return pts
}

func collinear(a, b, c utils.Point) bool {
	return (b.X-a.X)*(c.Y-b.Y)-(b.Y-a.Y)*(c.X-b.X) == 0
}

// findStartingPixel returns the first pixel of label in raster order.
func findStartingPixel(labels []int32, w int, label int32, st compStats) (int, int) {
	for y := st.minY; y <= st.maxY; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			if labels[y*w+x] == label {
				return x, y
			}
		}
	}
	return -1, -1
}

// 8-neighbourhood in clockwise order: E, SE, S, SW, W, NW, N, NE.
var (
	ndx = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	ndy = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

func dirIndex(dx, dy int) int {
	for i := range 8 {
		if ndx[i] == dx && ndy[i] == dy {
			return i
		}
	}
	return 0
}

// nextBoundaryPixel scans the neighbours of (cx,cy) clockwise, starting just
// after the backtrack pixel, and returns the first one carrying label.
func nextBoundaryPixel(labels []int32, w, h int, label int32, cx, cy, bx, by int) (int, int, bool) {
	start := (dirIndex(bx-cx, by-cy) + 1) % 8
	for k := range 8 {
		i := (start + k) % 8
		tx, ty := cx+ndx[i], cy+ndy[i]
		if tx >= 0 && ty >= 0 && tx < w && ty < h && labels[ty*w+tx] == label {
			return tx, ty, true
		}
	}
	return 0, 0, false
}
