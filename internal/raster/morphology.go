package raster

import "image"

// erode spreads dark pixels over a (2r+1)x(2r+1) square: a pixel turns dark
// when any pixel in its window is dark. Pixels past the border repeat the
// edge. g must be binary (0 or 255).
func erode(g *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return g
	}
	return sweep(sweep(g, radius, 0, true), radius, 0, false)
}

// dilate is erode with the roles of dark and light swapped.
func dilate(g *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return g
	}
	return sweep(sweep(g, radius, 255, true), radius, 255, false)
}

// sweep is one separable pass: out is ink where any pixel within radius along
// the row (horizontal) or column holds ink, and the other level elsewhere.
func sweep(g *image.Gray, radius int, ink uint8, horizontal bool) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	other := 255 - ink
	out := image.NewGray(image.Rect(0, 0, w, h))

	lines, n := h, w
	if !horizontal {
		lines, n = w, h
	}
	idx := func(line, i int) (src, dst int) {
		if horizontal {
			return line*g.Stride + i, line*out.Stride + i
		}
		return i*g.Stride + line, i*out.Stride + line
	}

	// prefix[i] counts ink pixels among the first i of the line
	prefix := make([]int, n+1)
	for line := range lines {
		for i := range n {
			s, _ := idx(line, i)
			prefix[i+1] = prefix[i]
			if g.Pix[s] == ink {
				prefix[i+1]++
			}
		}
		for i := range n {
			lo, hi := max(0, i-radius), min(n, i+radius+1)
			_, d := idx(line, i)
			if prefix[hi]-prefix[lo] > 0 {
				out.Pix[d] = ink
			} else {
				out.Pix[d] = other
			}
		}
	}
	return out
}
