package utils

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero-length vectors have similarity 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// EuclideanDistance returns the distance between two points.
func EuclideanDistance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// MeanAbsoluteDifference returns mean(|a[i]-b[i]|) over the shorter of the two slices.
func MeanAbsoluteDifference(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := range n {
		sum += math.Abs(a[i] - b[i])
	}
	return sum / float64(n)
}

// RotatePoint rotates p about center by angle radians. In image coordinates
// (y pointing down) a positive angle turns clockwise.
func RotatePoint(p, center Point, angle float64) Point {
	sin, cos := math.Sincos(angle)
	dx, dy := p.X-center.X, p.Y-center.Y
	return Point{
		X: center.X + dx*cos - dy*sin,
		Y: center.Y + dx*sin + dy*cos,
	}
}

// RotateRect rotates the anchor corner of r about center, keeping w and h.
// Coordinates round to the nearest pixel.
func RotateRect(r Rect, center Point, angle float64) Rect {
	p := RotatePoint(r.Origin(), center, angle)
	return Rect{X: int(math.Round(p.X)), Y: int(math.Round(p.Y)), W: r.W, H: r.H}
}

// AngleAt returns the angle in degrees at vertex v formed by the rays to a and b.
// Degenerate rays yield 0.
func AngleAt(v, a, b Point) float64 {
	ax, ay := a.X-v.X, a.Y-v.Y
	bx, by := b.X-v.X, b.Y-v.Y
	na, nb := math.Hypot(ax, ay), math.Hypot(bx, by)
	if na == 0 || nb == 0 {
		return 0
	}
	c := (ax*bx + ay*by) / (na * nb)
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * 180 / math.Pi
}

// SignedAngle returns the rotation in radians that turns vector a onto vector b.
func SignedAngle(a, b Point) float64 {
	return math.Atan2(a.X*b.Y-a.Y*b.X, a.X*b.X+a.Y*b.Y)
}

// ClampRect clips r to a w x h raster. The result may be empty.
func ClampRect(r Rect, w, h int) Rect {
	x0 := clampInt(r.X, 0, w)
	y0 := clampInt(r.Y, 0, h)
	x1 := clampInt(r.X+r.W, 0, w)
	y1 := clampInt(r.Y+r.H, 0, h)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
