package utils

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{20, 20}, []float64{40, 40}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1}, []float64{1, 1}))
}

func TestMeanAbsoluteDifference(t *testing.T) {
	assert.InDelta(t, 0.2, MeanAbsoluteDifference([]float64{0.1, 0.9}, []float64{0.3, 0.7}), 1e-9)
	assert.Equal(t, 0.0, MeanAbsoluteDifference(nil, nil))
}

func TestAngleAt(t *testing.T) {
	v := Point{0, 0}
	assert.InDelta(t, 90, AngleAt(v, Point{100, 0}, Point{0, 100}), 1e-9)
	assert.InDelta(t, 45, AngleAt(v, Point{1, 0}, Point{1, 1}), 1e-9)
	assert.Equal(t, 0.0, AngleAt(v, v, Point{1, 1}))
}

func TestSignedAngle(t *testing.T) {
	// y points down, so turning +x onto +y is clockwise and positive
	assert.InDelta(t, math.Pi/2, SignedAngle(Point{1, 0}, Point{0, 1}), 1e-9)
	assert.InDelta(t, -math.Pi/2, SignedAngle(Point{1, 0}, Point{0, -1}), 1e-9)
}

func TestClampRect(t *testing.T) {
	assert.Equal(t, NewRect(0, 0, 5, 5), ClampRect(NewRect(-5, -5, 10, 10), 100, 100))
	assert.Equal(t, NewRect(95, 90, 5, 10), ClampRect(NewRect(95, 90, 20, 20), 100, 100))
	assert.Equal(t, 0, ClampRect(NewRect(200, 200, 5, 5), 100, 100).Area())
}

func TestRotatePoint_RoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rotating by theta then -theta restores the point", prop.ForAll(
		func(x, y, cx, cy int, deg float64) bool {
			p := Point{X: float64(x), Y: float64(y)}
			c := Point{X: float64(cx), Y: float64(cy)}
			theta := deg * math.Pi / 180
			back := RotatePoint(RotatePoint(p, c, theta), c, -theta)
			return math.Abs(back.X-p.X) <= 1e-6 && math.Abs(back.Y-p.Y) <= 1e-6
		},
		gen.IntRange(-2000, 2000),
		gen.IntRange(-2000, 2000),
		gen.IntRange(0, 3000),
		gen.IntRange(0, 3000),
		gen.Float64Range(-15, 15),
	))

	properties.Property("rotating by pi twice is the identity", prop.ForAll(
		func(x, y int) bool {
			p := Point{X: float64(x), Y: float64(y)}
			c := Point{X: 500, Y: 700}
			back := RotatePoint(RotatePoint(p, c, math.Pi), c, math.Pi)
			return math.Abs(back.X-p.X) <= 1e-6 && math.Abs(back.Y-p.Y) <= 1e-6
		},
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1400),
	))

	properties.TestingRun(t)
}

func TestRotateRect_RoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rotating by theta then -theta moves the rect at most 1px", prop.ForAll(
		func(x, y, cx, cy int, deg float64) bool {
			r := NewRect(x, y, 30, 20)
			c := Point{X: float64(cx), Y: float64(cy)}
			theta := deg * math.Pi / 180
			back := RotateRect(RotateRect(r, c, theta), c, -theta)
			return abs(back.X-r.X) <= 1 && abs(back.Y-r.Y) <= 1 && back.W == r.W && back.H == r.H
		},
		gen.IntRange(0, 2000),
		gen.IntRange(0, 2000),
		gen.IntRange(0, 3000),
		gen.IntRange(0, 3000),
		gen.Float64Range(-15, 15),
	))

	properties.TestingRun(t)

	// 0.1 rad about (37,53) used to come back 2px up
	back := RotateRect(RotateRect(NewRect(0, 121, 10, 10), Point{X: 37, Y: 53}, 0.1), Point{X: 37, Y: 53}, -0.1)
	assert.LessOrEqual(t, abs(back.Y-121), 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
